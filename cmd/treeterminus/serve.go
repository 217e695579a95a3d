package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/treeterminus/internal/index"
	"github.com/dusk-indust/treeterminus/internal/mcptools"
	"github.com/dusk-indust/treeterminus/internal/pipeline"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the group index over MCP",
		Long: `Expose transcript and group lookups as MCP tools. With --index an
existing kuzu database written by 'consensus --index' is served; otherwise
the index is rebuilt in memory from the group runs under --out. The server
speaks stdio unless --http is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(cmd, map[string]string{
				"consensus.dirs":  "dirs",
				"consensus.out":   "out",
				"consensus.index": "index",
			}); err != nil {
				return err
			}
			addr, _ := cmd.Flags().GetString("http")
			return runServe(cmd, a, addr)
		},
	}
	f := cmd.Flags()
	f.String("dirs", "", "directory holding the sample directories")
	f.String("out", "", "output prefix")
	f.String("index", "", "kuzu database written by 'consensus --index'")
	f.String("http", "", "listen address for streamable HTTP, e.g. :8080")
	return cmd
}

func runServe(cmd *cobra.Command, a *app, addr string) error {
	ctx := cmd.Context()

	var store index.Store
	if path := a.cfg.Consensus.Index; path != "" {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("no group index at %s\nRun 'treeterminus consensus --index %s' first", path, path)
		}
		s, err := openIndex(path)
		if err != nil {
			return err
		}
		store = s
	} else {
		mem := index.NewMemStore()
		if err := pipeline.IndexOutputs(ctx, a.cfg, mem, a.log); err != nil {
			return err
		}
		store = mem
	}
	defer store.Close()

	server := mcptools.NewGroupMCPServer(mcptools.NewGroupService(store))
	if addr != "" {
		a.log.Info("serving MCP over HTTP", "addr", addr)
		return mcptools.RunHTTP(ctx, server, addr)
	}
	return mcptools.RunStdio(ctx, server)
}
