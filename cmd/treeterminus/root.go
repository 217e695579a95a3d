package main

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/dusk-indust/treeterminus/internal/config"
	"github.com/dusk-indust/treeterminus/internal/logging"
	"github.com/dusk-indust/treeterminus/internal/pipeline"
)

// app carries the state shared by subcommands once setup has run.
type app struct {
	cfg *config.Config
	log *logging.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "treeterminus",
		Short: "Group transcripts by inferential uncertainty",
		Long: `TreeTerminus collapses transcripts whose abundances are hard to tell
apart into groups, one sample at a time, then merges the groups of many
samples and builds a consensus tree for every merged group.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.log != nil {
				return a.log.Close()
			}
			return nil
		},
	}

	defaults := config.Default()
	pf := root.PersistentFlags()
	pf.String("config", "", "config file (default is treeterminus.yml in the working directory)")
	pf.String("log-level", defaults.Log.Level, "log level: DEBUG, INFO, WARN or ERROR")
	pf.String("log-file", "", "append JSON logs to this file instead of stderr")
	pf.Int("workers", runtime.GOMAXPROCS(0), "number of parallel workers")

	root.AddCommand(
		newGroupCmd(a),
		newConsensusCmd(a),
		newStatusCmd(a),
		newServeCmd(a),
		newExportCmd(a),
	)
	return root
}

// globalBindings maps config keys to persistent flags.
var globalBindings = map[string]string{
	"log.level": "log-level",
	"log.file":  "log-file",
	"workers":   "workers",
}

// setup resolves the effective configuration of cmd: built-in defaults, then
// the config file, then TREETERMINUS_* env variables, then flags. bindings
// maps config keys to the flag names of cmd. Binding happens per command
// because several commands own an --out flag.
func (a *app) setup(cmd *cobra.Command, bindings map[string]string) error {
	base, err := loadBase(cmd)
	if err != nil {
		return err
	}

	v := viper.New()
	config.SetDefaults(v, base)
	v.SetEnvPrefix(config.EnvPrefix)
	v.SetEnvKeyReplacer(config.KeyReplacer())
	v.AutomaticEnv()

	for _, m := range []map[string]string{globalBindings, bindings} {
		if err := bindFlags(v, cmd.Flags(), m); err != nil {
			return err
		}
	}

	cfg, err := config.FromViper(v)
	if err != nil {
		return err
	}
	log, err := logging.NewLogger(cfg.Log.File, cfg.Log.Level)
	if err != nil {
		return err
	}
	a.cfg, a.log = cfg, log
	return nil
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet, bindings map[string]string) error {
	for key, name := range bindings {
		f := fs.Lookup(name)
		if f == nil {
			return fmt.Errorf("no --%s flag to bind %s", name, key)
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind --%s: %w", name, err)
		}
	}
	return nil
}

func loadBase(cmd *cobra.Command) (*config.Config, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return config.LoadFile(path)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}
	return config.Load(cwd)
}

// progressPrinter drains a ProgressReporter into w until the returned stop
// function is called.
func progressPrinter(w io.Writer) (func(pipeline.ProgressEvent), func()) {
	pr := pipeline.NewProgressReporter()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for ev := range pr.Subscribe() {
			if ev.Status == pipeline.ProgressPending {
				continue
			}
			fmt.Fprintln(w, pipeline.FormatProgress(ev))
		}
	}()
	return pr.Emit, func() {
		pr.Close()
		wg.Wait()
	}
}
