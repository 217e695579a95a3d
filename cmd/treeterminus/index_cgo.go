//go:build cgo

package main

import "github.com/dusk-indust/treeterminus/internal/index"

func openIndex(path string) (index.Store, error) {
	return index.NewKuzuFileStore(path)
}
