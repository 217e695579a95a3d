//go:build !cgo

package main

import (
	"fmt"

	"github.com/dusk-indust/treeterminus/internal/index"
)

func openIndex(path string) (index.Store, error) {
	return nil, fmt.Errorf("cannot open %s: the kuzu index needs a cgo build", path)
}
