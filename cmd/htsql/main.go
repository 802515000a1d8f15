package main

import (
	"fmt"
	"os"

	_ "github.com/brimdata/htsql/cmd/htsql/catalog"
	_ "github.com/brimdata/htsql/cmd/htsql/compile"
	"github.com/brimdata/htsql/cmd/htsql/root"
)

func main() {
	if err := root.Htsql.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
