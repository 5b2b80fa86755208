package main

import (
	"os"

	"github.com/codesearch/codesearch/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:]))
}
