// Package main prints the columns backing each declared composite attribute.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/zoobzio/embedded/internal/tools/columns"
)

func main() {
	cfg, err := columns.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		exitf("parse flags: %v", err)
	}
	if err := columns.Run(cfg, os.Stdout); err != nil {
		exitf("Error: %v", err)
	}
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
