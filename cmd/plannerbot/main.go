package main

import (
	"fmt"
	"os"
	_ "time/tzdata"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "plannerbot:", err)
		os.Exit(1)
	}
}
