package main

import (
	"fmt"
	"os"

	"syntego/internal/cli"
)

func main() {
	cli.LoadEnvFile()
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
