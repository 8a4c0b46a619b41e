package main

import (
	"os"

	"devtracker/cmd/devtracker/cmd"
)

func main() {
	os.Exit(cmd.Execute(os.Args[1:], os.Stdout, os.Stderr, &cmd.Config{}))
}
