package main

import "pg_exporter/cli"

// Version is overridden at build time via -ldflags "-X main.Version=...".
var Version string

func main() {
	if Version != "" {
		cli.Version = Version
	}
	cli.Execute()
}
