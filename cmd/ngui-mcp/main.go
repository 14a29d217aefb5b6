package main

import (
	"os"

	"github.com/next-gen-ui/ngui-mcp/cmd/ngui-mcp/commands"
)

// Version is the current version of ngui-mcp
// This must match the git tag when creating releases
const Version = "v0.1.0"

func main() {
	commands.SetVersion(Version)

	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
