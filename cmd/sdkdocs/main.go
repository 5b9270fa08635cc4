package main

import "github.com/dshills/sdkdocs-mcp/internal/cli"

func main() {
	cli.Execute()
}
