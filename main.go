package main

import (
	"github.com/TheFitzZZ/donetick-mcp-server/cmd"
)

func main() {
	cmd.Execute()
}
