package main

import (
	cmd "github.com/yourusername/netreconcile/cmd/commands"
)

func main() {
	cmd.Execute()
}
