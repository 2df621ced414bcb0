package main

import "github.com/santaclaude2025/flowsync/cmd"

func main() {
	cmd.Execute()
}
