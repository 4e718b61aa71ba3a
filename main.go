package main

import "github.com/chazu/xylem/cmd"

func main() {
	cmd.Execute()
}
