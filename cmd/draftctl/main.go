package main

import "github.com/mcoot/captain-draft/internal/cli"

func main() {
	cli.Execute()
}
