package main

import "github.com/edulab-ai/progresscluster/internal/cli"

func main() {
	cli.Execute()
}
