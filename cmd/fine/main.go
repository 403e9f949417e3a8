package main

import "github.com/fine-dev/fine-go/internal/cli"

func main() {
	cli.Execute()
}
