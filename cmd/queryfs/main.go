package main

import "github.com/mvp-joe/queryfs/internal/cli"

func main() {
	cli.Execute()
}
