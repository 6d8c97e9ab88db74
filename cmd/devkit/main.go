package main

import (
	"os"

	"devkit/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
