package main

import "github.com/alekseev-bro/warcore/internal/cli"

func main() {
	cli.Execute()
}
