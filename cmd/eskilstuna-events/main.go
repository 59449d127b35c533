package main

import "github.com/plindberg/eskilstuna-events/internal/cli"

func main() {
	cli.Execute()
}
