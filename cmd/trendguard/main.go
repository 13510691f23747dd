package main

import "github.com/rustyeddy/trendguard/internal/cli"

func main() {
	cli.Execute()
}
