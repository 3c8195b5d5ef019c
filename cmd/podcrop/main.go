package main

import "github.com/forPelevin/podcrop/internal/cli"

func main() {
	cli.Main()
}
