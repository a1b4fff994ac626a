package main

import "topicseg/internal/cli"

func main() {
	cli.Execute()
}
