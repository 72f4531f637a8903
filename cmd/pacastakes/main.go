package main

import "paca-stakes/internal/cli"

func main() {
	cli.Execute()
}
