package main

import "github.com/tuanle2204/BookSwap-Group07/cli"

func main() {
	cli.Execute()
}
