package main

import "github.com/mlinsightlab/mlil/internal/cli"

func main() {
	cli.Execute()
}
