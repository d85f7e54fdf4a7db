package main

import (
	"github.com/karalama/karalama/internal/cli"
)

func main() {
	cli.Execute()
}
