package main

import (
	"github.com/mistwave/filemesh/cmd"
)

func main() {
	cmd.Execute()
}
