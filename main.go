package main

import (
	"github.com/mantis-emu/mantis/cmd"
)

func main() {
	cmd.Execute()
}
