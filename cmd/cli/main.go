package main

import (
	"github.com/alvesdmateus/slotship/internal/cli/commands"
)

func main() {
	commands.Execute()
}
