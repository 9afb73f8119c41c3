package main

import (
	"github.com/Laisky/knote/cmd"
)

func main() {
	cmd.Execute()
}
