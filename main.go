package main

import (
	"github.com/hyrcon/rconctl/cmd"
)

func main() {
	cmd.Execute()
}
