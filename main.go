package main

import (
	"github.com/axellelanca/scanlead/cmd"
	_ "github.com/axellelanca/scanlead/cmd/cli"
	_ "github.com/axellelanca/scanlead/cmd/server"
)

func main() {
	cmd.Execute()
}
