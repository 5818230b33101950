package main

import (
	"github.com/actionforge/actportal-cli/cmd"
	"github.com/actionforge/actportal-cli/utils"
)

func main() {
	utils.ApplyLogLevel()

	cmd.Execute()
}
