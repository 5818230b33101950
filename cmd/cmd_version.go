package cmd

import (
	"fmt"

	"github.com/actionforge/actportal-cli/build"

	"github.com/spf13/cobra"
)

var cmdVersion = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of actportal",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("actportal version %s\n", build.GetFullVersionInfo())
	},
}

func init() {
	cmdRoot.AddCommand(cmdVersion)
}
