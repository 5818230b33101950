package cmd

import (
	"bufio"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/inconshreveable/mousetrap"
	"github.com/spf13/cobra"

	"github.com/actionforge/actportal-cli/build"
	"github.com/actionforge/actportal-cli/core"
	"github.com/actionforge/actportal-cli/github"
	"github.com/actionforge/actportal-cli/utils"
	u "github.com/actionforge/actportal-cli/utils"
)

var (
	flagEnvFile      string
	flagSettingsFile string
	flagToken        string
	flagCatalogFile  string

	finalToken       string
	finalCatalogFile string
)

var cmdRoot = &cobra.Command{
	Use:     "actportal",
	Short:   "actportal discovers, triggers and monitors GitHub Actions workflows.",
	Version: build.GetFullVersionInfo(),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if flagEnvFile != "" {
			err := utils.LoadEnvFile(flagEnvFile)
			if err != nil {
				// Return this error too, so Cobra knows something went wrong
				return err
			}
			utils.LogOut.Debugf("loaded .env file from %s\n", flagEnvFile)
		}

		settingsFile := flagSettingsFile
		if settingsFile == "" {
			settingsFile = "actportal.toml"
		}
		if _, err := utils.LoadSettings(settingsFile); err != nil {
			return err
		}

		finalToken, _ = utils.ResolveToken(flagToken)

		finalCatalogFile, _ = u.ResolveCliParam("catalog_file", u.ResolveCliParamOpts{
			Flag:      true,
			FlagValue: flagCatalogFile,
			Env:       true,
			Settings:  true,
			Optional:  true,
			AppPrefix: true,
		})

		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()

		if mousetrap.StartedByExplorer() {
			fmt.Print("\nPress Enter to exit...")
			_, _ = bufio.NewReader(os.Stdin).ReadBytes('\n')
		}
	},
}

// newClient builds the gateway client from the resolved token. An
// empty token is allowed, authenticated calls then fail with a
// classified authentication error.
func newClient() *github.Client {
	return github.NewClient(finalToken)
}

// loadCatalog loads the configured catalog file.
func loadCatalog() (*core.Catalog, error) {
	if finalCatalogFile == "" {
		return nil, fmt.Errorf("no catalog file configured, pass --catalog_file or set catalog_file in actportal.toml")
	}
	return core.LoadCatalog(finalCatalogFile)
}

func printUserError(err error) {
	errColor := color.New(color.FgRed).SprintFunc()
	utils.LogErr.Errorf("%s %s\n", errColor("error:"), err.Error())
}

func Execute() {
	if err := cmdRoot.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cmdRoot.PersistentFlags().StringVar(&flagEnvFile, "env_file", "", "Absolute path to an env file (.env) to load first")
	cmdRoot.PersistentFlags().StringVar(&flagSettingsFile, "settings_file", "", "Path to the portal settings file (default actportal.toml)")
	cmdRoot.PersistentFlags().StringVar(&flagToken, "token", "", "GitHub token (falls back to ACTPORTAL_TOKEN, then GITHUB_TOKEN)")
	cmdRoot.PersistentFlags().StringVar(&flagCatalogFile, "catalog_file", "", "Path to the action catalog file")

	color.NoColor = os.Getenv("ACTPORTAL_NOCOLOR") == "true"
}

func init() {
	cobra.MousetrapHelpText = ""
}
