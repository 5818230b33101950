package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/rhysd/actionlint"
	"github.com/spf13/cobra"

	"github.com/actionforge/actportal-cli/core"
	gh_workflow_yml "github.com/actionforge/actportal-cli/github/workflow.yml"
)

var cmdValidate = &cobra.Command{
	Use:   "validate <workflow-file>",
	Short: "Validate a local workflow file and preview its input form.",
	Long: `Lints the workflow file with actionlint, then shows the dispatch
trigger metadata and the field schema the portal would generate for it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		workflowFile := args[0]
		fmt.Printf("Validating '%s'...\n", workflowFile)

		content, err := os.ReadFile(workflowFile)
		if err != nil {
			printUserError(err)
			return err
		}

		linter, err := actionlint.NewLinter(os.Stdout, &actionlint.LinterOptions{
			Color: actionlint.ColorOptionKindAuto,
		})
		if err != nil {
			printUserError(err)
			return err
		}

		lintErrs, err := linter.Lint(workflowFile, content, nil)
		if err != nil {
			printUserError(err)
			return err
		}
		if len(lintErrs) > 0 {
			return fmt.Errorf("validation failed with %d issue(s)", len(lintErrs))
		}

		meta := gh_workflow_yml.ExtractMetadata(content)
		if meta == nil {
			err := fmt.Errorf("'%s' is not a parsable workflow file", workflowFile)
			printUserError(err)
			return err
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s %s\n", green("ok:"), meta.Name)

		if !meta.HasDispatchTrigger {
			fmt.Println("Note: this workflow has no workflow_dispatch trigger and cannot be dispatched from the portal.")
			return nil
		}

		schema := core.BuildSchema(core.InputsFromWorkflow(meta))
		fmt.Printf("Dispatch inputs: %d\n", len(schema.Fields))
		for _, field := range schema.Fields {
			required := ""
			if field.Required {
				required = " (required)"
			}
			fmt.Printf("  - %s: %s%s\n", field.Name, field.Kind, required)
		}

		return nil
	},
}

func init() {
	cmdRoot.AddCommand(cmdValidate)
}
