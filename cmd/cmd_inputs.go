package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/actionforge/actportal-cli/core"
	gh_workflow_yml "github.com/actionforge/actportal-cli/github/workflow.yml"
	"github.com/actionforge/actportal-cli/utils"
)

var flagInputsRef string

var cmdInputs = &cobra.Command{
	Use:   "inputs <action-id | owner/repo workflow-path>",
	Short: "Show the generated input form of a workflow.",
	Long: `Shows the typed field schema generated from a workflow's declared
workflow_dispatch inputs. The workflow is either looked up in the catalog
by action id, or fetched live from a repository.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		action, err := resolveAction(cmd, args)
		if err != nil {
			printUserError(err)
			return err
		}

		schema := core.BuildSchema(action.Inputs)

		fmt.Printf("%s (%s, %s)\n\n", action.Name, action.Repository, action.WorkflowPath)

		if len(schema.Fields) == 0 {
			fmt.Println("This workflow declares no dispatch inputs.")
			return nil
		}

		bold := color.New(color.Bold).SprintFunc()
		w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", bold("FIELD"), bold("KIND"), bold("REQUIRED"), bold("DEFAULT"), bold("OPTIONS"))
		for _, field := range schema.Fields {
			def := ""
			if field.HasDefault {
				def = fmt.Sprintf("%v", field.Default)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				field.Name, field.Kind,
				utils.If(field.Required, "yes", "no"),
				def, strings.Join(field.Options, ","))
		}
		return w.Flush()
	},
}

// resolveAction turns the command arguments into a catalog action:
// either a curated catalog entry, or one hydrated on the fly from a
// live repository's workflow file.
func resolveAction(cmd *cobra.Command, args []string) (*core.CatalogAction, error) {
	if len(args) == 1 && !strings.Contains(args[0], "/") {
		catalog, err := loadCatalog()
		if err != nil {
			return nil, err
		}
		action, ok := catalog.Get(args[0])
		if !ok {
			return nil, fmt.Errorf("no catalog action with id '%s'", args[0])
		}
		return action, nil
	}

	if len(args) != 2 {
		return nil, fmt.Errorf("expected either an action id or: owner/repo workflow-path")
	}

	repository, workflowPath := args[0], args[1]
	owner, repo, err := core.SplitRepository(repository)
	if err != nil {
		return nil, err
	}

	client := newClient()
	content, err := client.GetFileContent(cmd.Context(), owner, repo, workflowPath, flagInputsRef)
	if err != nil {
		return nil, err
	}

	meta := gh_workflow_yml.ExtractMetadata(content)
	if meta == nil {
		return nil, fmt.Errorf("'%s' is not a parsable workflow file", workflowPath)
	}
	if !meta.HasDispatchTrigger {
		return nil, fmt.Errorf("workflow '%s' has no workflow_dispatch trigger", meta.Name)
	}

	return &core.CatalogAction{
		ID:           core.WorkflowIDFromPath(workflowPath),
		Name:         meta.Name,
		Description:  meta.Description,
		Repository:   repository,
		WorkflowPath: workflowPath,
		Inputs:       core.InputsFromWorkflow(meta),
	}, nil
}

func init() {
	cmdInputs.Flags().StringVar(&flagInputsRef, "ref", "", "Git ref to fetch the workflow file from")

	cmdRoot.AddCommand(cmdInputs)
}
