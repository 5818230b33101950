package cmd

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/actionforge/actportal-cli/core"
)

var cmdRuns = &cobra.Command{
	Use:   "runs <owner/repo> <workflow-id>",
	Short: "List recent runs of a workflow.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, repo, err := core.SplitRepository(args[0])
		if err != nil {
			printUserError(err)
			return err
		}

		client := newClient()
		runs, err := client.ListWorkflowRuns(cmd.Context(), owner, repo, args[1], 20)
		if err != nil {
			printUserError(err)
			return err
		}

		if len(runs) == 0 {
			fmt.Println("No runs found.")
			return nil
		}

		bold := color.New(color.Bold).SprintFunc()
		w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			bold("RUN"), bold("NUMBER"), bold("BRANCH"), bold("STATUS"), bold("CONCLUSION"), bold("CREATED"))
		for _, run := range runs {
			fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%s\n",
				run.ID, run.RunNumber, run.HeadBranch, run.Status, run.Conclusion,
				run.CreatedAt.Local().Format("2006-01-02 15:04:05"))
		}
		return w.Flush()
	},
}

var cmdRunsCancel = &cobra.Command{
	Use:   "cancel <owner/repo> <run-id>",
	Short: "Request cancellation of a run.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runControl(cmd, args, "cancel")
	},
}

var cmdRunsRerun = &cobra.Command{
	Use:   "rerun <owner/repo> <run-id>",
	Short: "Request a rerun of a finished run.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runControl(cmd, args, "rerun")
	},
}

func runControl(cmd *cobra.Command, args []string, action string) error {
	owner, repo, err := core.SplitRepository(args[0])
	if err != nil {
		printUserError(err)
		return err
	}

	runID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		err = fmt.Errorf("invalid run id '%s'", args[1])
		printUserError(err)
		return err
	}

	client := newClient()
	if action == "cancel" {
		err = client.CancelWorkflowRun(cmd.Context(), owner, repo, runID)
	} else {
		err = client.RerunWorkflowRun(cmd.Context(), owner, repo, runID)
	}
	if err != nil {
		printUserError(err)
		return err
	}

	fmt.Printf("Requested %s of run %d.\n", action, runID)
	return nil
}

func init() {
	cmdRuns.AddCommand(cmdRunsCancel)
	cmdRuns.AddCommand(cmdRunsRerun)
	cmdRoot.AddCommand(cmdRuns)
}
