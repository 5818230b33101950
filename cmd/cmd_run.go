package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/actionforge/actportal-cli/core"
	"github.com/actionforge/actportal-cli/sessions"
	"github.com/actionforge/actportal-cli/utils"
	u "github.com/actionforge/actportal-cli/utils"
)

var (
	flagRunRepo       string
	flagRunRef        string
	flagRunInputs     []string
	flagRunWatch      bool
	flagRunInterval   time.Duration
	flagRunSessionURL string
)

var cmdRun = &cobra.Command{
	Use:   "run <action-id | workflow-path | owner/repo workflow-path> [flags]",
	Short: "Trigger a workflow and optionally watch it to completion.",
	Long: `Validates the given inputs against the workflow's generated field
schema, dispatches the workflow on the target ref and records the attempt.
With --watch the resulting run is located and polled until it reaches a
terminal state.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		action, err := resolveRunAction(cmd, args)
		if err != nil {
			printUserError(err)
			return err
		}

		ref, _ := u.ResolveCliParam("ref", u.ResolveCliParamOpts{
			Flag:      true,
			FlagValue: flagRunRef,
			Env:       true,
			Settings:  true,
			Optional:  true,
			AppPrefix: true,
		})
		if ref == "" {
			ref = "main"
		}

		schema := core.BuildSchema(action.Inputs)

		values, err := parseInputValues(schema, flagRunInputs)
		if err != nil {
			printUserError(err)
			return err
		}

		result := core.Validate(schema, values)
		if !result.OK {
			printFieldErrors(result.Errors)
			return fmt.Errorf("invalid inputs")
		}

		client := newClient()
		executor := core.NewExecutor(client)

		record, err := executor.Execute(cmd.Context(), action, result.Data, ref)
		if err != nil {
			printUserError(err)
			return err
		}

		fmt.Printf("Dispatched %s/%s %s on %s (execution %s)\n",
			record.Owner, record.Repo, record.WorkflowID, record.Ref, record.ID)

		if !flagRunWatch {
			return nil
		}

		return watchExecution(client, executor, record.ID)
	},
}

// resolveRunAction accepts a catalog action id, a bare workflow path
// (repository taken from --repo or the cwd's origin remote), or the
// explicit owner/repo workflow-path pair.
func resolveRunAction(cmd *cobra.Command, args []string) (*core.CatalogAction, error) {
	if len(args) == 1 && !strings.Contains(args[0], "/") && !strings.HasSuffix(args[0], ".yml") && !strings.HasSuffix(args[0], ".yaml") {
		return resolveAction(cmd, args)
	}

	if len(args) == 2 {
		return resolveAction(cmd, args)
	}

	repository := flagRunRepo
	if repository == "" {
		detected, err := utils.DetectRepository(".")
		if err != nil {
			return nil, fmt.Errorf("no --repo given and none detected: %v", err)
		}
		utils.LogOut.Debugf("detected repository %s from origin remote\n", detected)
		repository = detected
	}

	return resolveAction(cmd, []string{repository, args[0]})
}

// parseInputValues converts --input name=value pairs into the typed
// value map the schema expects, starting from the schema's defaults.
func parseInputValues(schema *core.Schema, pairs []string) (map[string]any, error) {
	values := core.DefaultValues(schema)

	fields := map[string]core.FieldSchema{}
	for _, field := range schema.Fields {
		fields[field.Name] = field
	}

	for _, pair := range pairs {
		name, raw, found := strings.Cut(pair, "=")
		if !found {
			return nil, fmt.Errorf("invalid input '%s', expected name=value", pair)
		}

		field, ok := fields[name]
		if !ok {
			return nil, fmt.Errorf("workflow declares no input named '%s'", name)
		}

		switch field.Kind {
		case core.FieldBoolean:
			values[name] = raw == "true"
		case core.FieldNumber:
			n, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("input '%s' must be a number, got '%s'", name, raw)
			}
			values[name] = n
		case core.FieldMultiSelect:
			if raw == "" {
				values[name] = []string{}
			} else {
				values[name] = strings.Split(raw, ",")
			}
		default:
			values[name] = raw
		}
	}

	return values, nil
}

func printFieldErrors(errs map[string]string) {
	errColor := color.New(color.FgRed).SprintFunc()

	names := make([]string, 0, len(errs))
	for name := range errs {
		names = append(names, name)
	}
	sort.Strings(names)

	utils.LogErr.Errorf("%s\n", errColor("invalid inputs:"))
	for _, name := range names {
		utils.LogErr.Errorf("  %s: %s\n", name, errs[name])
	}
}

// watchExecution polls the execution until it is terminal, relaying
// status changes to the terminal and, if configured, to a connected
// portal UI session.
func watchExecution(client core.Gateway, executor *core.Executor, executionID string) error {
	var session *sessions.Session
	if flagRunSessionURL != "" {
		var err error
		session, err = sessions.Connect(cmdRoot.Context(), flagRunSessionURL)
		if err != nil {
			return err
		}
		defer session.Close()
	}

	onUpdate := func(record *core.ExecutionResult) {
		line := fmt.Sprintf("execution %s: %s", record.ID, record.Status)
		if record.RunID != 0 {
			line += fmt.Sprintf(" (run %d)", record.RunID)
		}
		fmt.Println(line)

		if session != nil {
			if err := session.SendStatus(record); err != nil {
				utils.LogOut.Debugf("session send failed: %v\n", err)
			}
		}
	}

	poller := core.NewPoller(client, executor,
		core.WithPollInterval(flagRunInterval),
		core.WithUpdateHandler(onUpdate),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		<-sigCh
		fmt.Println("\nstopping...")
		poller.Stop()
	}()

	poller.Start(executionID)
	poller.Wait()

	record := executor.GetExecution(executionID)
	if record == nil {
		return fmt.Errorf("execution '%s' disappeared", executionID)
	}

	switch record.Status {
	case core.StatusCompleted:
		fmt.Println("Workflow completed successfully.")
		return nil
	case core.StatusFailed:
		return fmt.Errorf("workflow failed: %s", record.Error)
	case core.StatusCancelled:
		return fmt.Errorf("workflow was cancelled")
	default:
		fmt.Printf("Stopped watching, last observed status: %s\n", record.Status)
		return nil
	}
}

func init() {
	cmdRun.Flags().StringVar(&flagRunRepo, "repo", "", "Repository as owner/name (default: detected from the origin remote)")
	cmdRun.Flags().StringVar(&flagRunRef, "ref", "", "Git ref to run the workflow on (default main)")
	cmdRun.Flags().StringArrayVar(&flagRunInputs, "input", nil, "Workflow input as name=value (repeatable)")
	cmdRun.Flags().BoolVar(&flagRunWatch, "watch", false, "Poll the resulting run until it finishes")
	cmdRun.Flags().DurationVar(&flagRunInterval, "interval", 0, "Poll interval (default 5s)")
	cmdRun.Flags().StringVar(&flagRunSessionURL, "session_url", "", "Relay status updates to this portal session endpoint (ws:// or wss://)")

	cmdRoot.AddCommand(cmdRun)
}
