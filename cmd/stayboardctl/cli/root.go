package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kotor-apartments/stayboard/internal/dashboard"
)

// Env lazily opens the collaborators a command needs, so --help works offline.
type Env struct {
	Snapshot func(cmd *cobra.Command) (*SnapshotCLI, func(), error)
	Jobs     func(cmd *cobra.Command) (*JobsCLI, error)
}

// NewRootCommand assembles the stayboardctl command tree.
func NewRootCommand(env Env) *cobra.Command {
	root := &cobra.Command{
		Use:           "stayboardctl",
		Short:         "Operational helpers for the Stayboard dashboard",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(snapshotCmd(env), jobsCmd(env))
	return root
}

type exitError struct {
	code int
}

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

// ExitCode extracts the process exit code from a command error. reported is
// true when the command already printed its own diagnostics.
func ExitCode(err error) (code int, reported bool) {
	if err == nil {
		return 0, true
	}
	var exit exitError
	if errors.As(err, &exit) {
		return exit.code, true
	}
	return 1, false
}

func snapshotCmd(env Env) *cobra.Command {
	var (
		format  string
		filters dashboard.Filters
	)
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Print the dashboard view model built from the live record source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if env.Snapshot == nil {
				return fmt.Errorf("snapshot: not configured")
			}
			helper, closeFn, err := env.Snapshot(cmd)
			if err != nil {
				return err
			}
			if closeFn != nil {
				defer closeFn()
			}
			code := helper.SnapshotCommand(cmd.Context(), SnapshotOptions{
				Format:  format,
				Filters: filters,
				Stdout:  cmd.OutOrStdout(),
				Stderr:  cmd.ErrOrStderr(),
			})
			if code != 0 {
				return exitError{code: code}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", FormatText, "output format: text, json or csv")
	cmd.Flags().StringVarP(&filters.Search, "query", "q", "", "search term")
	cmd.Flags().StringVar(&filters.Reservations, "reservations", dashboard.FilterAll, "reservation status filter")
	cmd.Flags().StringVar(&filters.Cleaning, "cleaning", dashboard.FilterAll, "cleaning job status filter")
	cmd.Flags().StringVar(&filters.Apartments, "apartments", dashboard.FilterAll, "apartment availability filter")
	return cmd
}

func jobsCmd(env Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Manage background jobs",
	}

	var reason string
	trigger := &cobra.Command{
		Use:   "trigger <task>",
		Short: "Enqueue a background task by name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			helper, err := openJobs(env, cmd)
			if err != nil {
				return err
			}
			defer func() { _ = helper.Close() }()
			info, err := helper.Trigger(cmd.Context(), args[0], reason)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
			return nil
		},
	}
	trigger.Flags().StringVar(&reason, "reason", "manual", "reason recorded with the task")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show the default queue counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			helper, err := openJobs(env, cmd)
			if err != nil {
				return err
			}
			defer func() { _ = helper.Close() }()
			result, err := helper.InspectQueue(cmd.Context())
			if err != nil {
				return err
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(result)
		},
	}

	cmd.AddCommand(trigger, stats)
	return cmd
}

func openJobs(env Env, cmd *cobra.Command) (*JobsCLI, error) {
	if env.Jobs == nil {
		return nil, fmt.Errorf("jobs: not configured")
	}
	return env.Jobs(cmd)
}
