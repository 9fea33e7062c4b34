package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"focal/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and maintain the job queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var statusFlag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			var statuses []queue.Status
			if trimmed := strings.TrimSpace(statusFlag); trimmed != "" {
				for _, raw := range strings.Split(trimmed, ",") {
					status, ok := queue.ParseStatus(raw)
					if !ok {
						return fmt.Errorf("unknown status %q (expected one of %v)", raw, queue.AllStatuses())
					}
					statuses = append(statuses, status)
				}
			}

			jobs, err := store.List(context.Background(), statuses...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(jobs) == 0 {
				fmt.Fprintln(out, "Queue is empty")
				return nil
			}

			rows := make([][]string, 0, len(jobs))
			for _, job := range jobs {
				files, _ := job.Files()
				progress := strings.TrimSpace(job.ProgressMessage)
				if progress == "" {
					progress = strings.TrimSpace(job.ErrorMessage)
				}
				rows = append(rows, []string{
					strconv.FormatInt(job.ID, 10),
					string(job.Status),
					filepath.Base(job.FolderPath),
					strconv.Itoa(len(files)),
					fmt.Sprintf("%.0f%%", job.ProgressPercent),
					progress,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Status", "Folder", "Files", "Progress", "Detail"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVarP(&statusFlag, "status", "s", "", "Comma-separated status filter (pending,processing,retrying,completed,failed)")
	return cmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Summarize queue counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			summary, err := store.Health(context.Background())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Total:      %d\n", summary.Total)
			fmt.Fprintf(out, "Pending:    %d\n", summary.Pending)
			fmt.Fprintf(out, "Processing: %d\n", summary.Processing)
			fmt.Fprintf(out, "Completed:  %d\n", summary.Completed)
			fmt.Fprintf(out, "Failed:     %d\n", summary.Failed)
			return nil
		},
	}
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [job-id...]",
		Short: "Requeue failed jobs (all failed jobs when no id is given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
				if err != nil {
					return fmt.Errorf("invalid job id %q", arg)
				}
				ids = append(ids, id)
			}

			count, err := store.RetryFailed(context.Background(), ids...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Requeued %d job(s)\n", count)
			return nil
		},
	}
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <job-id>",
		Short: "Remove a single job from the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid job id %q", args[0])
			}

			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Remove(context.Background(), id)
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("job %d not found", id)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed job %d\n", id)
			return nil
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var completedOnly bool
	var failedOnly bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove queue jobs (all jobs unless a filter flag is given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			runCtx := context.Background()
			var count int64
			switch {
			case completedOnly && failedOnly:
				return fmt.Errorf("--completed and --failed are mutually exclusive")
			case completedOnly:
				count, err = store.ClearCompleted(runCtx)
			case failedOnly:
				count, err = store.ClearFailed(runCtx)
			default:
				count, err = store.Clear(runCtx)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d job(s)\n", count)
			return nil
		},
	}

	cmd.Flags().BoolVar(&completedOnly, "completed", false, "Only remove completed jobs")
	cmd.Flags().BoolVar(&failedOnly, "failed", false, "Only remove failed jobs")
	return cmd
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check queue database health",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			health, checkErr := store.CheckHealth(context.Background())

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			fmt.Fprintf(out, "Queue database: %s\n", health.DBPath)
			fmt.Fprintln(out, renderStatusLine("Exists", boolKind(health.DatabaseExists), "", colorize))
			fmt.Fprintln(out, renderStatusLine("Readable", boolKind(health.DatabaseReadable), "", colorize))
			fmt.Fprintln(out, renderStatusLine("Schema version", statusInfo, health.SchemaVersion, colorize))
			fmt.Fprintln(out, renderStatusLine("Table present", boolKind(health.TableExists), "", colorize))
			if len(health.MissingColumns) > 0 {
				fmt.Fprintln(out, renderStatusLine("Columns", statusError,
					"missing "+strings.Join(health.MissingColumns, ", "), colorize))
			} else {
				fmt.Fprintln(out, renderStatusLine("Columns", statusOK, "", colorize))
			}
			fmt.Fprintln(out, renderStatusLine("Integrity", boolKind(health.IntegrityCheck), "", colorize))
			fmt.Fprintln(out, renderStatusLine("Jobs", statusInfo, strconv.Itoa(health.TotalJobs), colorize))
			if health.Error != "" {
				fmt.Fprintln(out, renderStatusLine("Detail", statusError, health.Error, colorize))
			}
			return checkErr
		},
	}
}

func boolKind(ok bool) statusKind {
	if ok {
		return statusOK
	}
	return statusError
}
