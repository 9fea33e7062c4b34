package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"focal/internal/config"
	"focal/internal/fileutil"
	"focal/internal/processing"
	"focal/internal/queue"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "process <file-or-folder>",
		Short: "Process a file or folder once, without the daemon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			target, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			info, err := os.Stat(target)
			if err != nil {
				return fmt.Errorf("inspect path %q: %w", target, err)
			}

			var folder string
			var files []string
			if info.IsDir() {
				folder = target
				files, err = fileutil.ListFiles(folder, cfg.SupportedExtensions())
				if err != nil {
					return err
				}
				if len(files) == 0 {
					return fmt.Errorf("no supported images in %s", folder)
				}
			} else {
				folder = filepath.Dir(target)
				files = []string{target}
			}

			job := &queue.Job{FolderPath: folder, Status: queue.StatusProcessing}
			if err := job.SetFiles(files); err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			processor := processing.New(cfg, logger)
			if err := processor.Prepare(runCtx, job); err != nil {
				return err
			}
			execErr := processor.Execute(runCtx, job)

			outcomes, err := job.Outcomes()
			if err == nil && len(outcomes) > 0 {
				rows := make([][]string, 0, len(outcomes))
				for _, outcome := range outcomes {
					detail := outcome.Output
					if outcome.Error != "" {
						detail = outcome.Error
					}
					rows = append(rows, []string{
						filepath.Base(outcome.Path),
						string(outcome.State),
						fmt.Sprintf("%d", outcome.Attempts),
						detail,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"File", "State", "Attempts", "Output / Error"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
				))
			}

			if execErr != nil {
				return errors.New("processing failed; see log output for details")
			}
			return nil
		},
	}
}
