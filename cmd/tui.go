package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ytcurator/internal/shared"
	"github.com/desertthunder/ytcurator/internal/ui"
)

// TUI launches the interactive chat UI for one session.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	repo, db, err := r.openHistory()
	if err != nil {
		r.logger.Warn("checkout history disabled", "error", err)
	} else {
		defer db.Close()
	}

	progress := make(chan string, 16)
	notify := func(line string) {
		select {
		case progress <- line:
		default:
			r.logger.Debug("dropped progress line", "line", line)
		}
	}

	manager, err := r.sessions(recorderOrNil(repo), notify)
	if err != nil {
		return err
	}
	defer manager.Close()

	sess, err := manager.Create(ctx)
	if err != nil {
		return err
	}

	if err := ui.Run(ctx, sess, progress); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
