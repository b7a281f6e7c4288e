package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ytcurator/internal/agent"
)

const noTextResponse = "(No text response)"

// Chat runs a read-eval loop over one session until the user types quit or exit, or input ends.
//
// Agent errors are printed and the loop continues.
func (r *Runner) Chat(ctx context.Context, cmd *cli.Command) error {
	repo, db, err := r.openHistory()
	if err != nil {
		r.logger.Warn("checkout history disabled", "error", err)
	} else {
		defer db.Close()
	}

	manager, err := r.sessions(recorderOrNil(repo), func(line string) { r.writePlain("%s\n", line) })
	if err != nil {
		return err
	}
	defer manager.Close()

	sess, err := manager.Create(ctx)
	if err != nil {
		return err
	}

	r.writePlain("Music curator ready (%s). Type 'quit' to exit.\n", r.config.ProviderName())

	scanner := bufio.NewScanner(r.input)
	for {
		if err := r.writePlain("You: "); err != nil {
			return err
		}
		if !scanner.Scan() {
			break
		}

		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		switch strings.ToLower(text) {
		case "quit", "exit":
			return nil
		}

		reply, _, err := sess.Send(ctx, text)
		if err != nil {
			r.logger.Debug("chat error", "error", err)
			r.writePlain("%s\n", agent.Describe(err))
			continue
		}
		if strings.TrimSpace(reply) == "" {
			reply = noTextResponse
		}
		r.writePlain("Agent: %s\n", reply)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	return nil
}
