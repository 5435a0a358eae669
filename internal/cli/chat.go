package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/concierge"
	"github.com/aretw0/concierge/internal/presentation/tui"
	"github.com/aretw0/concierge/pkg/runner"
	"github.com/google/uuid"
)

// ChatOptions configure a terminal conversation.
type ChatOptions struct {
	ThreadID      string
	UserContextID string
	// JSON switches to JSON lines on stdin and stdout.
	JSON bool
	// AutoApprove runs sensitive actions without asking.
	AutoApprove bool
	Quiet       bool
}

// RunChat holds a conversation on the terminal until the user quits.
func RunChat(ctx context.Context, app *App, opts ChatOptions) error {
	return runChat(ctx, app, opts, os.Stdin, os.Stdout)
}

func runChat(ctx context.Context, app *App, opts ChatOptions, in io.Reader, out *os.File) error {
	if opts.ThreadID == "" {
		opts.ThreadID = uuid.NewString()
	}
	quiet := opts.Quiet || opts.JSON

	var handler runner.IOHandler
	if opts.JSON {
		handler = runner.NewJSONHandler(in, out)
	} else {
		handler = runner.NewTextHandler(in, out,
			runner.WithTextHandlerRenderer(tui.NewRenderer(out)),
			runner.WithTextHandlerStyle(tui.NewStyle(out)),
		)
	}

	if !quiet {
		tui.PrintBanner(out, concierge.Version)
		printSystemMessage(out, "Thread '%s'. Type 'quit' to leave.", opts.ThreadID)
	}

	runOpts := []runner.Option{
		runner.WithLogger(app.Logger),
		runner.WithHandler(handler),
		runner.WithTurnObserver(app.Metrics.TurnFailed),
	}
	if opts.AutoApprove {
		runOpts = append(runOpts, runner.WithApprover(runner.AutoApprove()))
	}

	err := runner.New(app.Assistant, runOpts...).Run(ctx, opts.ThreadID, opts.UserContextID)
	if err = handleExecutionError(err); err != nil {
		return err
	}
	if !quiet {
		printSystemMessage(out, "Conversation saved as '%s'.", opts.ThreadID)
	}
	return nil
}

// printSystemMessage prints a standardized system message.
func printSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}

func handleExecutionError(err error) error {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
