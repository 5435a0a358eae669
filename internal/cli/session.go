package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/aretw0/concierge/internal/presentation/graph"
	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/ports"
	"github.com/aretw0/concierge/pkg/specialist"
)

// ListSessions prints one line per checkpointed thread.
func ListSessions(ctx context.Context, store ports.CheckpointStore, w io.Writer) error {
	ids, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("listing threads: %w", err)
	}
	if len(ids) == 0 {
		fmt.Fprintln(w, "No threads found.")
		return nil
	}
	sort.Strings(ids)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "THREAD\tSTATUS\tACTIVE\tMESSAGES\tUPDATED")
	for _, id := range ids {
		conv, err := store.Load(ctx, id)
		if err != nil {
			fmt.Fprintf(tw, "%s\t(unreadable: %v)\t\t\t\n", id, err)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", id, conv.Status, conv.Active(), len(conv.Messages), conv.UpdatedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

// InspectSession prints the checkpoint of a thread as indented JSON, or as a
// routing graph highlighting its dialog stack when roster is set.
func InspectSession(ctx context.Context, store ports.CheckpointStore, threadID string, roster *specialist.Roster, w io.Writer) error {
	conv, err := store.Load(ctx, threadID)
	if err != nil {
		return fmt.Errorf("loading thread '%s': %w", threadID, err)
	}
	if roster != nil {
		_, err := io.WriteString(w, graph.GenerateMermaid(roster, graph.OverlayFor(conv)))
		return err
	}
	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// RemoveSessions deletes every named thread, reporting each outcome. With
// all set, every stored thread is removed.
func RemoveSessions(ctx context.Context, store ports.CheckpointStore, ids []string, all bool, w io.Writer) error {
	if all {
		var err error
		if ids, err = store.List(ctx); err != nil {
			return fmt.Errorf("listing threads: %w", err)
		}
	}
	var errs []error
	for _, id := range ids {
		if err := store.Delete(ctx, id); err != nil && !errors.Is(err, domain.ErrThreadNotFound) {
			errs = append(errs, fmt.Errorf("removing '%s': %w", id, err))
			continue
		}
		fmt.Fprintf(w, "Removed thread '%s'\n", id)
	}
	return errors.Join(errs...)
}
