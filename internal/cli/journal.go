package cli

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/viewsync/internal/engine"
	"github.com/roach88/viewsync/internal/store"
)

// JournalOptions holds flags for the journal command.
type JournalOptions struct {
	*RootOptions
	Database string
	Session  string
}

// JournalEntry is one row of a session timeline.
type JournalEntry struct {
	Seq       int64  `json:"seq"`
	Kind      string `json:"kind"` // "attach", "detach", "command" or "delivery"
	ConnID    uint64 `json:"conn_id,omitempty"`
	CommandID string `json:"command_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arg       string `json:"arg,omitempty"`
	State     string `json:"state,omitempty"`
	Result    *bool  `json:"result,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Version   uint64 `json:"version,omitempty"`
}

// JournalStats summarizes a session.
type JournalStats struct {
	Connections int `json:"connections"`
	Commands    int `json:"command_events"`
	Deliveries  int `json:"deliveries"`
}

// JournalResult is the output for one session.
type JournalResult struct {
	Session  string         `json:"session"`
	Timeline []JournalEntry `json:"timeline"`
	Stats    JournalStats   `json:"stats"`
}

// NewJournalCommand creates the journal command.
func NewJournalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JournalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Show recorded sessions",
		Long: `Read the SQLite journal written by serve --db.

Without --session the recorded session ids are listed. With --session
the connection, command and delivery events of that session are merged
into one timeline ordered by sequence number.

Examples:
  viewsync journal --db ./journal.db
  viewsync journal --db ./journal.db --session 0190f3c2-...
  viewsync journal --db ./journal.db --session 0190f3c2-... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJournal(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session id to show")

	return cmd
}

func runJournal(opts *JournalOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := opts.formatter(cmd)

	// store.Open creates missing databases; a typo should not.
	if _, err := os.Stat(opts.Database); err != nil {
		return WrapExitError(ExitCommandError, "journal not found", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer st.Close()

	if opts.Session == "" {
		sessions, err := st.ReadSessions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read sessions", err)
		}
		if out.JSON() {
			return out.Success(map[string]any{"sessions": sessions})
		}
		if len(sessions) == 0 {
			out.Printf("No sessions recorded.\n")
			return nil
		}
		for _, s := range sessions {
			out.Printf("%s\n", s)
		}
		return nil
	}

	result, err := readJournal(ctx, st, opts.Session)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	if out.JSON() {
		return out.Success(result)
	}
	printJournal(out, result)
	return nil
}

func readJournal(ctx context.Context, st *store.Store, session string) (JournalResult, error) {
	conns, err := st.ReadConnectionEvents(ctx, session)
	if err != nil {
		return JournalResult{}, err
	}
	cmds, err := st.ReadCommandEvents(ctx, session)
	if err != nil {
		return JournalResult{}, err
	}
	deliveries, err := st.ReadDeliveryEvents(ctx, session)
	if err != nil {
		return JournalResult{}, err
	}

	result := JournalResult{
		Session:  session,
		Timeline: make([]JournalEntry, 0, len(conns)+len(cmds)+len(deliveries)),
	}

	for _, ev := range conns {
		result.Timeline = append(result.Timeline, JournalEntry{Seq: ev.Seq, Kind: ev.Event, ConnID: ev.ConnID})
		if ev.Event == store.ConnectionAttached {
			result.Stats.Connections++
		}
	}
	for _, ev := range cmds {
		entry := JournalEntry{
			Seq:       ev.Seq,
			Kind:      "command",
			ConnID:    ev.ConnID,
			CommandID: ev.CommandID,
			Name:      ev.Name,
			Arg:       ev.Arg,
			State:     ev.State,
			Reason:    ev.Reason,
		}
		if ev.State == engine.CommandCompleted.String() {
			ok := ev.Result
			entry.Result = &ok
		}
		result.Timeline = append(result.Timeline, entry)
	}
	result.Stats.Commands = len(cmds)
	for _, ev := range deliveries {
		result.Timeline = append(result.Timeline, JournalEntry{Seq: ev.Seq, Kind: "delivery", ConnID: ev.ConnID, Version: ev.Version})
	}
	result.Stats.Deliveries = len(deliveries)

	sort.Slice(result.Timeline, func(i, j int) bool {
		return result.Timeline[i].Seq < result.Timeline[j].Seq
	})
	return result, nil
}

func printJournal(out *OutputFormatter, r JournalResult) {
	out.Printf("Session: %s\n\n", r.Session)

	out.Printf("=== Timeline ===\n")
	if len(r.Timeline) == 0 {
		out.Printf("  (no events)\n")
	}
	for _, e := range r.Timeline {
		out.Printf("  %s\n", formatJournalEntry(e))
	}

	out.Printf("\n=== Stats ===\n")
	out.Printf("  Connections:    %d\n", r.Stats.Connections)
	out.Printf("  Command events: %d\n", r.Stats.Commands)
	out.Printf("  Deliveries:     %d\n", r.Stats.Deliveries)
}

func formatJournalEntry(e JournalEntry) string {
	switch e.Kind {
	case "command":
		s := fmt.Sprintf("[%d] CMD %s %s", e.Seq, e.CommandID, e.Name)
		if e.Arg != "" {
			s += " " + e.Arg
		}
		s += " " + e.State
		if e.ConnID != 0 {
			s += fmt.Sprintf(" conn=%d", e.ConnID)
		}
		if e.Result != nil {
			s += fmt.Sprintf(" result=%t", *e.Result)
		}
		if e.Reason != "" {
			s += " reason=" + e.Reason
		}
		return s
	case "delivery":
		return fmt.Sprintf("[%d] ACK conn=%d version=%d", e.Seq, e.ConnID, e.Version)
	}
	return fmt.Sprintf("[%d] %s conn=%d", e.Seq, e.Kind, e.ConnID)
}
