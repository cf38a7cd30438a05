package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/roamwatch/internal/engine"
	"github.com/roach88/roamwatch/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Session  string // optional, defaults to the latest session
	Verify   bool
}

// ReplayedOutcome is an outcome tagged with the captured seq of the
// notification that completed it.
type ReplayedOutcome struct {
	Seq int64 `json:"seq"`
	engine.Outcome
}

// ReplayOutput is the replay command's result.
type ReplayOutput struct {
	Session       SessionView       `json:"session"`
	Notifications int               `json:"notifications"`
	Gaps          int               `json:"gaps"`
	Outcomes      []ReplayedOutcome `json:"outcomes"`
	Recorded      int               `json:"recorded"`
	Verified      *bool             `json:"verified,omitempty"` // set with --verify
	Mismatches    []string          `json:"mismatches,omitempty"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay a captured session through a fresh engine",
		Long: `Feed the notifications of a captured session, in seq order, through a
fresh bus and correlation engine and print the outcomes it classifies.

With --verify the replayed outcomes are compared with the outcomes recorded
during capture.

Exit codes:
  0 - Replay finished (and matched the capture with --verify)
  1 - Replayed outcomes differ from the capture
  2 - Command error (database not found, unknown session, etc.)

Examples:
  roamwatch replay --db ./roamwatch.db
  roamwatch replay --db ./roamwatch.db --session 0192... --verify
  roamwatch replay --db ./roamwatch.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite capture log (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session to replay (default: latest)")
	cmd.Flags().BoolVar(&opts.Verify, "verify", false, "compare with the recorded outcomes")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// store.Open creates missing files; a typo must not yield an empty log.
	if _, err := os.Stat(opts.Database); err != nil {
		return WrapExitError(ExitCommandError, "capture log not found", err)
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open capture log", err)
	}
	defer st.Close()

	sessionID := opts.Session
	if sessionID == "" {
		sessions, err := st.ListSessions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list sessions", err)
		}
		if len(sessions) == 0 {
			return NewExitError(ExitCommandError, "no sessions in capture log")
		}
		sessionID = sessions[len(sessions)-1].ID
	}

	report, err := store.Replay(ctx, st, sessionID, opts.logger().With("component", "replay"))
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return WrapExitError(ExitCommandError, fmt.Sprintf("session %s", sessionID), err)
		}
		return WrapExitError(ExitCommandError, "replay failed", err)
	}

	result := ReplayOutput{
		Session:       newSessionView(report.Session),
		Notifications: report.Notifications,
		Gaps:          report.Gaps,
		Outcomes:      make([]ReplayedOutcome, 0, len(report.Replayed)),
		Recorded:      len(report.Recorded),
	}
	for _, r := range report.Replayed {
		result.Outcomes = append(result.Outcomes, ReplayedOutcome{Seq: r.Seq, Outcome: r.Outcome})
	}
	if opts.Verify {
		ok := report.Verified()
		result.Verified = &ok
		for _, m := range report.Mismatches {
			result.Mismatches = append(result.Mismatches, m.String())
		}
	}

	if opts.Format == "json" {
		if err := outputReplayJSON(cmd, result); err != nil {
			return err
		}
	} else if err := outputReplayText(cmd.OutOrStdout(), result); err != nil {
		return err
	}

	if result.Verified != nil && !*result.Verified {
		return NewExitError(ExitFailure, fmt.Sprintf("replay differs from capture at %d position(s)", len(result.Mismatches)))
	}
	return nil
}

func outputReplayJSON(cmd *cobra.Command, result ReplayOutput) error {
	f := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
	if result.Verified != nil && !*result.Verified {
		return f.encode(CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    "E_REPLAY_MISMATCH",
				Message: "replayed outcomes differ from the capture",
			},
		})
	}
	return f.Success(result)
}

func outputReplayText(w io.Writer, result ReplayOutput) error {
	s := result.Session
	fmt.Fprintf(w, "Session %s (%s, started %s)\n", s.ID, s.Adapter, s.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "%d notification(s), %d capture gap(s)\n", result.Notifications, result.Gaps)
	fmt.Fprintln(w)

	if len(result.Outcomes) == 0 {
		fmt.Fprintln(w, "No outcomes.")
	}
	for _, o := range result.Outcomes {
		fmt.Fprintf(w, "  seq %d: %s\n", o.Seq, o.Outcome)
	}

	if result.Verified == nil {
		return nil
	}
	fmt.Fprintln(w)
	if *result.Verified {
		_, err := fmt.Fprintf(w, "✓ Replay matches %d recorded outcome(s)\n", result.Recorded)
		return err
	}
	fmt.Fprintln(w, "✗ Replay differs from the capture")
	for _, m := range result.Mismatches {
		fmt.Fprintf(w, "  %s\n", m)
	}
	return nil
}
