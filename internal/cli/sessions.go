package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/roamwatch/internal/store"
)

// SessionsOptions holds flags for the sessions command.
type SessionsOptions struct {
	*RootOptions
	Database string
}

// SessionView is the CLI rendering of a capture session.
type SessionView struct {
	ID            string    `json:"id"`
	StartedAt     time.Time `json:"started_at"`
	Adapter       string    `json:"adapter"`
	Interface     string    `json:"interface,omitempty"`
	Notifications int       `json:"notifications"`
	Outcomes      int       `json:"outcomes"`
}

func newSessionView(s store.Session) SessionView {
	return SessionView{
		ID:            s.ID,
		StartedAt:     s.StartedAt,
		Adapter:       s.Adapter,
		Interface:     s.Interface,
		Notifications: s.Notifications,
		Outcomes:      s.Outcomes,
	}
}

// NewSessionsCommand creates the sessions command.
func NewSessionsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SessionsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List captured monitor sessions",
		Long: `List the sessions in a capture log, oldest first, with their
notification and outcome counts.

Examples:
  roamwatch sessions --db ./roamwatch.db
  roamwatch sessions --db ./roamwatch.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessions(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite capture log (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runSessions(opts *SessionsOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := os.Stat(opts.Database); err != nil {
		return WrapExitError(ExitCommandError, "capture log not found", err)
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open capture log", err)
	}
	defer st.Close()

	sessions, err := st.ListSessions(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list sessions", err)
	}
	views := make([]SessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, newSessionView(s))
	}

	if opts.Format == "json" {
		return opts.formatter(cmd).Success(views)
	}

	w := cmd.OutOrStdout()
	if len(views) == 0 {
		_, err := fmt.Fprintln(w, "No sessions captured.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tSTARTED\tADAPTER\tINTERFACE\tNOTIFICATIONS\tOUTCOMES")
	for _, v := range views {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\n",
			v.ID, v.StartedAt.Local().Format(time.DateTime), v.Adapter, v.Interface, v.Notifications, v.Outcomes)
	}
	return tw.Flush()
}
