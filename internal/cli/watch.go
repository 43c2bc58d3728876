package cli

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/spf13/cobra"
)

func newWatchCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Hold the notification channel open and report cache invalidations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := &lockedWriter{w: cmd.OutOrStdout()}

			gate := e.runtime.NewGate(e.opts.Connector)
			e.runtime.Notifications.OnInvalidate(func(generation uint64, reason string) {
				fmt.Fprintf(out, "%s\tnotifications invalidated\tgeneration=%d\treason=%s\n",
					time.Now().Format(time.RFC3339), generation, reason)
			})

			runErr := make(chan error, 1)
			go func() { runErr <- gate.Run(ctx) }()

			if err := e.runtime.Session.Start(ctx); err != nil {
				gate.Close()
				<-runErr
				return err
			}
			if !e.runtime.Session.Authenticated() {
				gate.Close()
				<-runErr
				return errors.New("not signed in; run login first")
			}

			fmt.Fprintf(out, "Watching %s (Ctrl+C to stop)\n", gate.Topic(e.runtime.Session.Identity().ID))
			return <-runErr
		},
	}
}

// lockedWriter serializes writes from the notification worker and the command.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
