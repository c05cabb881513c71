package cli

import (
	"context"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/vizframe/pkg/pose"
	"github.com/matzehuels/vizframe/pkg/render/dot"
	"github.com/matzehuels/vizframe/pkg/store"
	"github.com/matzehuels/vizframe/pkg/transform"
	"github.com/matzehuels/vizframe/pkg/view"
)

// followListener prints pose updates as they happen during a replay.
type followListener struct {
	view.NopListener
	w  io.Writer
	at time.Time
}

func (l *followListener) OnPoseUpdated(_ view.PluginID, name string, p pose.Pose) {
	fmt.Fprintf(l.w, "%s  %-16s %s\n", StyleDim.Render(l.at.Format(dot.TimeFormat)), name, formatPose(p))
}

func (l *followListener) OnError(err error) {
	printError(l.w, "%v", err)
}

// replayCommand replays a recording into the session's plugins.
func (c *CLI) replayCommand() *cobra.Command {
	var (
		flags  recordingFlags
		follow bool
	)

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay a recording and show where the plugins end up",
		Long: `Replay a recording into the plugins of a session.

With --follow the view is processed at every recorded sample time and each
plugin pose change is printed as it happens.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			at, err := parseTime(flags.at)
			if err != nil {
				return err
			}

			listener := &followListener{w: out}
			var opts []view.Option
			if follow {
				opts = append(opts, view.WithListener(listener))
			}
			s, err := c.openSession(ctx, opts...)
			if err != nil {
				return err
			}
			url := s.storeURL(flags.store)
			if url == "" {
				return fmt.Errorf("no recording: pass --store or set [store] url")
			}

			prog := newProgress(s.logger)
			spin := newSpinnerWithContext(ctx, "replaying "+url)
			spin.Start()
			res, times, err := replayRecording(ctx, s, url, at)
			spin.Stop()
			if err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Replayed %d samples", res.Pushed))

			if follow {
				for _, t := range times {
					listener.at = t
					if err := s.view.Process(t); err != nil {
						return err
					}
				}
			}
			if err := s.view.Process(at); err != nil {
				return err
			}

			printReplay(out, res)
			snap := s.view.Snapshot()
			if len(snap.Plugins) == 0 {
				printWarning(out, "session has no plugins")
				return nil
			}
			fmt.Fprintln(out, pluginsTable(snap))
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&follow, "follow", false, "print pose changes at every sample time")
	return cmd
}

// replayRecording pushes the recording into the session and returns the
// distinct dynamic sample times up to at, in order.
func replayRecording(ctx context.Context, s *session, url string, at time.Time) (store.ReplayResult, []time.Time, error) {
	st, err := store.Open(ctx, url)
	if err != nil {
		return store.ReplayResult{}, nil, err
	}
	defer st.Close()

	samples, err := st.Load(ctx)
	if err != nil {
		return store.ReplayResult{}, nil, err
	}
	var times []time.Time
	for _, smp := range samples {
		if smp.Kind != transform.KindDynamic || (!at.IsZero() && smp.Time.After(at)) {
			continue
		}
		times = append(times, smp.Time)
	}
	slices.SortFunc(times, func(a, b time.Time) int { return a.Compare(b) })
	times = slices.CompactFunc(times, func(a, b time.Time) bool { return a.Equal(b) })

	res, err := store.Replay(ctx, st, s.view, store.ReplayOptions{Until: at, Logger: s.logger})
	if err != nil && ctx.Err() != nil {
		return res, nil, err
	}
	return res, times, nil
}
