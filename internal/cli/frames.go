package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// recordingFlags are shared by commands that replay a recording first.
type recordingFlags struct {
	store string
	at    string
}

func (f *recordingFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.store, "store", "s", "", "recording to replay (default: [store] url of the session)")
	cmd.Flags().StringVar(&f.at, "at", "", "evaluate at this time (RFC 3339, default: latest samples)")
}

// framesCommand lists the frames and edges known after replaying a recording.
func (c *CLI) framesCommand() *cobra.Command {
	var flags recordingFlags

	cmd := &cobra.Command{
		Use:   "frames",
		Short: "List coordinate frames and transformations",
		Long: `List the coordinate frames and transformations of a session.

Static transformations come from the session file; dynamic ones from the
recording given with --store or configured under [store].`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			at, err := parseTime(flags.at)
			if err != nil {
				return err
			}
			s, err := c.openSession(ctx)
			if err != nil {
				return err
			}
			res, err := s.replay(ctx, s.storeURL(flags.store), at)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			snap := s.view.Snapshot()
			if flags.store != "" || s.cfg.Store.URL != "" {
				printReplay(out, res)
			}
			printKeyValue(out, "reference", orDash(snap.Reference))
			printKeyValue(out, "frames", fmt.Sprintf("%d", len(snap.Frames)))
			if len(snap.Edges) == 0 {
				printWarning(out, "no transformations")
				return nil
			}
			fmt.Fprintln(out, edgesTable(snap))
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
