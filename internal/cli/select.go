package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	verrors "github.com/matzehuels/vizframe/pkg/errors"
)

// selectCommand lets the user pick a reference frame and shows the plugin
// poses relative to it.
func (c *CLI) selectCommand() *cobra.Command {
	var (
		flags recordingFlags
		frame string
	)

	cmd := &cobra.Command{
		Use:   "select",
		Short: "Pick a reference frame and show plugin poses in it",
		Long: `Pick the reference frame interactively and show every plugin pose expressed
in it. Pass --frame to skip the picker.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			at, err := parseTime(flags.at)
			if err != nil {
				return err
			}
			s, err := c.openSession(ctx)
			if err != nil {
				return err
			}
			if _, err := s.replay(ctx, s.storeURL(flags.store), at); err != nil {
				return err
			}

			if frame == "" {
				final, err := tea.NewProgram(NewFrameListModel(s.view.Snapshot()), tea.WithContext(ctx)).Run()
				if err != nil {
					return fmt.Errorf("frame picker: %w", err)
				}
				frame = final.(FrameListModel).Selected
				if frame == "" {
					return nil
				}
			}
			if err := verrors.ValidateFrameName(frame); err != nil {
				return err
			}

			s.view.RequestReferenceFrame(frame)
			if err := s.view.Process(at); err != nil {
				return err
			}
			snap := s.view.Snapshot()
			printSuccess(out, "reference frame %s", frame)
			if len(snap.Plugins) > 0 {
				fmt.Fprintln(out, pluginsTable(snap))
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&frame, "frame", "", "reference frame to select without the picker")
	return cmd
}
