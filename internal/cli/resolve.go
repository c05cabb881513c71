package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	verrors "github.com/matzehuels/vizframe/pkg/errors"
)

// resolveCommand prints the pose of one frame in another.
func (c *CLI) resolveCommand() *cobra.Command {
	var (
		flags  recordingFlags
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "resolve SOURCE TARGET",
		Short: "Print the pose of SOURCE expressed in TARGET",
		Example: `  vizframe resolve laser world
  vizframe resolve laser world --store run.jsonl --at 2024-05-01T12:00:00Z`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			source, target := args[0], args[1]
			for _, name := range args {
				if err := verrors.ValidateFrameName(name); err != nil {
					return err
				}
			}
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

			p, ok := s.view.Graph().Resolve(source, target, at)
			if !ok {
				return verrors.New(verrors.ErrCodeNotFound, "no transformation from %s to %s", source, target)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(p)
			}
			printKeyValue(out, "source", source)
			printKeyValue(out, "target", target)
			printKeyValue(out, "translation", fmt.Sprintf("%.6f %.6f %.6f", p.Translation[0], p.Translation[1], p.Translation[2]))
			printKeyValue(out, "rotation", fmt.Sprintf("w=%.6f x=%.6f y=%.6f z=%.6f", p.Rotation.W, p.Rotation.V[0], p.Rotation.V[1], p.Rotation.V[2]))
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the pose as JSON")
	return cmd
}
