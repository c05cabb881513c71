package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/vizframe/pkg/render/dot"
)

// Export formats accepted by the dot command.
const (
	formatDOT = "dot"
	formatSVG = "svg"
	formatPNG = "png"
	formatPDF = "pdf"
)

// dotCommand exports the frame graph as a Graphviz diagram.
func (c *CLI) dotCommand() *cobra.Command {
	var (
		flags    recordingFlags
		output   string
		format   string
		detailed bool
	)

	cmd := &cobra.Command{
		Use:   "dot",
		Short: "Export the frame graph as DOT, SVG, PNG or PDF",
		Long: `Export the frame graph as a Graphviz diagram.

Static transformations are drawn solid, dynamic ones dashed and labeled with
their latest sample time. The reference frame is highlighted. PNG and PDF
output require rsvg-convert (librsvg).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)
			if format == "" {
				format = formatFromPath(output)
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

			snap := s.view.Snapshot()
			src := dot.ToDOT(snap.Edges, dot.Options{Reference: snap.Reference, Frames: snap.Frames, Detailed: detailed})
			data, err := export(src, format)
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			logger.Debug("diagram written", "path", output, "format", format, "bytes", len(data))
			printSuccess(cmd.ErrOrStderr(), "exported %d frames", len(snap.Frames))
			printFile(cmd.ErrOrStderr(), output)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "dot, svg, png or pdf (default from --output extension)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "label dynamic edges with their sample count")
	return cmd
}

func export(src, format string) ([]byte, error) {
	switch format {
	case formatDOT:
		return []byte(src), nil
	case formatSVG:
		return dot.RenderSVG(src)
	case formatPNG:
		return dot.RenderPNG(src, 2.0)
	case formatPDF:
		return dot.RenderPDF(src)
	}
	return nil, fmt.Errorf("unknown format %q (want dot, svg, png or pdf)", format)
}

// formatFromPath derives the export format from a file extension.
func formatFromPath(path string) string {
	for _, f := range []string{formatSVG, formatPNG, formatPDF} {
		if strings.HasSuffix(strings.ToLower(path), "."+f) {
			return f
		}
	}
	return formatDOT
}
