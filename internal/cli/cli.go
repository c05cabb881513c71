// Package cli implements the vizframe command-line interface.
package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/vizframe/pkg/buildinfo"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for display and tracing.
	appName = "vizframe"

	// defaultConfigFile is read when --config is not given and the file exists.
	defaultConfigFile = "vizframe.toml"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
}

// New creates a new CLI instance logging to w.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "vizframe tracks coordinate frames and places plugins in a shared scene",
		Long: `vizframe maintains a graph of coordinate frame transformations fed by static
configuration, recordings and live producers, and keeps visualization plugins
posed relative to a reference frame.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(withLogger(ctx, c.Logger))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "session file (default ./"+defaultConfigFile+" when present)")

	root.AddCommand(c.framesCommand())
	root.AddCommand(c.resolveCommand())
	root.AddCommand(c.dotCommand())
	root.AddCommand(c.replayCommand())
	root.AddCommand(c.selectCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.recordCommand())
	root.AddCommand(c.publishCommand())
	root.AddCommand(c.completionCommand())

	return root
}
