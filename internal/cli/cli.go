// Package cli implements the jigsaw command-line tools.
//
// Three command trees share one CLI value and its logger:
//   - RootCommand: jigsaw, cuts an image into pieces on this machine
//   - ControllerCommand: jigsaw-controller, submits a cut to a cluster
//   - BenchCommand: jigsaw-bench, cuts every PNG in a directory
//
// All of them accept --verbose (-v) for debug logging.
package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// Log levels exported for use in main packages.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// SetVersion records the build information shown by --version. Main packages
// call it with values injected through ldflags.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

func versionTemplate(name string) string {
	return fmt.Sprintf("%s %s\ncommit: %s\nbuilt: %s\n", name, version, commit, date)
}

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a CLI whose logger writes to w.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// withVerbose adds the persistent --verbose flag to root and applies it
// before any command runs.
func (c *CLI) withVerbose(root *cobra.Command) *cobra.Command {
	var verbose bool
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if verbose {
			c.SetLogLevel(LogDebug)
		}
		log.SetDefault(c.Logger)
	}
	return root
}

func (c *CLI) versionCommand(name string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), versionTemplate(name))
		},
	}
}
