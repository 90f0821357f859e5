// storyforge is the CLI for the autonomous writing engine. It turns a
// natural-language goal into a task plan, executes it against the
// generation and retrieval services, and iterates on the result until
// the critic is satisfied.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"storyforge/internal/config"
	"storyforge/internal/logging"
)

var (
	// Global flags
	configPath string
	dataDir    string
	verbose    bool

	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "storyforge",
	Short: "Autonomous goal execution for long-form fiction",
	Long: `storyforge decomposes a writing goal into a dependency-ordered task
plan, executes it with the Gemini generation service and a local
knowledge store, and loops critique and improvement until the result
passes review.

Examples:
  storyforge run "write chapter 3 where Mara reaches the harbor"
  storyforge stream "write a tense scene in the engine room" --series embers
  storyforge threads forgotten --position 12
  storyforge feedback write-chapter --outcome negative --comment "too long"`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if dataDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("resolve home directory: %w", err)
			}
			dataDir = filepath.Join(home, ".storyforge")
		}
		if configPath == "" {
			configPath = filepath.Join(dataDir, "config.yaml")
		}

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		if _, err := logging.Init(level, verbose || cfg.Logging.Debug); err != nil {
			return fmt.Errorf("initialize logging: %w", err)
		}
		return nil
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: "+err.Error()))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default <data-dir>/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default ~/.storyforge)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
