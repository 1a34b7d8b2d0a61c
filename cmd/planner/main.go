package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ldi/planner/internal/config"
	"github.com/ldi/planner/internal/logging"
	"github.com/ldi/planner/internal/ui"
)

// runMenu is swapped out in tests.
var runMenu = ui.RunMenu

// menuCommands are offered, in this order, when planner runs without a command.
var menuCommands = []string{"status", "list", "prioritized", "serve", "mcp", "init"}

// app holds the state shared by every command of one invocation.
type app struct {
	configPath string
	verbose    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "planner",
		Short: "Track tasks, epics and subtasks on a conflict-free schedule",
		Long: `planner keeps standalone tasks and epics made of subtasks, refuses
overlapping time slots and persists everything after each change.

Run without a command to pick one from a menu.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", config.DefaultPath(), "Path to config file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging")

	root.AddCommand(
		a.initCmd(),
		a.serveCmd(),
		a.mcpCmd(),
		a.listCmd(),
		a.prioritizedCmd(),
		a.statusCmd(),
		a.showCmd(),
		a.addCmd(),
		a.deleteCmd(),
	)

	root.RunE = func(cmd *cobra.Command, args []string) error {
		selected, err := runMenu(menuChoices(root))
		if err != nil {
			return fmt.Errorf("failed to run menu: %w", err)
		}
		if selected == "" {
			return nil
		}
		sub, _, err := root.Find([]string{selected})
		if err != nil || sub == root {
			return fmt.Errorf("unknown command: %s", selected)
		}
		sub.SetContext(cmd.Context())
		return sub.RunE(sub, nil)
	}

	return root
}

func menuChoices(root *cobra.Command) []ui.Choice {
	choices := make([]ui.Choice, 0, len(menuCommands))
	for _, name := range menuCommands {
		if sub, _, err := root.Find([]string{name}); err == nil && sub != root {
			choices = append(choices, ui.Choice{Name: sub.Name(), Help: sub.Short})
		}
	}
	return choices
}

func (a *app) loadConfig() (*config.Config, error) {
	return config.Load(a.configPath)
}

func (a *app) logger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	return logging.New(cfg.Log, a.verbose, w)
}
