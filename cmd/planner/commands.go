package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/ldi/planner/internal/config"
	"github.com/ldi/planner/internal/mcp"
	"github.com/ldi/planner/internal/server"
	"github.com/ldi/planner/internal/storage/csvfile"
	"github.com/ldi/planner/internal/tracker"
	"github.com/ldi/planner/internal/ui/components"
	"github.com/ldi/planner/pkg/models"
)

const viewWidth = 80

func (a *app) initCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Create .planner/ with a default config and an empty task file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			targetDir := "."
			if len(args) > 0 {
				targetDir = args[0]
			}
			force, _ := cmd.Flags().GetBool("force")
			return runInit(cmd, targetDir, force)
		},
	}
	cmd.Flags().Bool("force", false, "Overwrite an existing config file")
	return cmd
}

func runInit(cmd *cobra.Command, targetDir string, force bool) error {
	out := cmd.OutOrStdout()
	plannerDir := filepath.Join(targetDir, config.DefaultDir)
	if err := os.MkdirAll(plannerDir, 0755); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", config.DefaultDir, err)
	}
	fmt.Fprintf(out, "✓ Created %s/ directory\n", config.DefaultDir)

	gitignorePath := filepath.Join(plannerDir, ".gitignore")
	if err := os.WriteFile(gitignorePath, []byte("planner.db*\n"), 0644); err != nil {
		return fmt.Errorf("failed to create .gitignore: %w", err)
	}

	configPath := filepath.Join(plannerDir, config.DefaultFile)
	if _, err := os.Stat(configPath); err == nil && !force {
		fmt.Fprintf(out, "• Kept existing %s\n", configPath)
	} else {
		if err := config.WriteDefault(configPath); err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Wrote %s\n", configPath)
	}

	taskPath := filepath.Join(targetDir, config.DefaultConfig().Storage.Path)
	if _, err := os.Stat(taskPath); err == nil {
		fmt.Fprintf(out, "• Kept existing %s\n", taskPath)
	} else {
		if err := csvfile.New(taskPath).Save(cmd.Context(), &models.Snapshot{}); err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Created %s\n", taskPath)
	}

	fmt.Fprintln(out, "✓ Planner initialized successfully")
	return nil
}

func (a *app) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				cfg.Server.Addr = addr
			}
			logger, err := a.logger(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			if !a.verbose {
				gin.SetMode(gin.ReleaseMode)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			m, closeStore, err := openManager(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			return serve(ctx, server.NewServer(m, logger), cfg.Server.Addr, logger)
		},
	}
	cmd.Flags().String("addr", "", "Address to listen on (overrides server.addr)")
	return cmd
}

// serve runs srv until ctx is cancelled, then shuts it down gracefully.
func serve(ctx context.Context, srv *server.Server, addr string, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *app) mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the MCP tools on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withManager(cmd, func(m *tracker.Manager, logger *slog.Logger) error {
				logger.Debug("serving mcp on stdio")
				return mcp.Serve(mcp.NewServer(m))
			})
		},
	}
}

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "list [tasks|epics|subtasks]",
		Short:     "List items, all kinds by default",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"tasks", "epics", "subtasks"},
		RunE: func(cmd *cobra.Command, args []string) error {
			which := ""
			if len(args) > 0 {
				which = args[0]
			}
			return a.withManager(cmd, func(m *tracker.Manager, _ *slog.Logger) error {
				var rows []models.Item
				if which == "" || which == "tasks" {
					rows = append(rows, asItems(m.Tasks())...)
				}
				if which == "" || which == "epics" {
					rows = append(rows, asItems(m.Epics())...)
				}
				if which == "" || which == "subtasks" {
					rows = append(rows, asItems(m.Subtasks())...)
				}
				printTable(cmd, rows)
				return nil
			})
		},
	}
}

func printTable(cmd *cobra.Command, rows []models.Item) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-6s %-8s %-30s %-12s %s\n", "ID", "TYPE", "TITLE", "STATUS", "SCHEDULE")
	fmt.Fprintln(out, "--------------------------------------------------------------------------------")
	for _, it := range rows {
		f := it.Fields()
		fmt.Fprintf(out, "%-6d %-8s %-30s %-12s %s\n", f.ID, it.Ref().Kind, components.Truncate(f.Title, 30), f.Status, components.Schedule(it))
	}
}

func (a *app) prioritizedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prioritized",
		Short: "Show scheduled tasks and subtasks by start time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withManager(cmd, func(m *tracker.Manager, _ *slog.Logger) error {
				l := components.NewItemList("Prioritized", viewWidth, m.Prioritized())
				l.Placeholder = "Nothing scheduled"
				fmt.Fprintln(cmd.OutOrStdout(), l.View())
				return nil
			})
		},
	}
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Summarize items by kind and status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withManager(cmd, func(m *tracker.Manager, _ *slog.Logger) error {
				s := components.NewSummary(viewWidth)
				s.Add(asItems(m.Tasks())...)
				s.Add(asItems(m.Epics())...)
				s.Add(asItems(m.Subtasks())...)
				if next := nextUp(m.Prioritized(), time.Now()); next != nil {
					s.SetNext(next)
				}
				fmt.Fprintln(cmd.OutOrStdout(), s.View())
				return nil
			})
		},
	}
}

// nextUp returns the first scheduled item that is not done and has not ended by now.
func nextUp(prioritized []models.Item, now time.Time) models.Item {
	for _, it := range prioritized {
		f := it.Fields()
		if f.Status == models.StatusDone {
			continue
		}
		if end := f.EndTime(); end != nil && !end.After(now) {
			continue
		}
		return it
	}
	return nil
}

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one item; epics include their subtasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.withManager(cmd, func(m *tracker.Manager, _ *slog.Logger) error {
				item := find(m, id)
				if item == nil {
					return fmt.Errorf("no item with id %d", id)
				}
				out := cmd.OutOrStdout()
				f := item.Fields()
				fmt.Fprintf(out, "%s %s %s\n", components.StatusIcon(f.Status), item.Ref(), f.Title)
				fmt.Fprintf(out, "Status:      %s\n", f.Status)
				if f.Description != "" {
					fmt.Fprintf(out, "Description: %s\n", f.Description)
				}
				if when := components.Schedule(item); when != "" {
					fmt.Fprintf(out, "Schedule:    %s\n", when)
				}
				switch v := item.(type) {
				case *models.Subtask:
					fmt.Fprintf(out, "Epic:        %d\n", v.EpicID)
				case *models.Epic:
					l := components.NewItemList("Subtasks", viewWidth, asItems(m.EpicSubtasks(v.ID)))
					l.Placeholder = "No subtasks"
					fmt.Fprintln(out, l.View())
				}
				return nil
			})
		},
	}
}

type addFlags struct {
	title       string
	description string
	status      string
	start       string
	duration    time.Duration
	epic        int
}

func (a *app) addCmd() *cobra.Command {
	var f addFlags
	cmd := &cobra.Command{
		Use:       "add task|epic|subtask",
		Short:     "Create an item",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"task", "epic", "subtask"},
		RunE: func(cmd *cobra.Command, args []string) error {
			common, err := f.common()
			if err != nil {
				return err
			}
			return a.withManager(cmd, func(m *tracker.Manager, logger *slog.Logger) error {
				created, err := create(cmd.Context(), m, args[0], common, f.epic)
				if created != nil {
					logger.Debug("created item", "ref", created.Ref())
					fmt.Fprintf(cmd.OutOrStdout(), "✓ Created %s\n", created.Ref())
				}
				return err
			})
		},
	}
	cmd.Flags().StringVar(&f.title, "title", "", "Title")
	cmd.Flags().StringVar(&f.description, "description", "", "Description")
	cmd.Flags().StringVar(&f.status, "status", string(models.StatusNew), "NEW, IN_PROGRESS or DONE (ignored for epics)")
	cmd.Flags().StringVar(&f.start, "start", "", "Start time as "+models.TimeLayout)
	cmd.Flags().DurationVar(&f.duration, "duration", 0, "Duration, e.g. 45m or 1h30m")
	cmd.Flags().IntVar(&f.epic, "epic", 0, "Parent epic id (subtasks only)")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func (f addFlags) common() (models.Common, error) {
	status, err := models.ParseStatus(f.status)
	if err != nil {
		return models.Common{}, err
	}
	start, err := models.ParseTime(f.start)
	if err != nil {
		return models.Common{}, err
	}
	return models.Common{
		Title:       f.title,
		Description: f.description,
		Status:      status,
		StartTime:   start,
		Duration:    f.duration,
	}, nil
}

// create returns a non-nil item whenever the item was committed, even if
// saving it failed.
func create(ctx context.Context, m *tracker.Manager, kind string, c models.Common, epicID int) (models.Item, error) {
	switch kind {
	case "task":
		t, err := m.CreateTask(ctx, models.Task{Common: c})
		if t == nil {
			return nil, err
		}
		return t, err
	case "epic":
		e, err := m.CreateEpic(ctx, models.NewEpic(c.Title, c.Description))
		if e == nil {
			return nil, err
		}
		return e, err
	case "subtask":
		if epicID == 0 {
			return nil, errors.New("--epic is required for subtasks")
		}
		s, err := m.CreateSubtask(ctx, models.Subtask{Common: c, EpicID: epicID})
		if err != nil && s == nil {
			return nil, err
		}
		if s == nil {
			return nil, fmt.Errorf("no epic with id %d", epicID)
		}
		return s, err
	}
	return nil, fmt.Errorf("unknown item type %q", kind)
}

func (a *app) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an item; deleting an epic deletes its subtasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.withManager(cmd, func(m *tracker.Manager, _ *slog.Logger) error {
				ctx := cmd.Context()
				var deleted bool
				switch {
				case m.Lookup(models.Ref{Kind: models.KindTask, ID: id}) != nil:
					deleted, err = m.DeleteTask(ctx, id)
				case m.Lookup(models.Ref{Kind: models.KindEpic, ID: id}) != nil:
					deleted, err = m.DeleteEpic(ctx, id)
				case m.Lookup(models.Ref{Kind: models.KindSubtask, ID: id}) != nil:
					deleted, err = m.DeleteSubtask(ctx, id)
				default:
					return fmt.Errorf("no item with id %d", id)
				}
				if deleted {
					fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted %d\n", id)
				}
				return err
			})
		},
	}
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// find returns the item with id, whatever its kind.
func find(m *tracker.Manager, id int) models.Item {
	if t := m.GetTask(id); t != nil {
		return t
	}
	if e := m.GetEpic(id); e != nil {
		return e
	}
	if s := m.GetSubtask(id); s != nil {
		return s
	}
	return nil
}

func asItems[T any, P interface {
	*T
	models.Item
}](values []T) []models.Item {
	out := make([]models.Item, 0, len(values))
	for i := range values {
		out = append(out, P(&values[i]))
	}
	return out
}
