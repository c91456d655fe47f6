package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/DevN0mad/FreedcampMCP/internal/config"
	"github.com/DevN0mad/FreedcampMCP/internal/core"
	"github.com/DevN0mad/FreedcampMCP/internal/models"
	"github.com/DevN0mad/FreedcampMCP/internal/storage"
	"github.com/DevN0mad/FreedcampMCP/internal/tools"
)

var (
	colorRed    = color.New(color.FgRed)
	colorGreen  = color.New(color.FgGreen)
	colorYellow = color.New(color.FgYellow)
	colorBold   = color.New(color.Bold)
)

// cli общее состояние команд.
type cli struct {
	out     io.Writer
	errOut  io.Writer
	cfgFile string
	verbose bool
	timeout time.Duration

	cfg    config.Config
	logger *slog.Logger
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	c := &cli{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:           "op",
		Short:         "Freedcamp MCP operator tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}
			return c.load()
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)
	root.PersistentFlags().StringVar(&c.cfgFile, "config", "", "config file (default: defaults and environment)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log to stderr at debug level")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", 2*time.Minute, "overall command timeout")

	root.AddCommand(
		c.healthCmd(),
		c.toolsCmd(),
		c.callCmd(),
		c.reportCmd(),
		c.journalCmd(),
	)
	return root
}

func (c *cli) load() error {
	var level slog.LevelVar
	opts := config.LogOpts{Level: "error", Format: "text"}
	if c.verbose {
		opts.Level = "debug"
	}
	c.logger = config.NewLogger(c.errOut, opts, &level)

	m, err := config.NewManager(c.cfgFile, c.logger)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	c.cfg = m.Current()
	return nil
}

func (c *cli) newContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), c.timeout)
}

func (c *cli) toolkit() (*core.Toolkit, error) {
	return core.NewToolkit(c.cfg, c.logger)
}

func (c *cli) healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the API key can reach Freedcamp",
		RunE: func(cmd *cobra.Command, args []string) error {
			tk, err := c.toolkit()
			if err != nil {
				return err
			}
			ctx, cancel := c.newContext()
			defer cancel()

			me, err := tk.Service.GetCurrentUser(ctx, tools.NoParams{})
			if err != nil {
				colorRed.Fprintf(c.out, "✗ %s unreachable: %s\n", c.cfg.Freedcamp.BaseURL, tools.FailureOf(err).Message)
				return errors.New("health check failed")
			}
			colorGreen.Fprintf(c.out, "✓ %s reachable", c.cfg.Freedcamp.BaseURL)
			fmt.Fprintf(c.out, " as %s (user %s)\n", me.User.FullName, me.User.UserID)
			return nil
		},
	}
}

func (c *cli) toolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tools exposed to MCP clients",
		RunE: func(cmd *cobra.Command, args []string) error {
			tk, err := c.toolkit()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
			for _, t := range tk.Registry.Tools() {
				kind := "write"
				switch {
				case t.ReadOnly:
					kind = "read"
				case t.Destructive:
					kind = "destructive"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", t.Name, kind, t.Title)
			}
			return w.Flush()
		},
	}
}

func (c *cli) callCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "call <tool> [json-arguments]",
		Short: "Invoke one tool and print its result",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tk, err := c.toolkit()
			if err != nil {
				return err
			}
			raw := json.RawMessage("{}")
			if len(args) == 2 {
				raw = json.RawMessage(args[1])
			}
			ctx, cancel := c.newContext()
			defer cancel()

			res, err := tk.Registry.Call(ctx, args[0], raw)
			if err != nil {
				if errors.Is(err, tools.ErrUnknownTool) {
					return err
				}
				f := tools.FailureOf(err)
				colorRed.Fprintf(c.out, "✗ %s (%s)\n", f.Message, f.Category)
				return fmt.Errorf("tool %s failed", args[0])
			}
			if text, ok := res.(string); ok {
				fmt.Fprintln(c.out, text)
				return nil
			}
			enc := json.NewEncoder(c.out)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
}

func (c *cli) reportCmd() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Export open tasks to an xlsx report",
		RunE: func(cmd *cobra.Command, args []string) error {
			tk, err := c.toolkit()
			if err != nil {
				return err
			}
			ctx, cancel := c.newContext()
			defer cancel()

			path := outPath
			var stats []models.AssigneeStats
			if path == "" {
				p, report, err := tk.Reports.SaveXLSX(ctx)
				if err != nil {
					return err
				}
				path, stats = p, report.Stats
			} else {
				f, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("create %s: %w", path, err)
				}
				report, err := tk.Reports.WriteXLSX(ctx, f)
				if cerr := f.Close(); err == nil {
					err = cerr
				}
				if err != nil {
					return err
				}
				stats = report.Stats
			}

			c.printStats(stats)
			colorGreen.Fprintf(c.out, "✓ report saved to %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default: report.save_dir)")
	return cmd
}

func (c *cli) journalCmd() *cobra.Command {
	var (
		limit int
		since time.Duration
	)
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Show recent tool calls and per-tool failure counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.cfg.Journal.Path == "" {
				colorYellow.Fprintln(c.out, "journal is disabled (journal.path is empty)")
				return nil
			}
			j, err := storage.NewJournal(c.cfg.Journal.Path, c.logger)
			if err != nil {
				return err
			}
			defer j.Close()

			ctx, cancel := c.newContext()
			defer cancel()

			stats, err := j.Stats(ctx, time.Now().UTC().Add(-since))
			if err != nil {
				return err
			}
			colorBold.Fprintln(c.out, "Tool calls since", time.Now().Add(-since).Format(time.DateTime))
			w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
			for _, s := range stats {
				fmt.Fprintf(w, "%s\t%d\t%d failed\n", s.Tool, s.Calls, s.Failures)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			recent, err := j.Recent(ctx, limit)
			if err != nil {
				return err
			}
			colorBold.Fprintln(c.out, "\nRecent calls")
			for _, r := range recent {
				mark := colorGreen.Sprint("✓")
				if !r.Success {
					mark = colorRed.Sprint("✗")
				}
				line := fmt.Sprintf("%s %s %-22s %5dms %s", mark, r.CalledAt.Local().Format(time.DateTime), r.Tool, r.DurationMS, r.Transport)
				if r.Error != "" {
					line += "  " + strings.TrimSpace(r.Error)
				}
				fmt.Fprintln(c.out, line)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of recent calls")
	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "stats window")
	return cmd
}

func (c *cli) printStats(stats []models.AssigneeStats) {
	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	colorBold.Fprintln(w, "Assignee\tNot started\tIn progress\tOverdue\tDue soon\tDone today")
	for _, s := range stats {
		overdue := fmt.Sprint(s.Overdue)
		if s.Overdue > 0 {
			overdue = colorRed.Sprint(s.Overdue)
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%d\t%d\n", s.Name, s.NotStarted, s.InProgress, overdue, s.DueSoon, s.CompletedToday)
	}
	w.Flush()
}
