package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/stellarlinkco/clawdash/internal/activity"
	"github.com/stellarlinkco/clawdash/internal/api"
	"github.com/stellarlinkco/clawdash/internal/bridge"
	"github.com/stellarlinkco/clawdash/internal/bus"
	"github.com/stellarlinkco/clawdash/internal/channel"
	"github.com/stellarlinkco/clawdash/internal/config"
	"github.com/stellarlinkco/clawdash/internal/logger"
	"github.com/stellarlinkco/clawdash/internal/memory"
	"github.com/stellarlinkco/clawdash/internal/monitor"
)

// Options carries the dependencies a command needs, so tests can swap the
// CLI runner and the clock.
type Options struct {
	Runner bridge.Runner
	Now    func() time.Time
}

func main() {
	if err := newRootCmd(Options{}).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(opts Options) *cobra.Command {
	root := &cobra.Command{
		Use:          "clawdash",
		Short:        "clawdash - monitoring dashboard for an OpenClaw gateway",
		SilenceUsage: true,
	}

	root.AddCommand(
		newServeCmd(opts),
		newStatusCmd(opts),
		newActivityCmd(opts),
		newCronCmd(opts),
		newConfigCmd(opts),
		newAgentsCmd(opts),
		newMemoryCmd(opts),
		newOnboardCmd(),
	)
	return root
}

func loadService(opts Options) (*config.Config, *monitor.Service, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(cfg.Log); err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}

	var bopts []bridge.Option
	if opts.Runner != nil {
		bopts = append(bopts, bridge.WithRunner(opts.Runner))
	}
	b := bridge.New(cfg.OpenClaw.Command, bopts...)

	var mopts []monitor.Option
	if opts.Now != nil {
		mopts = append(mopts, monitor.WithClock(opts.Now))
	}
	return cfg, monitor.New(cfg, b, mopts...), nil
}

func newServeCmd(opts Options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard API and live updates",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, svc, err := loadService(opts)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, svc, cmd.OutOrStdout())
		},
	}
}

// serve runs the API server and the push loop until ctx is done.
func serve(ctx context.Context, cfg *config.Config, svc *monitor.Service, out io.Writer) error {
	hub := bus.NewHub()
	srv := api.NewServer(svc, cfg, hub)
	if err := srv.Start(ctx); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s listening on http://%s\n", cfg.Branding.Name, srv.Addr())

	done := make(chan error, 1)
	go func() { done <- svc.Watch(ctx, cfg.Server.PushInterval(), hub) }()

	<-ctx.Done()
	logger.Info().Msg("shutting down")
	err := srv.Stop()
	if werr := <-done; werr != nil && !errors.Is(werr, context.Canceled) {
		err = errors.Join(err, werr)
	}
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newStatusCmd(opts Options) *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show gateway status",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, svc, err := loadService(opts)
			if err != nil {
				return err
			}
			v, err := svc.Status(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !plain {
				return writeJSON(out, v)
			}
			fmt.Fprintf(out, "Health: %s\n", v.Health)
			fmt.Fprintf(out, "Version: %s\n", orDash(v.Version))
			fmt.Fprintf(out, "Gateway: reachable=%v %s\n", v.GatewayReachable, v.GatewayURL)
			fmt.Fprintf(out, "Uptime: %s\n", time.Duration(v.UptimeSeconds)*time.Second)
			if v.LastHeartbeatTime != nil {
				fmt.Fprintf(out, "Heartbeat: %s\n", humanize.RelTime(*v.LastHeartbeatTime, v.GeneratedAt, "ago", "from now"))
			} else {
				fmt.Fprintln(out, "Heartbeat: never")
			}
			fmt.Fprintf(out, "Sessions: %d\n", v.SessionCount)
			fmt.Fprintf(out, "CPU: %d%%  Memory: %d%% (%d MB)\n", v.CPUPercent, v.MemoryPercent, v.MemoryUsageMB)
			fmt.Fprintf(out, "Channels: %s\n", orDash(strings.Join(v.ActiveChannels, ", ")))
			if v.Stale {
				fmt.Fprintln(out, "(stale: showing last known data)")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "Print a human-readable summary instead of JSON")
	return cmd
}

func newActivityCmd(opts Options) *cobra.Command {
	var (
		typ, ch, search string
		page, pageSize  int
	)
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "List recent activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			var f activity.Filter
			if typ != "" && typ != "all" {
				t, ok := activity.ParseType(typ)
				if !ok {
					return fmt.Errorf("unknown activity type %q", typ)
				}
				f.Type = t
			}
			if c := strings.ToLower(ch); c != "" && c != "all" {
				if !channel.Known(c) {
					return fmt.Errorf("unknown channel %q", ch)
				}
				f.Channel = channel.Name(c)
			}
			f.Search = search
			f.Page = page
			f.PageSize = pageSize

			_, svc, err := loadService(opts)
			if err != nil {
				return err
			}
			v, err := svc.Activity(cmd.Context(), f)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), v)
		},
	}
	cmd.Flags().StringVar(&typ, "type", "", "Filter by activity type")
	cmd.Flags().StringVar(&ch, "channel", "", "Filter by channel")
	cmd.Flags().StringVar(&search, "search", "", "Case-insensitive text search")
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "Entries per page")
	return cmd
}

func newCronCmd(opts Options) *cobra.Command {
	return &cobra.Command{
		Use:   "cron",
		Short: "Show scheduled jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, svc, err := loadService(opts)
			if err != nil {
				return err
			}
			v, err := svc.Cron(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tSCHEDULE\tLAST\tNEXT\tSTATUS\tRATE")
			for _, j := range v.Jobs {
				last, next := "-", "-"
				if j.LastRun != nil {
					last = humanize.RelTime(*j.LastRun, v.GeneratedAt, "ago", "from now")
				}
				if j.NextRun != nil {
					next = humanize.RelTime(*j.NextRun, v.GeneratedAt, "ago", "from now")
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d%%\n", j.Name, j.Schedule, last, next, orDash(j.LastStatus), j.SuccessRate)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "%d jobs, %d enabled, %d failing\n", v.Overview.Total, v.Overview.Enabled, v.Overview.Failing)
			return nil
		},
	}
}

func newConfigCmd(opts Options) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the redacted gateway configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, svc, err := loadService(opts)
			if err != nil {
				return err
			}
			v, err := svc.Config(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), v.Config)
		},
	}
}

func newAgentsCmd(opts Options) *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List agents with session counts and recent tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, svc, err := loadService(opts)
			if err != nil {
				return err
			}
			v, err := svc.Agents(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tSESSIONS\tLAST ACTIVE")
			for _, a := range v.Agents {
				id := a.ID
				if a.Default {
					id += " *"
				}
				last := "-"
				if a.LastActive != nil {
					last = humanize.RelTime(*a.LastActive, v.GeneratedAt, "ago", "from now")
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", id, orDash(a.Name), a.SessionCount, last)
			}
			return tw.Flush()
		},
	}
}

func newMemoryCmd(opts Options) *cobra.Command {
	return &cobra.Command{
		Use:   "memory",
		Short: "Show memory notes and index stores",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, svc, err := loadService(opts)
			if err != nil {
				return err
			}
			v, err := svc.Memory(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Notes: %s (%d files, %s)\n", v.Notes.Root, len(v.Notes.Files), v.Notes.TotalSize)
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, f := range v.Notes.Files {
				fmt.Fprintf(tw, "  %s\t%s\t%s\t%d headings\n", f.Name, f.HumanSize, humanize.Time(f.ModTime), f.Headings)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if len(v.Today) > 0 {
				fmt.Fprintln(out, "Today:")
				for _, h := range v.Today {
					fmt.Fprintf(out, "  %s %s\n", strings.Repeat("#", h.Level), h.Text)
				}
			}
			for _, s := range v.Stores {
				fmt.Fprintf(out, "Store %s: %s files, %s chunks, dirty=%v\n",
					s.AgentID, humanize.Comma(s.Files), humanize.Comma(s.Chunks), s.Dirty)
			}
			return nil
		},
	}
}

func newOnboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "onboard",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			cfgPath := config.ConfigPath()
			if _, err := os.Stat(cfgPath); err == nil {
				fmt.Fprintf(out, "Config already exists: %s\n", cfgPath)
				return nil
			} else if !os.IsNotExist(err) {
				return fmt.Errorf("stat config: %w", err)
			}

			cfg := config.DefaultConfig()
			if err := config.SaveConfig(cfg); err != nil {
				return fmt.Errorf("write config: %w", err)
			}
			fmt.Fprintf(out, "Created config: %s\n", cfgPath)

			notes := filepath.Join(cfg.Workspace, memory.DailyDir)
			if _, err := os.Stat(notes); err != nil {
				fmt.Fprintf(out, "Workspace notes not found at %s; set CLAWDASH_WORKSPACE if OpenClaw lives elsewhere\n", notes)
			}
			fmt.Fprintln(out, "\nNext steps:")
			fmt.Fprintf(out, "  1. Edit %s to point at your openclaw binary\n", cfgPath)
			fmt.Fprintln(out, "  2. Run 'clawdash serve'")
			return nil
		},
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
