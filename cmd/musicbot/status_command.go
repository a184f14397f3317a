package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"musicbot/internal/config"
	"musicbot/internal/daemon"
	"musicbot/internal/deps"
	"musicbot/internal/preflight"
)

const statusQueryTimeout = 3 * time.Second

type statusReport struct {
	Daemon       *daemon.Status     `json:"daemon,omitempty"`
	DaemonError  string             `json:"daemon_error,omitempty"`
	Checks       []preflight.Result `json:"checks"`
	Dependencies []deps.Status      `json:"dependencies"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, dependency, and readiness status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			report := buildStatusReport(cmd.Context(), cfg)
			if asJSON {
				return writeJSON(cmd, report)
			}
			renderStatusReport(cmd.OutOrStdout(), report, shouldColorize(cmd.OutOrStdout()))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func buildStatusReport(ctx context.Context, cfg *config.Config) statusReport {
	report := statusReport{
		Checks:       preflight.RunAll(ctx, cfg),
		Dependencies: preflight.CheckSystemDeps(ctx, cfg),
	}
	status, err := fetchDaemonStatus(ctx, cfg)
	if err != nil {
		report.DaemonError = err.Error()
	} else {
		report.Daemon = status
	}
	return report
}

// fetchDaemonStatus asks the daemon listening on bot.api_bind for its status.
func fetchDaemonStatus(ctx context.Context, cfg *config.Config) (*daemon.Status, error) {
	bind := strings.TrimSpace(cfg.Bot.APIBind)
	if bind == "" {
		return nil, fmt.Errorf("bot.api_bind is not set")
	}
	ctx, cancel := context.WithTimeout(ctx, statusQueryTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+bind+"/api/status", nil)
	if err != nil {
		return nil, err
	}
	if token := strings.TrimSpace(cfg.Bot.APIToken); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("daemon not reachable at %s", bind)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("daemon status returned %d", resp.StatusCode)
	}
	var status daemon.Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decode daemon status: %w", err)
	}
	return &status, nil
}

func renderStatusReport(out io.Writer, report statusReport, colorize bool) {
	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(out, line)
	}
	if report.Daemon == nil {
		fmt.Fprintln(out, renderStatusLine("musicbot", statusError, "Not running ("+report.DaemonError+")", colorize))
	} else {
		d := report.Daemon
		detail := fmt.Sprintf("Running (pid %d", d.PID)
		if !d.StartedAt.IsZero() {
			detail += ", since " + d.StartedAt.Local().Format(time.DateTime)
		}
		detail += ")"
		fmt.Fprintln(out, renderStatusLine("musicbot", statusOK, detail, colorize))
		fmt.Fprintln(out, renderStatusLine("Workspaces", statusInfo, strconv.Itoa(d.Workspaces), colorize))
		fmt.Fprintln(out, renderStatusLine("Admins", statusInfo, strconv.Itoa(d.Admins), colorize))
		fmt.Fprintln(out, renderStatusLine("Transcoder slots", statusInfo,
			fmt.Sprintf("%d/%d busy, %d waiting", d.Transcoder.Active, d.Transcoder.Capacity, d.Transcoder.Waiting), colorize))
	}
	fmt.Fprintln(out)

	for _, line := range renderSectionHeader("Readiness", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, line := range checkLines(report.Checks, colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out)

	for _, line := range renderSectionHeader("Dependencies", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, line := range dependencyLines(report.Dependencies, colorize) {
		fmt.Fprintln(out, line)
	}

	if report.Daemon == nil || len(report.Daemon.Commands) == 0 {
		return
	}
	fmt.Fprintln(out)
	for _, line := range renderSectionHeader("Commands", colorize) {
		fmt.Fprintln(out, line)
	}
	rows := make([][]string, 0, len(report.Daemon.Commands))
	for _, stat := range report.Daemon.Commands {
		rows = append(rows, []string{stat.Command, strconv.FormatInt(stat.Handled, 10), strconv.FormatInt(stat.Failed, 10)})
	}
	fmt.Fprint(out, renderTable([]string{"Command", "Handled", "Failed"}, rows, 1, 2))
}
