package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/imathwy/tbps/internal/health"
	"github.com/imathwy/tbps/internal/models"
	"github.com/imathwy/tbps/internal/search"
	"github.com/imathwy/tbps/internal/server"
)

func printResults(w io.Writer, sel server.Selector, resp *models.SearchResponse) {
	fmt.Fprintf(w, "Server:     %s\n", sel)
	fmt.Fprintf(w, "Parsed:     %s\n", resp.ExpressionParsed)
	fmt.Fprintf(w, "Processed:  %d\n", resp.TotalProcessed)
	if !resp.Success {
		fmt.Fprintln(w, "Backend reported an unsuccessful search.")
	}
	fmt.Fprintln(w)

	if len(resp.Results) == 0 {
		fmt.Fprintln(w, "No similar theorems found.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tNAME\tSCORE\tNODES")
	for i, r := range resp.Results {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", i+1, r.Name, r.ScorePercent(), r.NodeCount)
	}
	tw.Flush()

	fmt.Fprintln(w)
	for i, r := range resp.Results {
		fmt.Fprintf(w, "%2d. %s\n    %s\n", i+1, r.Name, r.Statement)
	}
}

func printFieldErrors(w io.Writer, fields []search.FieldError) {
	for _, f := range fields {
		fmt.Fprintf(w, "  %s: %s\n", f.Field, f.Message)
	}
}

func printHealth(w io.Writer, status health.Status) {
	ts := status.CheckedAt.Format(time.RFC3339)

	switch {
	case status.Phase == health.PhaseIdle:
		fmt.Fprintln(w, "No health information yet")
	case status.Err != nil:
		fmt.Fprintf(w, "%s  %-10s  offline: %s\n", ts, status.Server, status.Message)
	case status.Health != nil:
		h := status.Health
		fmt.Fprintf(w, "%s  %-10s  %s (v%s)  database=%s  lean=%s\n",
			ts, status.Server, levelLabel(h.Status),
			strings.TrimPrefix(h.Version, "v"),
			onOff(h.DatabaseConnected), onOff(h.LeanAvailable))
	}
}

func levelLabel(status models.HealthStatus) string {
	switch status.Level() {
	case models.HealthLevelHealthy:
		return "healthy"
	case models.HealthLevelDegraded:
		return "degraded"
	default:
		return fmt.Sprintf("unhealthy (%s)", status)
	}
}

func onOff(ok bool) string {
	if ok {
		return "up"
	}
	return "down"
}

func printExamples(w io.Writer, examples []search.Example) {
	for i, ex := range examples {
		fmt.Fprintf(w, "%2d. %s\n    %s\n", i+1, ex.Name, ex.Expression)
	}
}

func printHistory(w io.Writer, events []models.SearchEvent) {
	if len(events) == 0 {
		fmt.Fprintln(w, "No searches recorded.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tSERVER\tOUTCOME\tRESULTS\tDURATION\tEXPRESSION")
	for _, e := range events {
		outcome := string(e.Outcome)
		if e.Message != "" {
			outcome += ": " + e.Message
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%dms\t%s\n",
			e.CreatedAt.Local().Format(time.DateTime), e.Server, outcome, e.ResultCount, e.DurationMs, truncate(e.Expression, 60))
	}
	tw.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
