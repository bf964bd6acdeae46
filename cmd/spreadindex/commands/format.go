package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/wonny/spreadindex/internal/contracts"
	"github.com/wonny/spreadindex/internal/service"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// every command prints through these so reports look the same
// ═══════════════════════════════════════════════════════════

const (
	doubleRule = "═══════════════════════════════════════════════════════════"
	singleRule = "───────────────────────────────────────────────────────────"
)

// printHeader prints a titled block
func printHeader(w io.Writer, title string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, doubleRule)
	fmt.Fprintf(w, "  %s\n", title)
	fmt.Fprintln(w, singleRule)
}

// printKeyValue prints an aligned key-value pair
func printKeyValue(w io.Writer, key string, value string) {
	fmt.Fprintf(w, "  %-12s : %s\n", key, value)
}

// printSuccess prints a success message
func printSuccess(w io.Writer, message string) {
	fmt.Fprintf(w, "✅ %s\n", message)
}

// printWarning prints a warning message
func printWarning(w io.Writer, message string) {
	fmt.Fprintf(w, "⚠️  %s\n", message)
}

// printList prints a bulleted list
func printList(w io.Writer, items []string) {
	for _, item := range items {
		fmt.Fprintf(w, "   • %s\n", item)
	}
}

// printRunSummary prints the outcome of one index run
func printRunSummary(w io.Writer, res *service.Result) {
	s := res.Summary
	printHeader(w, "Index run: "+s.Strategy)
	printKeyValue(w, "Run ID", res.RunID)
	printKeyValue(w, "Period", fmt.Sprintf("%s ~ %s", s.Start.Format(contracts.DateLayout), s.End.Format(contracts.DateLayout)))
	printKeyValue(w, "Dates", fmt.Sprintf("%d (%d rebalances)", s.Dates, s.Rebalances))
	printKeyValue(w, "Final level", fmt.Sprintf("%.4f", s.FinalLevel))
	printKeyValue(w, "Config hash", res.ConfigHash[:12])
	printKeyValue(w, "Elapsed", s.Duration.Round(time.Millisecond).String())
	if res.Persisted {
		printKeyValue(w, "Persisted", "yes")
	}
	fmt.Fprintln(w, singleRule)
}

// parseDateFlag parses an optional YYYY-MM-DD flag value
func parseDateFlag(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := contracts.ParseDay(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s %q (expected YYYY-MM-DD)", name, value)
	}
	return t, nil
}

// maskPassword hides the password in a postgres URL for display
func maskPassword(url string) string {
	at := strings.LastIndex(url, "@")
	scheme := strings.Index(url, "://")
	if at < 0 || scheme < 0 {
		return url
	}
	creds := url[scheme+3 : at]
	colon := strings.Index(creds, ":")
	if colon < 0 {
		return url
	}
	return url[:scheme+3] + creds[:colon] + ":***" + url[at:]
}
