package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"ioclens/core"

	"github.com/fatih/color"
)

// renderHistoryTable displays history summaries in a formatted table
func renderHistoryTable(w io.Writer, summaries []core.HistorySummary) {
	if len(summaries) == 0 {
		warningColor.Fprintln(w, "No analyses found")
		return
	}

	headerColor.Fprintln(w, "HISTORY")
	headerColor.Fprintln(w, strings.Repeat("=", 110))
	fmt.Fprintf(w, "%-8s %-50s %-11s %-9s %-16s\n", "ID", "URL", "Indicators", "Risk", "Analyzed")
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for _, s := range summaries {
		fmt.Fprintf(w, "%-8d %-50s %-11d %-9s %-16s\n",
			s.ID, truncate(s.URL, 50), s.Summary.TotalIndicators,
			s.Summary.HighestRiskLevel, formatTimeSince(parseTimestamp(s.CreatedAt)))
	}

	fmt.Fprintln(w, strings.Repeat("=", 110))
}

// renderRecord displays one analysis record grouped by category
func renderRecord(w io.Writer, record *core.AnalysisRecord) {
	headerColor.Fprintln(w, "═══════════════════════════════════════════════════════════════")
	headerColor.Fprintf(w, "  Analysis %d\n", record.ID)
	headerColor.Fprintln(w, "═══════════════════════════════════════════════════════════════")
	fmt.Fprintln(w)

	printSection(w, "Source")
	printField(w, "URL", record.URL)
	printField(w, "Analyzed", formatTime(parseTimestamp(record.CreatedAt)))
	if record.UserID != nil {
		printField(w, "Owner", fmt.Sprintf("%d", *record.UserID))
	}
	printField(w, "Indicators", fmt.Sprintf("%d", len(record.Indicators.Indicators)))
	printField(w, "Highest Risk", formatRisk(core.HighestRiskLevel(record.Indicators.Indicators)))
	fmt.Fprintln(w)

	if len(record.Indicators.Indicators) == 0 {
		warningColor.Fprintln(w, "  No indicators found")
		return
	}

	for _, cat := range record.Indicators.Categories {
		printSection(w, fmt.Sprintf("%s (%d)", cat.Name, cat.Count))
		for _, ind := range cat.Indicators {
			fmt.Fprintf(w, "  %-8s %s\n", formatRisk(ind.RiskLevel), ind.Value)
			if ind.Description != "" {
				fmt.Fprintf(w, "  %-8s %s\n", "", ind.Description)
			}
		}
		fmt.Fprintln(w)
	}
}

// renderQueries displays generated queries per platform
func renderQueries(w io.Writer, result *core.SearchQueryResult) {
	renderQueryList(w, "QRadar (AQL)", result.QRadar)
	renderQueryList(w, "Microsoft Sentinel (KQL)", result.Sentinel)
}

func renderQueryList(w io.Writer, title string, queries []core.QueryPair) {
	printSection(w, title)
	if len(queries) == 0 {
		warningColor.Fprintln(w, "  No queries generated")
		fmt.Fprintln(w)
		return
	}
	for i, q := range queries {
		infoColor.Fprintf(w, "  %d. %s\n", i+1, q.Name)
		fmt.Fprintf(w, "     %s\n", q.Query)
	}
	fmt.Fprintln(w)
}

// printSection prints a section header
func printSection(w io.Writer, title string) {
	headerColor.Fprintf(w, "  %s\n", title)
	headerColor.Fprintln(w, "  "+strings.Repeat("─", len([]rune(title))))
}

// printField prints a key-value field
func printField(w io.Writer, key, value string) {
	if value == "" {
		value = "(not set)"
	}
	fmt.Fprintf(w, "  %-15s %s\n", key+":", value)
}

// formatRisk returns a colored risk level
func formatRisk(level core.RiskLevel) string {
	switch level {
	case core.RiskLevelHigh:
		return color.New(color.FgRed, color.Bold).Sprint(string(level))
	case core.RiskLevelMedium:
		return color.New(color.FgYellow).Sprint(string(level))
	case core.RiskLevelLow:
		return color.New(color.FgGreen).Sprint(string(level))
	default:
		return string(level)
	}
}

// parseTimestamp reads stored timestamps; unparseable values yield the zero time
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// formatTime formats a timestamp
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "Unknown"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

// formatTimeSince formats time since a timestamp
func formatTimeSince(t time.Time) string {
	if t.IsZero() {
		return "Unknown"
	}

	duration := time.Since(t)
	if duration < time.Minute {
		return fmt.Sprintf("%ds ago", int(duration.Seconds()))
	}
	if duration < time.Hour {
		return fmt.Sprintf("%dm ago", int(duration.Minutes()))
	}
	if duration < 24*time.Hour {
		return fmt.Sprintf("%dh ago", int(duration.Hours()))
	}
	days := int(duration.Hours() / 24)
	if days == 1 {
		return "1 day ago"
	}
	return fmt.Sprintf("%d days ago", days)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
