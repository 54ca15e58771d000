package google

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"presupuesto/internal/core"
	"presupuesto/internal/export"
)

// tabName returns "<prefix> <YYYY-MM>".
func tabName(prefix string, month core.MonthKey) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return month.String()
	}
	return fmt.Sprintf("%s %s", prefix, month)
}

// monthFromTab is the inverse of tabName. Tabs that do not follow the
// pattern are ignored.
func monthFromTab(prefix, title string) (core.MonthKey, bool) {
	title = strings.TrimSpace(title)
	prefix = strings.TrimSpace(prefix)
	if prefix != "" {
		rest, ok := strings.CutPrefix(title, prefix+" ")
		if !ok {
			return "", false
		}
		title = rest
	}
	k, err := core.ParseMonthKey(title)
	if err != nil {
		return "", false
	}
	return k, true
}

// monthsFromTabs picks the month tabs out of a sheet title list, sorted.
func monthsFromTabs(prefix string, titles []string) []core.MonthKey {
	var out []core.MonthKey
	for _, t := range titles {
		if k, ok := monthFromTab(prefix, t); ok {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// monthValues lays out the tab of one month: a header, the totals and
// every entry list.
func monthValues(month core.MonthKey, s *core.Snapshot, generated time.Time) [][]any {
	rows := [][]string{
		{"Mes", month.String()},
		{"Actualizado", generated.Format("2006-01-02 15:04:05")},
		{},
	}
	rows = append(rows, export.SummaryRows(core.Summarize(month, s))...)
	rows = append(rows, []string{})
	rows = append(rows, export.EntryRows(s)...)
	return toValues(rows)
}

func toValues(rows [][]string) [][]any {
	out := make([][]any, len(rows))
	for i, row := range rows {
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = v
		}
		out[i] = cells
	}
	return out
}
