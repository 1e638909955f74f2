package report

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/metapath/metapath/internal/logging"
)

const topN = 5

type Summary struct {
	Total         int            `json:"total"`
	Start         time.Time      `json:"start"`
	End           time.Time      `json:"end"`
	ByKind        []CountItem    `json:"by_kind"`
	ByStatus      []CountItem    `json:"by_status"`
	Lookups       int            `json:"lookups"`
	CacheHits     int            `json:"cache_hits"`
	CacheHitRatio float64        `json:"cache_hit_ratio"`
	RateLimited   int            `json:"rate_limited"`
	IndexErrors   int            `json:"index_errors"`
	TopMissed     []CountItem    `json:"top_missed"`
	TopErrorFiles []CountItem    `json:"top_error_files"`
	Latency       LatencySummary `json:"latency"`
}

type CountItem struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

type LatencySummary struct {
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

type Reader struct {
	Since time.Time
}

func (r *Reader) Read(path string) ([]logging.Event, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var events []logging.Event
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var e logging.Event
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
		if !r.Since.IsZero() && e.Timestamp.Before(r.Since) {
			continue
		}
		events = append(events, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func Summarize(events []logging.Event) Summary {
	var summary Summary
	if len(events) == 0 {
		return summary
	}

	summary.Start = events[0].Timestamp
	summary.End = events[0].Timestamp

	kindCounts := map[string]int{}
	statusCounts := map[string]int{}
	missedCounts := map[string]int{}
	errorFileCounts := map[string]int{}
	latencies := make([]int64, 0, len(events))

	for _, e := range events {
		summary.Total++
		if e.Timestamp.Before(summary.Start) {
			summary.Start = e.Timestamp
		}
		if e.Timestamp.After(summary.End) {
			summary.End = e.Timestamp
		}

		kindCounts[string(e.Kind)]++
		if e.Status != 0 {
			statusCounts[strconv.Itoa(e.Status)]++
		}

		switch e.Kind {
		case logging.EventLookup:
			summary.Lookups++
			if e.CacheHit {
				summary.CacheHits++
			}
			if e.Status == 404 {
				missedCounts[e.Library+":"+e.Path]++
			}
			latencies = append(latencies, e.DurationMS)
		case logging.EventNormalize:
			latencies = append(latencies, e.DurationMS)
		case logging.EventRateLimited:
			summary.RateLimited++
		case logging.EventIndexError:
			summary.IndexErrors++
			errorFileCounts[e.RawPath]++
		}
	}

	if summary.Lookups > 0 {
		summary.CacheHitRatio = float64(summary.CacheHits) / float64(summary.Lookups)
	}
	summary.ByKind = topCounts(kindCounts, len(kindCounts))
	summary.ByStatus = topCounts(statusCounts, len(statusCounts))
	summary.TopMissed = topCounts(missedCounts, topN)
	summary.TopErrorFiles = topCounts(errorFileCounts, topN)
	summary.Latency = latencySummary(latencies)

	return summary
}

func topCounts(counts map[string]int, n int) []CountItem {
	items := make([]CountItem, 0, len(counts))
	for key, count := range counts {
		items = append(items, CountItem{Key: key, Count: count})
	}
	if len(items) == 0 {
		return nil
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Count == items[j].Count {
			return items[i].Key < items[j].Key
		}
		return items[i].Count > items[j].Count
	})

	if len(items) > n {
		items = items[:n]
	}
	return items
}

func latencySummary(values []int64) LatencySummary {
	if len(values) == 0 {
		return LatencySummary{}
	}
	sorted := make([]int64, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	return LatencySummary{
		P50: percentile(sorted, 0.50),
		P95: percentile(sorted, 0.95),
		P99: percentile(sorted, 0.99),
	}
}

func percentile(values []int64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	idx := int(float64(len(values)-1) * p)
	if idx < 0 {
		idx = 0
	}
	if idx >= len(values) {
		idx = len(values) - 1
	}
	return float64(values[idx])
}

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#64b5f6")).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

// RenderText renders a plain summary. With styled set, section headers are
// colored for a terminal.
func RenderText(summary Summary, styled bool) string {
	header := func(s string) string { return s }
	muted := header
	if styled {
		header = func(s string) string { return headerStyle.Render(s) }
		muted = func(s string) string { return mutedStyle.Render(s) }
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", header("Totals"))
	fmt.Fprintf(&b, "Events: %d\n", summary.Total)
	if summary.Total > 0 {
		fmt.Fprintf(&b, "%s\n", muted(fmt.Sprintf("From %s to %s", summary.Start.Format(time.RFC3339), summary.End.Format(time.RFC3339))))
	}
	fmt.Fprintf(&b, "Lookups: %d (cache hit ratio %.1f%%)\n", summary.Lookups, summary.CacheHitRatio*100)
	fmt.Fprintf(&b, "Rate limited: %d\n", summary.RateLimited)
	fmt.Fprintf(&b, "Index errors: %d\n", summary.IndexErrors)
	fmt.Fprintf(&b, "Latency p50/p95/p99 (ms): %.0f/%.0f/%.0f\n", summary.Latency.P50, summary.Latency.P95, summary.Latency.P99)

	writeCounts(&b, header("By kind"), summary.ByKind)
	writeCounts(&b, header("By status"), summary.ByStatus)
	writeCounts(&b, header("Top missed paths"), summary.TopMissed)
	writeCounts(&b, header("Top erroring meta files"), summary.TopErrorFiles)

	return b.String()
}

func RenderMarkdown(summary Summary) string {
	var b strings.Builder
	b.WriteString("# Metapath Report\n\n")
	b.WriteString("## Totals\n\n")
	fmt.Fprintf(&b, "- Events: %d\n", summary.Total)
	fmt.Fprintf(&b, "- Lookups: %d\n", summary.Lookups)
	fmt.Fprintf(&b, "- Cache hit ratio: %.1f%%\n", summary.CacheHitRatio*100)
	fmt.Fprintf(&b, "- Rate limited: %d\n", summary.RateLimited)
	fmt.Fprintf(&b, "- Index errors: %d\n", summary.IndexErrors)
	fmt.Fprintf(&b, "- Latency p50/p95/p99 (ms): %.0f/%.0f/%.0f\n\n", summary.Latency.P50, summary.Latency.P95, summary.Latency.P99)

	writeCountsMarkdown(&b, "By kind", summary.ByKind)
	writeCountsMarkdown(&b, "By status", summary.ByStatus)
	writeCountsMarkdown(&b, "Top missed paths", summary.TopMissed)
	writeCountsMarkdown(&b, "Top erroring meta files", summary.TopErrorFiles)

	return b.String()
}

func RenderJSON(summary Summary) ([]byte, error) {
	return json.MarshalIndent(summary, "", "  ")
}

func writeCounts(b *strings.Builder, title string, items []CountItem) {
	if len(items) == 0 {
		fmt.Fprintf(b, "%s: none\n", title)
		return
	}
	fmt.Fprintf(b, "%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "- %s: %d\n", item.Key, item.Count)
	}
}

func writeCountsMarkdown(b *strings.Builder, title string, items []CountItem) {
	b.WriteString("## ")
	b.WriteString(title)
	b.WriteString("\n\n")
	if len(items) == 0 {
		b.WriteString("- none\n\n")
		return
	}
	for _, item := range items {
		fmt.Fprintf(b, "- `%s`: %d\n", item.Key, item.Count)
	}
	b.WriteString("\n")
}

// WriteOutput writes content to path, or to w when path is empty.
func WriteOutput(w io.Writer, path string, content []byte) error {
	if path == "" {
		_, err := io.Copy(w, bytes.NewReader(content))
		return err
	}
	return os.WriteFile(path, content, 0o600)
}
