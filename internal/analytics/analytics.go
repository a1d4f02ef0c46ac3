package analytics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"lifesim/internal/storage"
)

// DailyStats summarizes simulation usage for one day.
type DailyStats struct {
	Date             string         `json:"date"`
	TotalSimulations int            `json:"total_simulations"`
	Completed        int            `json:"completed"`
	Failed           int            `json:"failed"`
	UniqueSessions   int            `json:"unique_sessions"`
	TotalTokens      int            `json:"total_tokens"`
	AvgDurationMs    int64          `json:"avg_duration_ms"`
	ByChannel        map[string]int `json:"by_channel"`
	ByRiskTolerance  map[string]int `json:"by_risk_tolerance"`
	FailuresByKind   map[string]int `json:"failures_by_kind"`
}

// AnalyzeDailyLogs aggregates the events that fall on targetDate in its location.
func AnalyzeDailyLogs(events []storage.Event, targetDate time.Time) *DailyStats {
	startOfDay := time.Date(targetDate.Year(), targetDate.Month(), targetDate.Day(), 0, 0, 0, 0, targetDate.Location())
	endOfDay := startOfDay.Add(24 * time.Hour)

	stats := &DailyStats{
		Date:            startOfDay.Format("2006-01-02"),
		ByChannel:       make(map[string]int),
		ByRiskTolerance: make(map[string]int),
		FailuresByKind:  make(map[string]int),
	}

	sessions := make(map[string]bool)
	var totalDuration int64
	for _, ev := range events {
		if ev.Timestamp.Before(startOfDay) || !ev.Timestamp.Before(endOfDay) {
			continue
		}
		stats.TotalSimulations++
		sessions[ev.Channel+":"+ev.SessionKey] = true
		stats.ByChannel[ev.Channel]++
		if ev.RiskTolerance != "" {
			stats.ByRiskTolerance[ev.RiskTolerance]++
		}
		stats.TotalTokens += ev.TotalTokens
		totalDuration += ev.DurationMs

		if ev.Outcome == storage.OutcomeError {
			stats.Failed++
			stats.FailuresByKind[ev.ErrorKind]++
		} else {
			stats.Completed++
		}
	}

	stats.UniqueSessions = len(sessions)
	if stats.TotalSimulations > 0 {
		stats.AvgDurationMs = totalDuration / int64(stats.TotalSimulations)
	}
	return stats
}

// GenerateReportSummary renders the stats as a short text report.
func (ds *DailyStats) GenerateReportSummary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "LifeSim usage for %s:\n\n", ds.Date)
	fmt.Fprintf(&b, "- Simulations: %d (completed %d, failed %d)\n", ds.TotalSimulations, ds.Completed, ds.Failed)
	fmt.Fprintf(&b, "- Unique sessions: %d\n", ds.UniqueSessions)
	fmt.Fprintf(&b, "- Tokens: %d\n", ds.TotalTokens)
	fmt.Fprintf(&b, "- Average latency: %dms\n", ds.AvgDurationMs)

	writeCounts(&b, "By channel", ds.ByChannel)
	writeCounts(&b, "By risk tolerance", ds.ByRiskTolerance)
	writeCounts(&b, "Failures", ds.FailuresByKind)
	return b.String()
}

func writeCounts(b *strings.Builder, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(b, "\n%s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(b, "- %s: %d\n", k, counts[k])
	}
}

// ToJSON serializes the stats for detailed inspection.
func (ds *DailyStats) ToJSON() (string, error) {
	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
