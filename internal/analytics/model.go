package analytics

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/idea-forge/internal/types"
	"github.com/montanaflynn/stats"
)

// HistoryDays is how far back generation history is kept
const HistoryDays = 30

// TopInterests is the length of MostCommonInterests
const TopInterests = 5

const dateLayout = "2006-01-02"

// MarketSizeBuckets counts ideas by total addressable market in billions of dollars:
// small < 1, medium 1 to 10 inclusive, large > 10.
type MarketSizeBuckets struct {
	Small  int `json:"small"`
	Medium int `json:"medium"`
	Large  int `json:"large"`
}

// HistoryEntry is the number of ideas generated on one UTC day
type HistoryEntry struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// InterestCount is one tally entry. Slices of these keep first-seen order.
type InterestCount struct {
	Interest string `json:"interest"`
	Count    int    `json:"count"`
}

// AnalyticsData is the per-user record and the shape of the aggregate
type AnalyticsData struct {
	TotalIdeasGenerated int                      `json:"totalIdeasGenerated"`
	FavoriteIdeas       int                      `json:"favoriteIdeas"`
	IdeasByDifficulty   map[types.Difficulty]int `json:"ideasByDifficulty"`
	IdeasByMarketSize   MarketSizeBuckets        `json:"ideasByMarketSize"`
	AverageTimeToLaunch string                   `json:"averageTimeToLaunch"`
	MostCommonInterests []string                 `json:"mostCommonInterests"`
	GenerationHistory   []HistoryEntry           `json:"generationHistory"`
	InterestCounts      []InterestCount          `json:"interestCounts"`
}

// NewAnalyticsData returns the zero state
func NewAnalyticsData() *AnalyticsData {
	return &AnalyticsData{
		IdeasByDifficulty: map[types.Difficulty]int{
			types.DifficultyEasy:   0,
			types.DifficultyMedium: 0,
			types.DifficultyHard:   0,
		},
		AverageTimeToLaunch: formatMonths(0),
		MostCommonInterests: []string{},
		GenerationHistory:   []HistoryEntry{},
		InterestCounts:      []InterestCount{},
	}
}

// fill repairs records written by older versions or by hand
func (d *AnalyticsData) fill() {
	zero := NewAnalyticsData()
	if d.IdeasByDifficulty == nil {
		d.IdeasByDifficulty = zero.IdeasByDifficulty
	}
	for _, diff := range types.Difficulties {
		if _, ok := d.IdeasByDifficulty[diff]; !ok {
			d.IdeasByDifficulty[diff] = 0
		}
	}
	if d.AverageTimeToLaunch == "" {
		d.AverageTimeToLaunch = zero.AverageTimeToLaunch
	}
	if d.MostCommonInterests == nil {
		d.MostCommonInterests = zero.MostCommonInterests
	}
	if d.GenerationHistory == nil {
		d.GenerationHistory = zero.GenerationHistory
	}
	if d.InterestCounts == nil {
		d.InterestCounts = zero.InterestCounts
	}
}

var (
	marketSizePattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(trillion|billion|million|thousand|[tbmk])?`)
	leadingIntPattern = regexp.MustCompile(`\d+`)
)

// ParseMarketSize extracts the leading figure of s in billions. "$2.1B" is 2.1, "$500M" is
// 0.5 and a bare number is read as billions. ok is false when s has no number.
func ParseMarketSize(s string) (billions float64, ok bool) {
	m := marketSizePattern.FindStringSubmatch(strings.ReplaceAll(s, ",", ""))
	if m == nil {
		return 0, false
	}

	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}

	switch strings.ToLower(m[2]) {
	case "t", "trillion":
		value *= 1000
	case "m", "million":
		value /= 1000
	case "k", "thousand":
		value /= 1_000_000
	}
	return value, true
}

func (b *MarketSizeBuckets) add(billions float64) {
	switch {
	case billions < 1:
		b.Small++
	case billions <= 10:
		b.Medium++
	default:
		b.Large++
	}
}

// ParseLeadingInt returns the first integer in s, e.g. 4 for "4-6 months"
func ParseLeadingInt(s string) (int, bool) {
	m := leadingIntPattern.FindString(s)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}

func formatMonths(n int) string {
	return fmt.Sprintf("%d months", n)
}

// roundedMean is the mean of values rounded to the nearest integer
func roundedMean(values []float64) (int, bool) {
	if len(values) == 0 {
		return 0, false
	}
	mean, err := stats.Mean(values)
	if err != nil {
		return 0, false
	}
	rounded, err := stats.Round(mean, 0)
	if err != nil {
		return 0, false
	}
	return int(rounded), true
}

// tally counts items keeping first-seen order
func tally(items []string) []InterestCount {
	counts := []InterestCount{}
	index := make(map[string]int)
	for _, item := range items {
		if i, ok := index[item]; ok {
			counts[i].Count++
			continue
		}
		index[item] = len(counts)
		counts = append(counts, InterestCount{Interest: item, Count: 1})
	}
	return counts
}

// topN returns the n most frequent interests, ties keep first-seen order
func topN(counts []InterestCount, n int) []string {
	sorted := make([]InterestCount, len(counts))
	copy(sorted, counts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Count > sorted[j].Count
	})

	if len(sorted) > n {
		sorted = sorted[:n]
	}
	out := make([]string, 0, len(sorted))
	for _, c := range sorted {
		out = append(out, c.Interest)
	}
	return out
}

// addHistory merges count into the entry for day, keeping dates ascending
func addHistory(history []HistoryEntry, day string, count int) []HistoryEntry {
	for i := range history {
		if history[i].Date == day {
			history[i].Count += count
			return history
		}
	}
	history = append(history, HistoryEntry{Date: day, Count: count})
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].Date < history[j].Date
	})
	return history
}

// pruneHistory drops entries dated more than HistoryDays days before now
func pruneHistory(history []HistoryEntry, now time.Time) []HistoryEntry {
	cutoff := now.UTC().AddDate(0, 0, -HistoryDays).Format(dateLayout)
	kept := history[:0]
	for _, e := range history {
		if e.Date >= cutoff {
			kept = append(kept, e)
		}
	}
	return kept
}
