package normalize

import (
	"strings"

	"github.com/ZanzyTHEbar/idea-forge/internal/types"
)

type label int

const (
	labelTitle label = iota
	labelDescription
	labelCategory
	labelMarketSize
	labelDifficulty
	labelTimeToLaunch
	labelRevenue
	labelTags
)

var labels = map[string]label{
	"title":            labelTitle,
	"description":      labelDescription,
	"category":         labelCategory,
	"market size":      labelMarketSize,
	"difficulty":       labelDifficulty,
	"time to launch":   labelTimeToLaunch,
	"revenue":          labelRevenue,
	"revenue estimate": labelRevenue,
	"tags":             labelTags,
}

// draft accumulates one idea during the text scan
type draft struct {
	fields map[label]string
	tags   []string
}

func newDraft() *draft {
	return &draft{fields: make(map[label]string)}
}

func (d *draft) titled() bool {
	return d.fields[labelTitle] != ""
}

func (d *draft) idea() types.GeneratedIdea {
	get := func(l label, def string) string {
		if v := d.fields[l]; v != "" {
			return v
		}
		return def
	}

	idea := types.GeneratedIdea{
		Title:           get(labelTitle, DefaultTitle),
		Description:     get(labelDescription, DefaultDescription),
		Category:        get(labelCategory, DefaultCategory),
		MarketSize:      get(labelMarketSize, DefaultMarketSize),
		Difficulty:      types.ParseDifficulty(d.fields[labelDifficulty]),
		TimeToLaunch:    get(labelTimeToLaunch, DefaultTimeToLaunch),
		RevenueEstimate: get(labelRevenue, DefaultRevenueEstimate),
		Tags:            DefaultTags(),
	}
	if len(d.tags) > 0 {
		idea.Tags = d.tags
	}
	return idea
}

// parseText scans "Label: value" lines. A new title flushes the idea being built.
func parseText(raw string) []types.GeneratedIdea {
	ideas := []types.GeneratedIdea{}
	current := newDraft()

	for _, line := range strings.Split(raw, "\n") {
		l, value, ok := splitLabel(line)
		if !ok {
			continue
		}

		if l == labelTitle && current.titled() {
			ideas = append(ideas, current.idea())
			current = newDraft()
		}

		if l == labelTags {
			current.tags = splitTags(value)
			continue
		}
		current.fields[l] = value
	}

	if current.titled() {
		ideas = append(ideas, current.idea())
	}
	return ideas
}

// splitLabel recognises lines like "Title: X", "**Market Size:** $2B" or "2. Title: X"
func splitLabel(line string) (label, string, bool) {
	name, value, found := strings.Cut(strings.TrimSpace(line), ":")
	if !found {
		return 0, "", false
	}

	name = strings.TrimLeft(name, "-*#>0123456789. \t")
	name = strings.ToLower(strings.TrimSpace(strings.Trim(name, "*_ ")))

	l, ok := labels[name]
	if !ok {
		return 0, "", false
	}
	return l, strings.TrimSpace(strings.Trim(strings.TrimSpace(value), "*_")), true
}

// splitTags accepts both "ai, saas" and a JSON-ish list like ["ai","saas"].
func splitTags(value string) []string {
	tags := []string{}
	value = strings.TrimSpace(value)
	value = strings.TrimSuffix(strings.TrimPrefix(value, "["), "]")
	for _, t := range strings.Split(value, ",") {
		if t = strings.Trim(strings.TrimSpace(t), `"'`); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
