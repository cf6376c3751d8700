// Package normalize coerces model output into GeneratedIdea records. It never fails:
// malformed JSON degrades to a line-oriented scan, and that to nothing (or one generic
// idea when asked).
package normalize

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/ZanzyTHEbar/idea-forge/internal/types"
)

// Field defaults
const (
	DefaultTitle           = "Untitled Idea"
	DefaultDescription     = "No description provided"
	DefaultCategory        = "General"
	DefaultMarketSize      = "Unknown"
	DefaultTimeToLaunch    = "3-6 months"
	DefaultRevenueEstimate = "$10K-$100K/month"
)

// DefaultTags returns a fresh copy of the tags used when the source has no tag list
func DefaultTags() []string {
	return []string{"startup", "business"}
}

// Path records which branch produced the ideas
type Path string

const (
	PathJSON    Path = "json"
	PathText    Path = "text"
	PathGeneric Path = "generic"
	PathNone    Path = "none"
)

// Options tunes Normalize
type Options struct {
	// GenericFallback returns a single placeholder idea when neither branch finds any.
	GenericFallback bool
}

// Result is the normalized output and the branch it came from
type Result struct {
	Ideas []types.GeneratedIdea
	Path  Path
}

// Normalize parses raw with default options (no generic fallback)
func Normalize(raw string) []types.GeneratedIdea {
	return NormalizeWithOptions(raw, Options{}).Ideas
}

// NormalizeWithOptions parses raw as a JSON array, falling back to a "Label: value" scan
func NormalizeWithOptions(raw string, opts Options) Result {
	if parsed := parseJSON(raw); parsed.ok {
		return Result{Ideas: parsed.ideas, Path: PathJSON}
	}

	if ideas := parseText(raw); len(ideas) > 0 {
		return Result{Ideas: ideas, Path: PathText}
	}

	if opts.GenericFallback {
		return Result{Ideas: []types.GeneratedIdea{GenericIdea()}, Path: PathGeneric}
	}
	return Result{Ideas: []types.GeneratedIdea{}, Path: PathNone}
}

// GenericIdea is the last-resort placeholder
func GenericIdea() types.GeneratedIdea {
	return types.GeneratedIdea{
		Title:           "Custom Startup Opportunity",
		Description:     "A business idea tailored to your interests. Try generating again for more specific suggestions.",
		Category:        DefaultCategory,
		MarketSize:      DefaultMarketSize,
		Difficulty:      types.DifficultyMedium,
		TimeToLaunch:    DefaultTimeToLaunch,
		RevenueEstimate: DefaultRevenueEstimate,
		Tags:            DefaultTags(),
	}
}

// parseResult is the outcome of the JSON branch. ok is false when the input is not a
// JSON array, which selects the text branch.
type parseResult struct {
	ideas []types.GeneratedIdea
	ok    bool
}

func parseJSON(raw string) parseResult {
	for _, candidate := range jsonCandidates(raw) {
		if !strings.HasPrefix(candidate, "[") {
			continue
		}
		var elems []json.RawMessage
		if err := json.Unmarshal([]byte(candidate), &elems); err != nil {
			continue
		}

		ideas := make([]types.GeneratedIdea, 0, len(elems))
		for _, elem := range elems {
			var fields map[string]any
			// Non-object elements become all-default ideas.
			_ = json.Unmarshal(elem, &fields)
			ideas = append(ideas, fromFields(fields))
		}
		return parseResult{ideas: ideas, ok: true}
	}
	return parseResult{}
}

// jsonCandidates yields the trimmed text and, when the model wrapped its answer in a
// code fence, the fenced body. Brackets inside prose never make a candidate.
func jsonCandidates(raw string) []string {
	trimmed := strings.TrimSpace(raw)
	candidates := []string{trimmed}

	if body, ok := stripFence(trimmed); ok {
		candidates = append(candidates, body)
	}
	return candidates
}

// stripFence returns the body of a ``` fence that spans the whole text
func stripFence(s string) (string, bool) {
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return "", false
	}

	body := strings.TrimSuffix(s, "```")
	// drop the opening fence and its language tag
	nl := strings.Index(body, "\n")
	if nl < 0 {
		return "", false
	}
	return strings.TrimSpace(body[nl+1:]), true
}

func fromFields(fields map[string]any) types.GeneratedIdea {
	idea := types.GeneratedIdea{
		Title:           stringOr(fields["title"], DefaultTitle),
		Description:     stringOr(fields["description"], DefaultDescription),
		Category:        stringOr(fields["category"], DefaultCategory),
		MarketSize:      stringOr(fields["marketSize"], DefaultMarketSize),
		Difficulty:      types.ParseDifficulty(stringOr(fields["difficulty"], "")),
		TimeToLaunch:    stringOr(fields["timeToLaunch"], DefaultTimeToLaunch),
		RevenueEstimate: stringOr(fields["revenueEstimate"], DefaultRevenueEstimate),
		Tags:            DefaultTags(),
	}

	if list, ok := fields["tags"].([]any); ok {
		tags := make([]string, 0, len(list))
		for _, t := range list {
			if s, ok := t.(string); ok {
				tags = append(tags, s)
			}
		}
		idea.Tags = tags
	}
	return idea
}

func stringOr(v any, def string) string {
	switch val := v.(type) {
	case string:
		if strings.TrimSpace(val) != "" {
			return val
		}
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	}
	return def
}
