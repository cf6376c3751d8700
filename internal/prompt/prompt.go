// Package prompt turns generation parameters into the chat messages sent to the
// completion endpoint.
package prompt

import (
	"strings"

	"github.com/ZanzyTHEbar/idea-forge/internal/types"
)

// SystemInstruction is the system message of every generation request
const SystemInstruction = "You are an expert startup idea generator. You create innovative, viable, " +
	"and market-ready business ideas tailored to the user's interests. Always respond with valid JSON only."

// SchemaInstruction asks for the exact shape the normalizer parses first. Keep the two in sync.
const SchemaInstruction = `Return your answer as a JSON array of 3 to 5 objects. Each object must have exactly these keys:
- "title": a short, catchy name for the idea
- "description": 2-3 sentences describing the product and who it serves
- "category": the industry category
- "marketSize": the estimated total addressable market, e.g. "$2.1B"
- "difficulty": one of "Easy", "Medium", "Hard"
- "timeToLaunch": an estimate such as "3-6 months"
- "revenueEstimate": a monthly revenue range such as "$10K-$50K/month"
- "tags": an array of strings

Respond with the JSON array only, without markdown fences or commentary.`

// Build renders params into the user message. Output depends only on params.
func Build(params types.GenerationParams) string {
	var b strings.Builder

	b.WriteString("Generate innovative startup ideas based on the following interests: ")
	b.WriteString(strings.Join(params.Interests, ", "))
	b.WriteString(".")

	if len(params.MarketTrends) > 0 {
		b.WriteString("\n\nConsider these current market trends: ")
		b.WriteString(strings.Join(params.MarketTrends, ", "))
		b.WriteString(".")
	}

	if prefs := preferenceLines(params.UserPreferences); len(prefs) > 0 {
		b.WriteString("\n\nUser preferences:")
		for _, line := range prefs {
			b.WriteString("\n- ")
			b.WriteString(line)
		}
	}

	b.WriteString("\n\n")
	b.WriteString(SchemaInstruction)

	return b.String()
}

// only the fields that are set
func preferenceLines(p *types.UserPreferences) []string {
	if p == nil {
		return nil
	}

	var lines []string
	if p.PreferredDifficulty != "" {
		lines = append(lines, "Preferred difficulty: "+string(p.PreferredDifficulty))
	}
	if p.PreferredTimeToLaunch != "" {
		lines = append(lines, "Preferred time to launch: "+p.PreferredTimeToLaunch)
	}
	if p.PreferredMarketSize != "" {
		lines = append(lines, "Preferred market size: "+p.PreferredMarketSize)
	}
	return lines
}
