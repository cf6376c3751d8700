package types

import "time"

// Difficulty is the build-effort grade of a generated idea
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// Difficulties lists the accepted difficulty values in display order
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

// ParseDifficulty returns the matching difficulty. Matching is exact; anything else is Medium.
func ParseDifficulty(s string) Difficulty {
	switch Difficulty(s) {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return Difficulty(s)
	default:
		return DifficultyMedium
	}
}

// UserPreferences narrows what kind of ideas the model should propose
type UserPreferences struct {
	PreferredDifficulty   Difficulty `json:"preferredDifficulty,omitempty"`
	PreferredTimeToLaunch string     `json:"preferredTimeToLaunch,omitempty"`
	PreferredMarketSize   string     `json:"preferredMarketSize,omitempty"`
}

// GenerationParams is the input of one idea generation request
type GenerationParams struct {
	Interests       []string         `json:"interests"`
	MarketTrends    []string         `json:"marketTrends,omitempty"`
	UserPreferences *UserPreferences `json:"userPreferences,omitempty"`
}

// GeneratedIdea is one normalized idea. ID, IsFavorite and CreatedAt are attached by
// consumers, never by the normalizer.
type GeneratedIdea struct {
	ID              string     `json:"id,omitempty"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Category        string     `json:"category"`
	MarketSize      string     `json:"marketSize"`
	Difficulty      Difficulty `json:"difficulty"`
	TimeToLaunch    string     `json:"timeToLaunch"`
	RevenueEstimate string     `json:"revenueEstimate"`
	Tags            []string   `json:"tags"`
	IsFavorite      bool       `json:"isFavorite,omitempty"`
	CreatedAt       *time.Time `json:"createdAt,omitempty"`
}

// GenerateRequest is the request body of the generation endpoint
type GenerateRequest = GenerationParams

// GenerateResponse is the success body of the generation endpoint
type GenerateResponse struct {
	Ideas []GeneratedIdea `json:"ideas"`
}
