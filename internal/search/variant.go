package search

import (
	"fmt"
	"strings"

	"github.com/FranksOps/newsburr/internal/llm"
)

// Variant selects a prompt strategy.
type Variant string

const (
	// VariantPositive asks for one positive news story from Norway.
	VariantPositive Variant = "positive"
	// VariantHeadlines asks for five of today's top headlines.
	VariantHeadlines Variant = "headlines"
)

// Preset is everything needed to build the model request for a Variant.
type Preset struct {
	Variant   Variant
	Model     string
	Prompt    string
	MaxURLs   int
	Tool      llm.Tool
	Reasoning *llm.Reasoning
	Text      *llm.TextOptions
}

// PresetFor returns the preset for v. An empty variant selects VariantPositive.
func PresetFor(v Variant) (Preset, error) {
	switch Variant(strings.ToLower(strings.TrimSpace(string(v)))) {
	case VariantPositive, "":
		return Preset{
			Variant: VariantPositive,
			Model:   "gpt-5-nano",
			Prompt:  "Find 1 positive news article URL from today in Norway. Return just the URL.",
			MaxURLs: 1,
			Tool: llm.Tool{
				Type: "web_search_preview",
				UserLocation: &llm.UserLocation{
					Type:    "approximate",
					Country: "NO",
					City:    "Trondheim",
					Region:  "Trondheim",
				},
				SearchContextSize: "low",
			},
			Reasoning: &llm.Reasoning{Effort: "low"},
			Text:      &llm.TextOptions{Verbosity: "low"},
		}, nil
	case VariantHeadlines:
		return Preset{
			Variant: VariantHeadlines,
			Model:   "gpt-4.1-mini",
			Prompt:  "Find 5 news article URLs from today's top headlines. Return just the URLs, one per line.",
			MaxURLs: 5,
			Tool: llm.Tool{
				Type:              "web_search_preview",
				SearchContextSize: "medium",
			},
		}, nil
	default:
		return Preset{}, fmt.Errorf("unknown variant %q", v)
	}
}

// Request builds the Responses API request for the preset.
func (p Preset) Request() llm.Request {
	return llm.Request{
		Model:     p.Model,
		Input:     p.Prompt,
		Tools:     []llm.Tool{p.Tool},
		Reasoning: p.Reasoning,
		Text:      p.Text,
	}
}
