package pricing

import (
	"sync"
)

// DefaultTextModel is the fallback entry used for unrecognized text models.
const DefaultTextModel = "gemini-2.5-flash"

// DefaultAudioModel is the fallback entry for unrecognized realtime models,
// and the model assigned to sessions created without one.
const DefaultAudioModel = "gemini-2.0-flash-live"

// TokenPricing holds USD prices per one million tokens.
type TokenPricing struct {
	Input  float64 `json:"input" mapstructure:"input"`
	Output float64 `json:"output" mapstructure:"output"`
}

// AudioPricing prices realtime audio models: USD per minute of audio plus
// per-million-token terms for models that also bill text tokens. Zero token
// prices mean the model has no token component.
type AudioPricing struct {
	PerMinute   float64 `json:"per_minute" mapstructure:"per_minute"`
	InputToken  float64 `json:"input_token" mapstructure:"input_token"`
	OutputToken float64 `json:"output_token" mapstructure:"output_token"`
}

// Prices checked against the published Gemini rate card. Output must stay
// strictly above input per entry.
var builtinText = map[string]TokenPricing{
	"gemini-2.5-pro":        {Input: 1.25, Output: 10.00},
	"gemini-2.5-flash":      {Input: 0.30, Output: 2.50},
	"gemini-2.5-flash-lite": {Input: 0.10, Output: 0.40},
	"gemini-2.0-flash":      {Input: 0.10, Output: 0.40},
	"gemini-1.5-pro":        {Input: 3.50, Output: 10.50},
	"gemini-1.5-flash":      {Input: 0.075, Output: 0.30},
}

var builtinAudio = map[string]AudioPricing{
	"gemini-2.0-flash-live":         {PerMinute: 0.06, InputToken: 0.35, OutputToken: 1.50},
	"gemini-2.5-flash-native-audio": {PerMinute: 0.09, InputToken: 0.50, OutputToken: 2.00},
}

// Table is a concurrency-safe pricing lookup seeded with the builtin Gemini
// rates. Overrides loaded from a file replace or extend entries (see
// overrides.go); builtin entries are never mutated in place.
type Table struct {
	mu    sync.RWMutex
	text  map[string]TokenPricing
	audio map[string]AudioPricing
}

// NewTable returns a table seeded with the builtin rates.
func NewTable() *Table {
	t := &Table{
		text:  make(map[string]TokenPricing, len(builtinText)),
		audio: make(map[string]AudioPricing, len(builtinAudio)),
	}
	for k, v := range builtinText {
		t.text[k] = v
	}
	for k, v := range builtinAudio {
		t.audio[k] = v
	}
	return t
}

// ModelPricing returns the token pricing entry for a model, reporting
// whether the model is known. Unknown models are not an error.
func (t *Table) ModelPricing(model string) (TokenPricing, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.text[model]
	return p, ok
}

// AudioModelPricing returns the realtime pricing entry for a model,
// reporting whether the model is known.
func (t *Table) AudioModelPricing(model string) (AudioPricing, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.audio[model]
	return p, ok
}

// HasKnownPricing reports whether the model appears in either table.
func (t *Table) HasKnownPricing(model string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, text := t.text[model]
	_, audio := t.audio[model]
	return text || audio
}

// CalculateCost estimates USD cost for token usage on a text model.
// Unrecognized models fall back to the default entry; negative counts are
// clamped to zero. Always returns a finite non-negative number.
func (t *Table) CalculateCost(model string, inputTokens, outputTokens int64) float64 {
	if inputTokens <= 0 && outputTokens <= 0 {
		return 0
	}
	if inputTokens < 0 {
		inputTokens = 0
	}
	if outputTokens < 0 {
		outputTokens = 0
	}

	t.mu.RLock()
	p, ok := t.text[model]
	if !ok {
		p = t.text[DefaultTextModel]
	}
	t.mu.RUnlock()

	inputM := float64(inputTokens) / 1_000_000
	outputM := float64(outputTokens) / 1_000_000
	return inputM*p.Input + outputM*p.Output
}

// CalculateAudioCost estimates USD cost for a realtime session: audio
// minutes at the per-minute rate plus any token terms the model's entry
// carries. Unrecognized models fall back to the default realtime entry.
func (t *Table) CalculateAudioCost(model string, audioMinutes float64, inputTokens, outputTokens int64) float64 {
	if audioMinutes <= 0 && inputTokens <= 0 && outputTokens <= 0 {
		return 0
	}
	if audioMinutes < 0 {
		audioMinutes = 0
	}
	if inputTokens < 0 {
		inputTokens = 0
	}
	if outputTokens < 0 {
		outputTokens = 0
	}

	t.mu.RLock()
	p, ok := t.audio[model]
	if !ok {
		p = t.audio[DefaultAudioModel]
	}
	t.mu.RUnlock()

	cost := audioMinutes * p.PerMinute
	if p.InputToken > 0 {
		cost += float64(inputTokens) / 1_000_000 * p.InputToken
	}
	if p.OutputToken > 0 {
		cost += float64(outputTokens) / 1_000_000 * p.OutputToken
	}
	return cost
}
