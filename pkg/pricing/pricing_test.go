package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateCost_ZeroUsage(t *testing.T) {
	table := NewTable()

	tests := []struct {
		name   string
		input  int64
		output int64
	}{
		{"both zero", 0, 0},
		{"both negative", -100, -1},
		{"input negative output zero", -5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Zero(t, table.CalculateCost("gemini-2.5-flash", tt.input, tt.output))
		})
	}
}

func TestCalculateCost_PerMillionScaling(t *testing.T) {
	table := NewTable()

	for model, p := range builtinText {
		t.Run(model, func(t *testing.T) {
			assert.InDelta(t, p.Input, table.CalculateCost(model, 1_000_000, 0), 1e-9)
			assert.InDelta(t, p.Output, table.CalculateCost(model, 0, 1_000_000), 1e-9)
		})
	}
}

func TestCalculateCost_OutputPricierThanInput(t *testing.T) {
	for model, p := range builtinText {
		assert.Greater(t, p.Output, p.Input, "model %s", model)
	}
	for model, p := range builtinAudio {
		assert.Greater(t, p.OutputToken, p.InputToken, "model %s", model)
	}
}

func TestCalculateCost_UnknownModelFallsBack(t *testing.T) {
	table := NewTable()

	got := table.CalculateCost("unknown-model", 123_456, 78_910)
	want := table.CalculateCost(DefaultTextModel, 123_456, 78_910)
	assert.Equal(t, want, got)
	assert.Positive(t, got)
}

func TestCalculateCost_ClampsNegativeSide(t *testing.T) {
	table := NewTable()

	// Negative input with positive output counts only the output term.
	got := table.CalculateCost("gemini-2.5-flash", -500, 1_000_000)
	assert.InDelta(t, builtinText["gemini-2.5-flash"].Output, got, 1e-9)
}

func TestCalculateAudioCost(t *testing.T) {
	table := NewTable()

	t.Run("zero usage", func(t *testing.T) {
		assert.Zero(t, table.CalculateAudioCost("gemini-2.0-flash-live", 0, 0, 0))
		assert.Zero(t, table.CalculateAudioCost("gemini-2.0-flash-live", -3, -1, -1))
	})

	t.Run("minutes only", func(t *testing.T) {
		p := builtinAudio["gemini-2.0-flash-live"]
		got := table.CalculateAudioCost("gemini-2.0-flash-live", 10, 0, 0)
		assert.InDelta(t, 10*p.PerMinute, got, 1e-9)
	})

	t.Run("minutes plus tokens", func(t *testing.T) {
		p := builtinAudio["gemini-2.5-flash-native-audio"]
		got := table.CalculateAudioCost("gemini-2.5-flash-native-audio", 2, 1_000_000, 1_000_000)
		assert.InDelta(t, 2*p.PerMinute+p.InputToken+p.OutputToken, got, 1e-9)
	})

	t.Run("unknown model falls back", func(t *testing.T) {
		got := table.CalculateAudioCost("some-new-live-model", 5, 100, 100)
		want := table.CalculateAudioCost(DefaultAudioModel, 5, 100, 100)
		assert.Equal(t, want, got)
	})
}

func TestLookupHelpers(t *testing.T) {
	table := NewTable()

	p, ok := table.ModelPricing("gemini-2.5-pro")
	require.True(t, ok)
	assert.Equal(t, builtinText["gemini-2.5-pro"], p)

	_, ok = table.ModelPricing("not-a-model")
	assert.False(t, ok)

	ap, ok := table.AudioModelPricing("gemini-2.0-flash-live")
	require.True(t, ok)
	assert.Equal(t, builtinAudio["gemini-2.0-flash-live"], ap)

	assert.True(t, table.HasKnownPricing("gemini-1.5-flash"))
	assert.True(t, table.HasKnownPricing("gemini-2.0-flash-live"))
	assert.False(t, table.HasKnownPricing("not-a-model"))
}

func TestNewTable_IsolatedFromBuiltins(t *testing.T) {
	a := NewTable()
	b := NewTable()

	a.apply(Overrides{Text: map[string]TokenPricing{"gemini-2.5-flash": {Input: 9, Output: 99}}})

	p, ok := b.ModelPricing("gemini-2.5-flash")
	require.True(t, ok)
	assert.Equal(t, builtinText["gemini-2.5-flash"], p, "tables must not share state")
}
