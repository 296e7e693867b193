package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseDuplicateStrategy tests strategy parsing
func TestParseDuplicateStrategy(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected DuplicateStrategy
		wantErr  bool
	}{
		{name: "reference", input: "reference", expected: StrategyReference},
		{name: "skip", input: "skip", expected: StrategySkip},
		{name: "process", input: "process", expected: StrategyProcess},
		{name: "warn", input: "warn", expected: StrategyWarn},
		{name: "empty", input: "", wantErr: true},
		{name: "unknown", input: "dedupe", wantErr: true},
		{name: "wrong case", input: "Reference", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDuplicateStrategy(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

// TestDefaultProcessOptions tests the shipped defaults
func TestDefaultProcessOptions(t *testing.T) {
	opts := DefaultProcessOptions()

	assert.False(t, opts.ForceReprocess)
	assert.True(t, opts.SkipProcessed)
	assert.True(t, opts.DetectDuplicates)
	assert.Equal(t, StrategyReference, opts.DuplicateStrategy)
	assert.True(t, opts.TrackFileChanges)
	assert.Equal(t, 3, opts.MaxRetries)
	assert.Equal(t, 5*time.Second, opts.RetryDelay)
}
