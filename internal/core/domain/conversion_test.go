package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConversionStatus_Constants tests all status constants
func TestConversionStatus_Constants(t *testing.T) {
	tests := []struct {
		name     string
		status   ConversionStatus
		expected string
	}{
		{
			name:     "completed status",
			status:   StatusCompleted,
			expected: "completed",
		},
		{
			name:     "failed status",
			status:   StatusFailed,
			expected: "failed",
		},
		{
			name:     "skipped status",
			status:   StatusSkipped,
			expected: "skipped",
		},
		{
			name:     "duplicate referenced status",
			status:   StatusDuplicateReferenced,
			expected: "duplicate_referenced",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.status))
			assert.True(t, tt.status.Valid())
		})
	}
}

// TestConversionStatus_Invalid tests rejection of unknown statuses
func TestConversionStatus_Invalid(t *testing.T) {
	assert.False(t, ConversionStatus("").Valid())
	assert.False(t, ConversionStatus("pending").Valid())
	assert.False(t, ConversionStatus("COMPLETED").Valid())
}

// TestConversionRecord_Validate tests record validation
func TestConversionRecord_Validate(t *testing.T) {
	t.Run("valid completed record", func(t *testing.T) {
		rec := ConversionRecord{
			OriginalPath: "/data/rasters/a.tif",
			ContentHash:  "abc123",
			Status:       StatusCompleted,
		}
		require.NoError(t, rec.Validate())
	})

	t.Run("empty path rejected", func(t *testing.T) {
		rec := ConversionRecord{
			ContentHash: "abc123",
			Status:      StatusCompleted,
		}
		err := rec.Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("failed record may omit hash", func(t *testing.T) {
		rec := ConversionRecord{
			OriginalPath: "/data/rasters/broken.tif",
			Status:       StatusFailed,
		}
		require.NoError(t, rec.Validate())
	})

	t.Run("completed record needs hash", func(t *testing.T) {
		rec := ConversionRecord{
			OriginalPath: "/data/rasters/a.tif",
			Status:       StatusCompleted,
		}
		assert.ErrorIs(t, rec.Validate(), ErrInvalidInput)
	})

	t.Run("unknown status rejected", func(t *testing.T) {
		rec := ConversionRecord{
			OriginalPath: "/data/rasters/a.tif",
			ContentHash:  "abc123",
			Status:       "done",
		}
		assert.ErrorIs(t, rec.Validate(), ErrInvalidInput)
	})
}

// TestConversionRecord_IsDuplicate tests duplicate detection helper
func TestConversionRecord_IsDuplicate(t *testing.T) {
	canonical := int64(7)
	rec := ConversionRecord{
		OriginalPath:    "/data/rasters/b.tif",
		ContentHash:     "abc123",
		Status:          StatusDuplicateReferenced,
		DuplicateOfID:   &canonical,
		DuplicateOfPath: "/data/rasters/a.tif",
	}

	assert.True(t, rec.IsDuplicate())
	require.NotNil(t, rec.DuplicateOfID)
	assert.Equal(t, int64(7), *rec.DuplicateOfID)

	rec.Status = StatusCompleted
	assert.False(t, rec.IsDuplicate())
}

// TestRun_Active tests run lifecycle helper
func TestRun_Active(t *testing.T) {
	run := Run{ID: 1, StartedAt: time.Now(), InputDir: "/data/rasters"}
	assert.True(t, run.Active())

	run.EndedAt = time.Now()
	assert.False(t, run.Active())
}

// TestRunStats_SuccessRate tests success rate computation
func TestRunStats_SuccessRate(t *testing.T) {
	tests := []struct {
		name     string
		stats    RunStats
		expected float64
	}{
		{
			name:     "empty run",
			stats:    RunStats{},
			expected: 0,
		},
		{
			name:     "all successful",
			stats:    RunStats{TotalFiles: 4, Successful: 4},
			expected: 100,
		},
		{
			name:     "half failed",
			stats:    RunStats{TotalFiles: 4, Successful: 2, Failed: 2},
			expected: 50,
		},
		{
			name:     "skips do not dilute the rate",
			stats:    RunStats{TotalFiles: 10, Successful: 3, Failed: 1, Skipped: 6},
			expected: 75,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, tt.stats.SuccessRate(), 0.001)
		})
	}
}
