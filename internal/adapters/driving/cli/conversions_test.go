package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-labs/cogsync-cli/internal/core/domain"
)

func TestConversionsListCmd_ListsRecords(t *testing.T) {
	_, cleanup := setupStoreTest(t)
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"conversions", "list"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "/data/a.tif")
	assert.Contains(t, buf.String(), "hash-a")
	assert.Contains(t, buf.String(), "completed")
}

func TestConversionsListCmd_StatusFilter(t *testing.T) {
	s, cleanup := setupStoreTest(t)
	defer cleanup()

	_, err := s.Conversions().RecordFailure(context.Background(), &domain.ConversionRecord{
		OriginalPath: "/data/broken.tif",
		ErrorMessage: "gdal_translate exited 1",
		ErrorKind:    domain.FailureKindConversion,
		FailedAt:     time.Now().UTC(),
	}, nil)
	require.NoError(t, err)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"conversions", "list", "--status", "failed"})
	defer func() {
		rootCmd.SetArgs(nil)
		flagConvStatus = ""
	}()

	err = rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "/data/broken.tif")
	assert.Contains(t, buf.String(), "gdal_translate exited 1")
	assert.NotContains(t, buf.String(), "/data/a.tif")
}

func TestConversionsListCmd_RejectsUnknownStatus(t *testing.T) {
	_, cleanup := setupStoreTest(t)
	defer cleanup()

	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"conversions", "list", "--status", "bogus"})
	defer func() {
		rootCmd.SetArgs(nil)
		flagConvStatus = ""
	}()

	err := rootCmd.Execute()
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestStatsCmd_ShowsAggregates(t *testing.T) {
	_, cleanup := setupStoreTest(t)
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"stats"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "Conversions:     1")
	assert.Contains(t, buf.String(), "completed:")
	assert.Contains(t, buf.String(), "Unique content:  1 hashes")
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{2048, "2.0 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
		{3 * 1024 * 1024 * 1024, "3.0 GiB"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatBytes(tt.n))
		})
	}
}
