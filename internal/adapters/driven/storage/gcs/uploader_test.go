package gcs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestContentType tests MIME resolution for blob names.
func TestContentType(t *testing.T) {
	tests := []struct {
		blobPath string
		want     string
	}{
		{"d41d8cd98f00b204e9800998ecf8427e.tif", "image/tiff"},
		{"d41d8cd98f00b204e9800998ecf8427e.tiff", "image/tiff"},
		{"abc123.jpg", "image/jpeg"},
		{"abc123.png", "image/png"},
		{"abc123.ecw", "application/octet-stream"},
		{"abc123", "application/octet-stream"},
		{"abc123.xyz", "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.blobPath, func(t *testing.T) {
			assert.Equal(t, tt.want, contentType(tt.blobPath))
		})
	}
}

// TestObjectName tests prefix handling.
func TestObjectName(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		blob   string
		want   string
	}{
		{"no prefix", "", "abc.tif", "abc.tif"},
		{"simple prefix", "cogs", "abc.tif", "cogs/abc.tif"},
		{"nested prefix", "prod/cogs", "abc.tif", "prod/cogs/abc.tif"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &Uploader{prefix: tt.prefix}
			assert.Equal(t, tt.want, u.objectName(tt.blob))
		})
	}
}
