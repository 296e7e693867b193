package driven

import (
	"context"

	"github.com/meridian-labs/cogsync-cli/internal/core/domain"
)

// ConverterCapabilities declares what a converter can do.
// Callers check the struct instead of probing for optional methods.
type ConverterCapabilities struct {
	// Validate indicates the converter can pre-validate inputs before
	// conversion (typically via gdalinfo).
	Validate bool

	// Sidecar indicates inputs need a georeferencing sidecar file next to
	// them (world files for plain images).
	Sidecar bool

	// EnvironmentOverrides indicates the converter sets format-specific
	// environment variables for the GDAL process.
	EnvironmentOverrides bool
}

// COGParams are the creation options applied to every conversion.
type COGParams struct {
	// Compression is the COG COMPRESS creation option (e.g. "LZW").
	Compression string

	// BlockSize is the internal tile size in pixels.
	BlockSize int

	// OverviewResampling selects the resampling kernel for overviews.
	OverviewResampling string
}

// Converter produces a Cloud-Optimized GeoTIFF from one source raster.
//
// Convert returns domain.ErrConversionFailed (possibly wrapped) when the
// input itself cannot be converted; that outcome is terminal and callers
// must not retry it. Any other error is treated as transient.
type Converter interface {
	// Format is the converter's format key (e.g. "geotiff").
	Format() string

	// Extensions lists the lower-case file extensions the converter
	// accepts, including the leading dot.
	Extensions() []string

	// Capabilities declares the converter's optional behaviours.
	Capabilities() ConverterCapabilities

	// Validate checks the input without converting it. Only meaningful
	// when Capabilities().Validate is true.
	Validate(ctx context.Context, src domain.SourceFile) error

	// Convert writes the COG for src into destDir and returns the artifact.
	Convert(ctx context.Context, src domain.SourceFile, destDir string, params COGParams) (*domain.Artifact, error)
}

// ConverterRegistry selects the converter for a discovered file.
type ConverterRegistry interface {
	// ForExtension returns the converter accepting the extension, or
	// domain.ErrUnsupportedFormat.
	ForExtension(ext string) (Converter, error)

	// Extensions lists every extension any registered converter accepts.
	Extensions() []string
}
