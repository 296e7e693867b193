package converters

import (
	"context"

	"github.com/meridian-labs/cogsync-cli/internal/core/domain"
	"github.com/meridian-labs/cogsync-cli/internal/core/ports/driven"
)

// Ensure GeoTIFF implements the interface.
var _ driven.Converter = (*GeoTIFF)(nil)

// GeoTIFF converts plain GeoTIFF rasters to COG.
type GeoTIFF struct{}

// NewGeoTIFF creates a GeoTIFF converter.
func NewGeoTIFF() *GeoTIFF {
	return &GeoTIFF{}
}

func (c *GeoTIFF) Format() string {
	return "geotiff"
}

func (c *GeoTIFF) Extensions() []string {
	return []string{".tif", ".tiff"}
}

func (c *GeoTIFF) Capabilities() driven.ConverterCapabilities {
	return driven.ConverterCapabilities{Validate: true}
}

func (c *GeoTIFF) Validate(ctx context.Context, src domain.SourceFile) error {
	return validateWithGDALInfo(ctx, src.Path)
}

func (c *GeoTIFF) Convert(ctx context.Context, src domain.SourceFile, destDir string, params driven.COGParams) (*domain.Artifact, error) {
	return translateToCOG(ctx, src, destDir, params, nil)
}
