package converters

import (
	"context"

	"github.com/meridian-labs/cogsync-cli/internal/core/domain"
	"github.com/meridian-labs/cogsync-cli/internal/core/ports/driven"
)

// Ensure ECW implements the interface.
var _ driven.Converter = (*ECW)(nil)

// ecwJPEGQuality is passed to the GDAL ECW driver; the proprietary format
// re-encodes through JPEG during translation.
const ecwJPEGQuality = "GDAL_ECW_JPEG_QUALITY=90"

// ECW converts ERDAS ECW rasters to COG. Requires a GDAL build with the ECW
// driver enabled.
type ECW struct{}

// NewECW creates an ECW converter.
func NewECW() *ECW {
	return &ECW{}
}

func (c *ECW) Format() string {
	return "ecw"
}

func (c *ECW) Extensions() []string {
	return []string{".ecw"}
}

func (c *ECW) Capabilities() driven.ConverterCapabilities {
	return driven.ConverterCapabilities{Validate: true, EnvironmentOverrides: true}
}

func (c *ECW) Validate(ctx context.Context, src domain.SourceFile) error {
	return validateWithGDALInfo(ctx, src.Path)
}

func (c *ECW) Convert(ctx context.Context, src domain.SourceFile, destDir string, params driven.COGParams) (*domain.Artifact, error) {
	return translateToCOG(ctx, src, destDir, params, []string{ecwJPEGQuality})
}
