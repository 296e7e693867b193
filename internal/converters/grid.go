package converters

import (
	"context"

	"github.com/meridian-labs/cogsync-cli/internal/core/domain"
	"github.com/meridian-labs/cogsync-cli/internal/core/ports/driven"
)

// Ensure Grid implements the interface.
var _ driven.Converter = (*Grid)(nil)

// Grid converts gridded rasters (Arc/Info binary grids and ENVI band
// layouts) to COG. GDAL resolves the accompanying header files itself.
type Grid struct{}

// NewGrid creates a grid converter.
func NewGrid() *Grid {
	return &Grid{}
}

func (c *Grid) Format() string {
	return "grid"
}

func (c *Grid) Extensions() []string {
	return []string{".adf", ".bil", ".bip", ".bsq"}
}

func (c *Grid) Capabilities() driven.ConverterCapabilities {
	return driven.ConverterCapabilities{Validate: true}
}

func (c *Grid) Validate(ctx context.Context, src domain.SourceFile) error {
	return validateWithGDALInfo(ctx, src.Path)
}

func (c *Grid) Convert(ctx context.Context, src domain.SourceFile, destDir string, params driven.COGParams) (*domain.Artifact, error) {
	return translateToCOG(ctx, src, destDir, params, nil)
}
