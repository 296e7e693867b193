package converters

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/meridian-labs/cogsync-cli/internal/core/domain"
	"github.com/meridian-labs/cogsync-cli/internal/core/ports/driven"
)

// Ensure WorldImage implements the interface.
var _ driven.Converter = (*WorldImage)(nil)

// worldFileExts maps image extensions to their conventional world file
// extensions. The generic .wld sidecar is accepted for any of them.
var worldFileExts = map[string]string{
	".jpg":  ".jpw",
	".jpeg": ".jpw",
	".png":  ".pgw",
}

// WorldImage converts plain images georeferenced by a world file sidecar
// (JPEG with .jpw, PNG with .pgw) to COG. GDAL reads the sidecar next to
// the image, so conversion is a single translate once the sidecar exists.
type WorldImage struct{}

// NewWorldImage creates a world image converter.
func NewWorldImage() *WorldImage {
	return &WorldImage{}
}

func (c *WorldImage) Format() string {
	return "worldimage"
}

func (c *WorldImage) Extensions() []string {
	return []string{".jpg", ".jpeg", ".png"}
}

func (c *WorldImage) Capabilities() driven.ConverterCapabilities {
	return driven.ConverterCapabilities{Validate: true, Sidecar: true}
}

// Validate requires the world file; an image without one carries no
// georeferencing and can never become a valid COG.
func (c *WorldImage) Validate(ctx context.Context, src domain.SourceFile) error {
	if _, ok := c.worldFilePath(src.Path); !ok {
		return fmt.Errorf("%w: %w: no world file next to %s",
			domain.ErrConversionFailed, domain.ErrMissingWorldFile, src.Path)
	}
	return validateWithGDALInfo(ctx, src.Path)
}

func (c *WorldImage) Convert(ctx context.Context, src domain.SourceFile, destDir string, params driven.COGParams) (*domain.Artifact, error) {
	if _, ok := c.worldFilePath(src.Path); !ok {
		return nil, fmt.Errorf("%w: %w: no world file next to %s",
			domain.ErrConversionFailed, domain.ErrMissingWorldFile, src.Path)
	}
	return translateToCOG(ctx, src, destDir, params, nil)
}

// worldFilePath returns the sidecar path for an image, preferring the
// format-specific extension and falling back to .wld.
func (c *WorldImage) worldFilePath(imagePath string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(imagePath))
	base := strings.TrimSuffix(imagePath, filepath.Ext(imagePath))

	candidates := []string{base + ".wld"}
	if worldExt, ok := worldFileExts[ext]; ok {
		candidates = []string{base + worldExt, base + ".wld"}
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
	}
	return "", false
}
