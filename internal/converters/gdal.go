package converters

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/meridian-labs/cogsync-cli/internal/core/domain"
	"github.com/meridian-labs/cogsync-cli/internal/core/ports/driven"
	"github.com/meridian-labs/cogsync-cli/internal/logger"
)

const gdalTranslateBin = "gdal_translate"

// gdalInfoBin is swapped in tests.
var gdalInfoBin = "gdalinfo"

// cogArgs builds the gdal_translate argument list for a COG conversion.
func cogArgs(inputPath, outputPath string, params driven.COGParams) []string {
	args := []string{
		inputPath,
		outputPath,
		"-of", "COG",
		"-co", "COMPRESS=" + params.Compression,
		"-co", "TILED=YES",
		"-co", fmt.Sprintf("BLOCKSIZE=%d", params.BlockSize),
		"-co", "BIGTIFF=IF_SAFER",
	}
	if params.OverviewResampling != "" {
		args = append(args, "-co", "OVERVIEW_RESAMPLING="+strings.ToUpper(params.OverviewResampling))
	}
	return args
}

// outputPath derives the artifact location for a source file: the base name
// with a .tif extension inside destDir.
func outputPath(srcPath, destDir string) string {
	base := strings.TrimSuffix(filepath.Base(srcPath), filepath.Ext(srcPath))
	return filepath.Join(destDir, base+".tif")
}

// runGDAL executes a GDAL binary with optional extra environment variables.
//
// A non-zero exit means GDAL rejected the input, which is terminal, so the
// error wraps domain.ErrConversionFailed. Anything else (binary missing,
// context cancelled) is returned as-is and treated as transient upstream.
func runGDAL(ctx context.Context, extraEnv []string, bin string, args ...string) error {
	cmd := exec.CommandContext(ctx, bin, args...)
	if len(extraEnv) > 0 {
		cmd.Env = append(os.Environ(), extraEnv...)
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	logger.Debug("Running %s %s", bin, strings.Join(args, " "))
	err := cmd.Run()
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s interrupted: %w", bin, ctxErr)
	}
	if _, ok := err.(*exec.ExitError); ok {
		return fmt.Errorf("%w: %s: %s", domain.ErrConversionFailed, bin,
			strings.TrimSpace(stderr.String()))
	}
	return fmt.Errorf("running %s: %w", bin, err)
}

// translateToCOG runs the standard COG conversion and stats the artifact.
func translateToCOG(ctx context.Context, src domain.SourceFile, destDir string, params driven.COGParams, extraEnv []string) (*domain.Artifact, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	dest := outputPath(src.Path, destDir)
	if err := runGDAL(ctx, extraEnv, gdalTranslateBin, cogArgs(src.Path, dest, params)...); err != nil {
		return nil, err
	}

	info, err := os.Stat(dest)
	if err != nil {
		return nil, fmt.Errorf("stat artifact: %w", err)
	}
	return &domain.Artifact{LocalPath: dest, Size: info.Size()}, nil
}

// validateWithGDALInfo checks that GDAL can open the input at all. The
// check is best-effort: without a gdalinfo binary on PATH it is skipped,
// so a host with only gdal_translate still converts.
func validateWithGDALInfo(ctx context.Context, path string) error {
	err := runGDAL(ctx, nil, gdalInfoBin, path)
	if errors.Is(err, exec.ErrNotFound) {
		logger.Warn("%s not found, skipping validation for %s", gdalInfoBin, path)
		return nil
	}
	return err
}
