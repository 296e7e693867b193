package converters

import (
	"fmt"
	"sort"
	"strings"

	"github.com/meridian-labs/cogsync-cli/internal/core/domain"
	"github.com/meridian-labs/cogsync-cli/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.ConverterRegistry = (*Registry)(nil)

// Registry routes file extensions to converters. Extensions are matched
// case-insensitively; registering two converters for the same extension is
// a configuration error.
type Registry struct {
	byExt map[string]driven.Converter
}

// NewRegistry creates a registry over the given converters, each claiming
// its native extensions.
func NewRegistry(convs ...driven.Converter) (*Registry, error) {
	r := &Registry{byExt: make(map[string]driven.Converter)}
	for _, conv := range convs {
		if err := r.register(conv, conv.Extensions()); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) register(conv driven.Converter, exts []string) error {
	for _, ext := range exts {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if existing, ok := r.byExt[ext]; ok {
			return fmt.Errorf("%w: extension %s claimed by both %s and %s",
				domain.ErrInvalidInput, ext, existing.Format(), conv.Format())
		}
		r.byExt[ext] = conv
	}
	return nil
}

func builtinConverters() []driven.Converter {
	return []driven.Converter{NewGeoTIFF(), NewWorldImage(), NewGrid(), NewECW()}
}

// Default returns a registry with every built-in converter registered.
func Default() *Registry {
	r, err := NewRegistry(builtinConverters()...)
	if err != nil {
		// Built-in extension sets are disjoint.
		panic(err)
	}
	return r
}

// FromFormats builds a registry from a configured format map: each key
// names a converter format, each value lists the extensions it claims.
// Formats absent from the map stay unregistered, so the configuration
// controls exactly what discovery picks up. A nil or empty map yields the
// built-in set.
func FromFormats(formats map[string][]string) (*Registry, error) {
	if len(formats) == 0 {
		return Default(), nil
	}

	byFormat := make(map[string]driven.Converter)
	for _, conv := range builtinConverters() {
		byFormat[conv.Format()] = conv
	}

	r := &Registry{byExt: make(map[string]driven.Converter)}
	for format, exts := range formats {
		conv, ok := byFormat[format]
		if !ok {
			return nil, fmt.Errorf("%w: unknown format %q in formats configuration",
				domain.ErrInvalidInput, format)
		}
		if err := r.register(conv, exts); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// ForExtension returns the converter accepting ext.
func (r *Registry) ForExtension(ext string) (driven.Converter, error) {
	conv, ok := r.byExt[strings.ToLower(ext)]
	if !ok {
		return nil, fmt.Errorf("%w: no converter for %q", domain.ErrUnsupportedFormat, ext)
	}
	return conv, nil
}

// Extensions lists every registered extension, sorted.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
