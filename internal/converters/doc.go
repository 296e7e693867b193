// Package converters produces Cloud-Optimized GeoTIFFs from source rasters
// by shelling out to GDAL. Each converter owns one source format; the
// Registry routes discovered files to the right one by extension.
package converters
