// Package spatial validates and resolves the harvest geographic filter.
//
// The filter is a well-known-text geometry limited to three shapes:
//
//	POLYGON((x1 y1, x2 y2, ...))
//	MULTIPOLYGON(((x1 y1, ...)), ((x1 y1, ...)))
//	BOX(minx,miny,maxx,maxy)
//
// Multipolygon interior rings are not supported, external rings only.
package spatial

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/ternarybob/colligo/internal/models"
)

var (
	polygonPattern      = regexp.MustCompile(`(?i)^POLYGON\(\(-?\d+\.?\d* -?\d+\.?\d*(?:, -?\d+\.?\d* -?\d+\.?\d*)*\)\)`)
	multiPolygonPattern = regexp.MustCompile(`(?i)^MULTIPOLYGON\(\(\(-?\d+\.?\d* -?\d+\.?\d*(?:, -?\d+\.?\d* -?\d+\.?\d*)*(?:\)\),\(\(-?\d+\.?\d* -?\d+\.?\d*(?:, -?\d+\.?\d* -?\d+\.?\d*)*)*\)\)\)`)
	boxPattern          = regexp.MustCompile(`(?i)^BOX\(-?\d+\.?\d*,-?\d+\.?\d*,-?\d+\.?\d*,-?\d+\.?\d*\)`)
)

// ValidWKT reports whether the text is one of the three accepted shapes.
func ValidWKT(wkt string) bool {
	return polygonPattern.MatchString(wkt) ||
		multiPolygonPattern.MatchString(wkt) ||
		boxPattern.MatchString(wkt)
}

// IsBox reports whether the geometry is the BOX form. BOX filters travel as
// a bbox query parameter rather than poly.
func IsBox(wkt string) bool {
	return strings.HasPrefix(strings.ToUpper(wkt), "BOX")
}

// BoxBody returns the minx,miny,maxx,maxy body of a BOX geometry.
func BoxBody(wkt string) string {
	return strings.TrimSuffix(wkt[4:], ")")
}

// Resolve produces the validated WKT geometry from the harvest config, or
// ok=false when no spatial filter is configured. An unreadable filter file
// or an invalid shape is a configuration error that must abort startup.
func Resolve(cfg *models.HarvestConfig) (wkt string, ok bool, err error) {
	switch {
	case cfg.SpatialFilterFile != "":
		data, readErr := os.ReadFile(cfg.SpatialFilterFile)
		if readErr != nil {
			return "", false, &models.ConfigError{
				Reason: fmt.Sprintf("spatial filter file not readable: %v", readErr),
			}
		}
		wkt = strings.TrimSpace(string(data))
	case cfg.SpatialFilter != "":
		wkt = strings.TrimSpace(cfg.SpatialFilter)
	default:
		return "", false, nil
	}

	if !ValidWKT(wkt) {
		return "", false, &models.ConfigError{
			Reason: `spatial filter is invalid, expected POLYGON, MULTIPOLYGON or BOX WKT of the form "MULTIPOLYGON(((-133.4 54.0, -125.6 53.0, ...)))"`,
		}
	}

	return wkt, true, nil
}
