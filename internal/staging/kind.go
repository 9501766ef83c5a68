package staging

import (
	"path"
	"strings"

	series "energy-tracker/internal/series/domain"
)

// kindMarkers are matched in order against the lower-cased base name.
var kindMarkers = []struct {
	marker string
	kind   series.Kind
}{
	{marker: "generation", kind: series.KindGeneration},
	{marker: "demand", kind: series.KindDemand},
	{marker: "cost", kind: series.KindPrice},
	{marker: "price", kind: series.KindPrice},
	{marker: "carbon", kind: series.KindCarbon},
}

// ResolveKind maps a staged file name onto the series it holds. Names matching
// no marker resolve to KindUnknown.
func ResolveKind(name string) series.Kind {
	base := strings.ToLower(path.Base(strings.ReplaceAll(name, "\\", "/")))
	for _, m := range kindMarkers {
		if strings.Contains(base, m.marker) {
			return m.kind
		}
	}
	return series.KindUnknown
}

// IsFeather reports whether the name looks like a staged feather file.
func IsFeather(name string) bool {
	return strings.Contains(strings.ToLower(path.Base(name)), ".feather")
}
