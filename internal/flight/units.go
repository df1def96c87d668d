package flight

import (
	"maps"
	"strings"
)

// unitFixes maps unit strings found in released MASIN files to spellings
// that standard unit parsers accept.
var unitFixes = map[string]string{
	"1b":        "1",
	"hpa":       "hPa",
	"mb":        "hPa",
	"degrees c": "degC",
	"deg c":     "degC",
	"deg k":     "K",
	"degrees":   "degree",
	"m s-1":     "m s-1",
	"m/s":       "m s-1",
	"w m-2":     "W m-2",
	"w/m2":      "W m-2",
	"ppm":       "ppm",
	"#/cm3":     "cm-3",
	"cm^-3":     "cm-3",
}

// NormalizeUnits returns a copy of attrs with the units attribute cleaned
// up. attrs itself is never modified.
func NormalizeUnits(attrs map[string]any) map[string]any {
	out := maps.Clone(attrs)
	if out == nil {
		return map[string]any{}
	}
	u, ok := out["units"].(string)
	if !ok {
		return out
	}
	u = strings.Join(strings.Fields(u), " ")
	if fixed, ok := unitFixes[strings.ToLower(u)]; ok {
		u = fixed
	}
	out["units"] = u
	return out
}
