package places

import "strings"

// Singapore geographic centre + radius covering the whole island.
const (
	CityCenterLat    = 1.3521
	CityCenterLng    = 103.8198
	CityRadiusMeters = 40000
)

type areaInfo struct {
	name string
	lat  float64
	lng  float64
}

// singaporeAreas lists known districts with their centroids. ExtractArea
// scans this list in order, so earlier names win when an address mentions
// more than one.
var singaporeAreas = []areaInfo{
	{"Orchard", 1.3048, 103.8318},
	{"Bugis", 1.3009, 103.8559},
	{"Clarke Quay", 1.2906, 103.8465},
	{"Chinatown", 1.2842, 103.8443},
	{"Tanjong Pagar", 1.2765, 103.8460},
	{"Marina Bay", 1.2816, 103.8636},
	{"Raffles Place", 1.2840, 103.8510},
	{"Newton", 1.3138, 103.8380},
	{"Tiong Bahru", 1.2859, 103.8267},
	{"Katong", 1.3050, 103.9010},
	{"Tanjong Katong", 1.3090, 103.8960},
	{"Bedok", 1.3240, 103.9300},
	{"Tampines", 1.3536, 103.9451},
	{"Pasir Ris", 1.3721, 103.9474},
	{"Hougang", 1.3712, 103.8863},
	{"Sengkang", 1.3868, 103.8914},
	{"Punggol", 1.4043, 103.9021},
	{"Jurong", 1.3329, 103.7436},
	{"Clementi", 1.3151, 103.7652},
	{"Buona Vista", 1.3070, 103.7900},
	{"Holland Village", 1.3112, 103.7961},
	{"Dempsey", 1.3044, 103.8097},
	{"Novena", 1.3203, 103.8439},
	{"Bishan", 1.3508, 103.8485},
	{"Ang Mo Kio", 1.3700, 103.8496},
	{"Yishun", 1.4304, 103.8354},
	{"Woodlands", 1.4382, 103.7890},
	{"Sembawang", 1.4491, 103.8201},
	{"Choa Chu Kang", 1.3840, 103.7470},
	{"Bukit Timah", 1.3294, 103.8021},
	{"Changi", 1.3644, 103.9893},
	{"Tanah Merah", 1.3271, 103.9464},
	{"Paya Lebar", 1.3177, 103.8924},
	{"Geylang", 1.3147, 103.8820},
	{"Lavender", 1.3072, 103.8630},
	{"Toa Payoh", 1.3343, 103.8563},
	{"Little India", 1.3066, 103.8518},
	{"Rochor", 1.3036, 103.8554},
	{"Kallang", 1.3100, 103.8714},
	{"Marine Parade", 1.3020, 103.8970},
	{"Siglap", 1.3119, 103.9273},
	{"East Coast", 1.3010, 103.9120},
	{"Dhoby Ghaut", 1.2993, 103.8455},
	{"Harbourfront", 1.2653, 103.8220},
	{"Sentosa", 1.2494, 103.8303},
	{"Robertson Quay", 1.2908, 103.8380},
	{"Boat Quay", 1.2871, 103.8500},
	{"Outram", 1.2805, 103.8390},
	{"Queenstown", 1.2942, 103.7861},
	{"Redhill", 1.2896, 103.8167},
	{"River Valley", 1.2936, 103.8365},
	{"Joo Chiat", 1.3093, 103.9016},
	{"Serangoon", 1.3496, 103.8736},
	{"Braddell", 1.3404, 103.8468},
}

// ExtractArea finds a known district name inside a formatted address.
// Returns "" when no district matches.
func ExtractArea(address string) string {
	lowered := strings.ToLower(address)
	for _, area := range singaporeAreas {
		if strings.Contains(lowered, strings.ToLower(area.name)) {
			return area.name
		}
	}
	return ""
}

// CanonicalArea maps a free-form area mention to the canonical district name.
func CanonicalArea(name string) (string, bool) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", false
	}
	for _, area := range singaporeAreas {
		if strings.EqualFold(area.name, trimmed) {
			return area.name, true
		}
	}
	return "", false
}

// AreaCentroid returns the centroid of a known district.
func AreaCentroid(name string) (lat, lng float64, ok bool) {
	for _, area := range singaporeAreas {
		if strings.EqualFold(area.name, name) {
			return area.lat, area.lng, true
		}
	}
	return 0, 0, false
}
