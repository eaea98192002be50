package geocoder

import (
	"regexp"
	"strings"

	"github.com/rajasatyajit/ProtectLife/internal/models"
)

// Point is an approximate commune centre
type Point struct {
	Latitude  float64
	Longitude float64
}

// communes maps an accent-free lower-case key to the canonical name
var communes = map[string]string{
	"abobo":       "Abobo",
	"adjame":      "Adjamé",
	"anyama":      "Anyama",
	"attecoube":   "Attécoubé",
	"bingerville": "Bingerville",
	"cocody":      "Cocody",
	"koumassi":    "Koumassi",
	"marcory":     "Marcory",
	"plateau":     "Plateau",
	"port-bouet":  "Port-Bouët",
	"songon":      "Songon",
	"treichville": "Treichville",
	"yopougon":    "Yopougon",
}

var centres = map[string]Point{
	"Abobo":       {5.4186, -4.0203},
	"Adjamé":      {5.3670, -4.0220},
	"Anyama":      {5.4940, -4.0520},
	"Attécoubé":   {5.3350, -4.0440},
	"Bingerville": {5.3550, -3.8850},
	"Cocody":      {5.3600, -3.9700},
	"Koumassi":    {5.2990, -3.9480},
	"Marcory":     {5.3030, -3.9830},
	"Plateau":     {5.3240, -4.0180},
	"Port-Bouët":  {5.2560, -3.9260},
	"Songon":      {5.3160, -4.2550},
	"Treichville": {5.2930, -4.0050},
	"Yopougon":    {5.3450, -4.0880},
}

var accentFolder = strings.NewReplacer("é", "e", "è", "e", "ê", "e", "ë", "e", "É", "e", "È", "e")

// Geocoder finds Abidjan communes in free text
type Geocoder struct {
	communeRegex *regexp.Regexp
}

// New creates a new geocoder instance
func New() *Geocoder {
	return &Geocoder{
		// RE2 \b is ASCII-only, so letters are matched explicitly around the name
		communeRegex: regexp.MustCompile(`(?i)(?:^|[^\p{L}])(abobo|adjam[eé]|anyama|att[eé]coub[eé]|bingerville|cocody|koumassi|marcory|plateau|port[- ]?bou[eë]t|songon|treichville|yopougon)(?:$|[^\p{L}])`),
	}
}

// Commune returns the first commune named in text, or ""
func (g *Geocoder) Commune(text string) string {
	m := g.communeRegex.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	key := accentFolder.Replace(strings.ToLower(m[1]))
	key = strings.Replace(key, " ", "-", 1)
	if !strings.Contains(key, "-") && strings.HasPrefix(key, "port") {
		key = "port-" + strings.TrimPrefix(key, "port")
	}
	return communes[key]
}

// Centre returns the approximate centre of a commune
func (g *Geocoder) Centre(commune string) (Point, bool) {
	p, ok := centres[commune]
	return p, ok
}

// Geocode fills the commune of a report from its address, falling back to
// the title and description. Missing coordinates are set to the commune centre.
func (g *Geocoder) Geocode(report *models.Report) {
	if report.Location.Commune == "" {
		commune := g.Commune(report.Location.Address)
		if commune == "" {
			commune = g.Commune(report.Title + " " + report.Description)
		}
		report.Location.Commune = commune
	}

	if report.Location.Latitude == 0 && report.Location.Longitude == 0 {
		if p, ok := g.Centre(report.Location.Commune); ok {
			report.Location.Latitude = p.Latitude
			report.Location.Longitude = p.Longitude
		}
	}
}
