package domain

import (
	"strings"
	"unicode"

	"github.com/samber/lo"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Country is a destination whose visa offices can be monitored.
type Country struct {
	Code        string   `json:"code"`
	DisplayName string   `json:"display_name"`
	Offices     []string `json:"offices"`
}

// OfficeIDs returns the normalized identifiers of the country's offices in
// display order.
func (c Country) OfficeIDs() []string {
	return lo.Map(c.Offices, func(name string, _ int) string {
		return NormalizeOffice(name)
	})
}

// HasOffice reports whether id (normalized or not) names one of the offices.
func (c Country) HasOffice(id string) bool {
	return lo.Contains(c.OfficeIDs(), NormalizeOffice(id))
}

// OfficeName maps a normalized id back to its display name.
func (c Country) OfficeName(id string) string {
	name, ok := lo.Find(c.Offices, func(name string) bool {
		return NormalizeOffice(name) == id
	})
	if !ok {
		return id
	}
	return name
}

// Catalog is the static country/office reference table.
type Catalog struct {
	order     []string
	countries map[string]Country
}

// NewCatalog builds a catalog preserving the order of countries.
func NewCatalog(countries ...Country) *Catalog {
	c := &Catalog{countries: make(map[string]Country, len(countries))}
	for _, country := range countries {
		code := strings.ToLower(country.Code)
		country.Code = code
		if _, dup := c.countries[code]; !dup {
			c.order = append(c.order, code)
		}
		c.countries[code] = country
	}
	return c
}

// DefaultCatalog returns the built-in reference table.
func DefaultCatalog() *Catalog {
	return NewCatalog(
		Country{Code: "netherlands", DisplayName: "Netherlands", Offices: []string{"Ankara", "İstanbul"}},
		Country{Code: "germany", DisplayName: "Germany", Offices: []string{"İstanbul", "İzmir", "Antalya"}},
		Country{Code: "france", DisplayName: "France", Offices: []string{"Ankara", "İstanbul", "İzmir", "Gaziantep"}},
	)
}

// Lookup returns the country registered under code.
func (c *Catalog) Lookup(code string) (Country, bool) {
	country, ok := c.countries[strings.ToLower(strings.TrimSpace(code))]
	return country, ok
}

// All returns every country in registration order.
func (c *Catalog) All() []Country {
	return lo.Map(c.order, func(code string, _ int) Country {
		return c.countries[code]
	})
}

// NormalizeOffice folds an office name into its identifier: diacritics are
// stripped and the result is lower-cased, so "İstanbul" becomes "istanbul".
func NormalizeOffice(name string) string {
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		cases.Lower(language.Und),
		norm.NFC,
	)
	out, _, err := transform.String(t, strings.TrimSpace(name))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(name))
	}
	return out
}
