// Package risktable holds the static country benchmark used by the risk
// engine. The entries mirror published producer-country classifications;
// updating them is a code change, not runtime configuration, so every
// deployment scores against the same table.
package risktable

import (
	"strings"

	"agritrace/internal/domain"
)

type Static struct {
	levels map[string]domain.CountryRiskLevel
}

func NewStatic() *Static {
	return &Static{levels: benchmark}
}

func (s *Static) Lookup(countryCode string) (domain.CountryRiskLevel, bool) {
	level, ok := s.levels[strings.ToUpper(strings.TrimSpace(countryCode))]
	return level, ok
}

// ISO 3166-1 alpha-2 codes for the producer countries the platform
// currently trades with. Countries absent from the table score as
// unknown upstream.
var benchmark = map[string]domain.CountryRiskLevel{
	// West Africa (cocoa)
	"GH": domain.CountryRiskStandard,
	"CI": domain.CountryRiskStandard,
	"NG": domain.CountryRiskHigh,
	"CM": domain.CountryRiskHigh,
	"TG": domain.CountryRiskStandard,

	// South America (coffee, soy, cattle)
	"BR": domain.CountryRiskHigh,
	"CO": domain.CountryRiskStandard,
	"PE": domain.CountryRiskStandard,
	"EC": domain.CountryRiskStandard,
	"BO": domain.CountryRiskHigh,
	"PY": domain.CountryRiskHigh,
	"AR": domain.CountryRiskStandard,

	// Southeast Asia (palm oil, rubber, coffee)
	"ID": domain.CountryRiskHigh,
	"MY": domain.CountryRiskStandard,
	"VN": domain.CountryRiskLow,
	"TH": domain.CountryRiskLow,
	"PH": domain.CountryRiskStandard,
	"LA": domain.CountryRiskHigh,
	"KH": domain.CountryRiskHigh,
	"IN": domain.CountryRiskStandard,
	"LK": domain.CountryRiskLow,

	// East Africa (coffee, tea)
	"ET": domain.CountryRiskStandard,
	"KE": domain.CountryRiskLow,
	"UG": domain.CountryRiskStandard,
	"TZ": domain.CountryRiskStandard,
	"RW": domain.CountryRiskLow,

	// Central America
	"GT": domain.CountryRiskStandard,
	"HN": domain.CountryRiskStandard,
	"NI": domain.CountryRiskHigh,
	"CR": domain.CountryRiskLow,
	"PA": domain.CountryRiskLow,
	"MX": domain.CountryRiskStandard,
	"DO": domain.CountryRiskLow,
}
