package indicators

import (
	"sort"
	"strings"

	"kardashev/internal/model"
)

// aggregateCodes are World Bank composites (income groups and regions) that
// must never appear in a per-country ranking.
var aggregateCodes = map[string]struct{}{
	"WLD": {},
	"HIC": {},
	"LMC": {},
	"UMC": {},
	"LIC": {},
	"EAS": {},
	"ECS": {},
	"LCN": {},
	"MEA": {},
	"NAC": {},
	"SAS": {},
	"SSF": {},
}

func IsAggregate(countryCode string) bool {
	_, ok := aggregateCodes[strings.ToUpper(strings.TrimSpace(countryCode))]
	return ok
}

// Rank drops aggregates, entries without a country code and entries without a
// value, then orders the rest by descending value and keeps at most n. Equal
// values keep their fetch order.
func Rank(series model.Series, n int) []model.Observation {
	ranked := make([]model.Observation, 0, len(series))
	for _, observation := range series {
		if !observation.HasValue() {
			continue
		}
		if strings.TrimSpace(observation.CountryCode) == "" || IsAggregate(observation.CountryCode) {
			continue
		}
		ranked = append(ranked, observation)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return *ranked[i].Value > *ranked[j].Value
	})
	if n >= 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
