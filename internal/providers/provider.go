package providers

import (
	"context"

	"kardashev/internal/model"
)

// IndicatorQuery selects one country-indicator series. Date is optional and
// restricts the response to a single period.
type IndicatorQuery struct {
	Country   string
	Indicator string
	PerPage   int
	Date      string
}

type IndicatorSource interface {
	Name() string
	FetchIndicator(ctx context.Context, query IndicatorQuery) (model.Series, error)
}

// EnergyQuery is a request against one energy statistics route.
type EnergyQuery struct {
	Path      string
	Frequency string
	Data      string
	Facets    map[string][]string
}

type EnergySource interface {
	Name() string
	FetchEnergy(ctx context.Context, query EnergyQuery) ([]model.EnergyRecord, error)
}
