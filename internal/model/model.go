package model

type Observation struct {
	IndicatorID    string   `json:"indicator_id"`
	IndicatorLabel string   `json:"indicator_label"`
	CountryCode    string   `json:"country_code"`
	CountryLabel   string   `json:"country_label"`
	Period         string   `json:"period"`
	Value          *float64 `json:"value"`
	Unit           string   `json:"unit,omitempty"`
	ObsStatus      string   `json:"obs_status,omitempty"`
	Decimal        int      `json:"decimal"`
}

func (o Observation) HasValue() bool {
	return o.Value != nil
}

// Series is kept in fetch order; it is not guaranteed to be chronological.
type Series []Observation

type RankedSnapshot struct {
	Period  string        `json:"period"`
	Entries []Observation `json:"entries"`
}

type EnergyRecord struct {
	Period     string   `json:"period"`
	SeriesID   string   `json:"series_id"`
	SeriesName string   `json:"series_name"`
	RegionID   string   `json:"region_id"`
	RegionName string   `json:"region_name"`
	Scenario   string   `json:"scenario,omitempty"`
	Unit       string   `json:"unit"`
	Value      *float64 `json:"value"`
}

type EnergySeries struct {
	Available bool           `json:"available"`
	Records   []EnergyRecord `json:"records"`
}

// EnergyUnavailable is returned when the energy statistics API cannot be
// queried, most commonly because no API key is configured.
var EnergyUnavailable = EnergySeries{}

// Float returns a pointer to v, for building observations by hand.
func Float(v float64) *float64 {
	return &v
}
