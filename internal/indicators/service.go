// Package indicators exposes the world indicators shown on the dashboard.
//
// Every accessor issues exactly one upstream request and never fails: a
// transport error, a non-success status, an unexpected body or a missing
// credential is logged and turned into an empty result, so that one broken
// upstream only blanks the part of the dashboard that depends on it.
package indicators

import (
	"context"
	"strings"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/loggo/v2"

	"kardashev/internal/model"
	"kardashev/internal/providers"
	"kardashev/internal/providers/eia"
)

const (
	WorldCountry = "WLD"
	AllCountries = "all"

	IndicatorPopulation     = "SP.POP.TOTL"
	IndicatorPovertyRate    = "SI.POV.DDAY"
	IndicatorLifeExpectancy = "SP.DYN.LE00.IN"
	IndicatorEnergyUse      = "EG.USE.PCAP.KG.OE"

	EnergyHistoryPath    = "/international/data/"
	EnergyProjectionPath = "/ieo/data/"

	// DefaultRankingPeriod is the most recent year with broad country
	// coverage for life expectancy.
	DefaultRankingPeriod = "2023"
	TopN                 = 5

	seriesPerPage  = 100
	rankingPerPage = 300
)

// Accessor names, used in logs and metric labels.
const (
	AccessorPopulation        = "population"
	AccessorPovertyRate       = "poverty_rate"
	AccessorLifeExpectancy    = "life_expectancy"
	AccessorEnergyUsage       = "energy_usage_per_capita"
	AccessorEnergyHistory     = "energy_consumption_history"
	AccessorEnergyProjections = "energy_projections"
	AccessorTopLifeExpectancy = "top_countries_life_expectancy"
)

var energyHistoryFacets = map[string][]string{
	"activityId": {"1"},
	"productId":  {"44"},
	"regionId":   {"WORL"},
}

var energyProjectionFacets = map[string][]string{
	"scenario": {"reference"},
	"regionId": {"wor"},
}

// Logger is the subset of loggo.Logger used by the service.
type Logger interface {
	Errorf(message string, args ...any)
	Warningf(message string, args ...any)
	Debugf(message string, args ...any)
}

type Config struct {
	WorldBank providers.IndicatorSource
	Energy    providers.EnergySource
	Metrics   *Collector
	Clock     clock.Clock
	Logger    Logger
	// RankingPeriod overrides DefaultRankingPeriod for the whole deployment.
	RankingPeriod string
}

func (c Config) Validate() error {
	if c.WorldBank == nil {
		return errors.NotValidf("nil WorldBank source")
	}
	if c.Energy == nil {
		return errors.NotValidf("nil Energy source")
	}
	return nil
}

type Service struct {
	worldBank     providers.IndicatorSource
	energy        providers.EnergySource
	metrics       *Collector
	clock         clock.Clock
	logger        Logger
	rankingPeriod string
}

func NewService(cfg Config) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	svc := &Service{
		worldBank:     cfg.WorldBank,
		energy:        cfg.Energy,
		metrics:       cfg.Metrics,
		clock:         cfg.Clock,
		logger:        cfg.Logger,
		rankingPeriod: strings.TrimSpace(cfg.RankingPeriod),
	}
	if svc.clock == nil {
		svc.clock = clock.WallClock
	}
	if svc.logger == nil {
		svc.logger = loggo.GetLogger("kardashev.indicators")
	}
	if svc.rankingPeriod == "" {
		svc.rankingPeriod = DefaultRankingPeriod
	}
	return svc, nil
}

func (s *Service) RankingPeriod() string {
	return s.rankingPeriod
}

func (s *Service) Population(ctx context.Context) model.Series {
	return s.worldSeries(ctx, AccessorPopulation, IndicatorPopulation)
}

func (s *Service) PovertyRate(ctx context.Context) model.Series {
	return s.worldSeries(ctx, AccessorPovertyRate, IndicatorPovertyRate)
}

func (s *Service) LifeExpectancy(ctx context.Context) model.Series {
	return s.worldSeries(ctx, AccessorLifeExpectancy, IndicatorLifeExpectancy)
}

func (s *Service) EnergyUsagePerCapita(ctx context.Context) model.Series {
	return s.worldSeries(ctx, AccessorEnergyUsage, IndicatorEnergyUse)
}

func (s *Service) EnergyConsumptionHistory(ctx context.Context) model.EnergySeries {
	return s.energySeries(ctx, AccessorEnergyHistory, providers.EnergyQuery{
		Path:   EnergyHistoryPath,
		Facets: energyHistoryFacets,
	})
}

func (s *Service) EnergyProjections(ctx context.Context) model.EnergySeries {
	return s.energySeries(ctx, AccessorEnergyProjections, providers.EnergyQuery{
		Path:   EnergyProjectionPath,
		Facets: energyProjectionFacets,
	})
}

// TopCountriesLifeExpectancy ranks real countries by life expectancy for the
// ranking period and keeps the first TopN.
func (s *Service) TopCountriesLifeExpectancy(ctx context.Context) model.RankedSnapshot {
	start := s.clock.Now()
	snapshot := model.RankedSnapshot{
		Period:  s.rankingPeriod,
		Entries: []model.Observation{},
	}
	series, err := s.worldBank.FetchIndicator(ctx, providers.IndicatorQuery{
		Country:   AllCountries,
		Indicator: IndicatorLifeExpectancy,
		PerPage:   rankingPerPage,
		Date:      s.rankingPeriod,
	})
	if err != nil {
		s.logger.Errorf("%s: fetching %s for %s in %s: %v",
			AccessorTopLifeExpectancy, IndicatorLifeExpectancy, AllCountries, s.rankingPeriod, err)
		s.metrics.observe(AccessorTopLifeExpectancy, OutcomeFailed, s.since(start), 0)
		return snapshot
	}

	snapshot.Entries = Rank(series, TopN)
	s.metrics.observe(AccessorTopLifeExpectancy, outcomeFor(len(snapshot.Entries)), s.since(start), len(snapshot.Entries))
	return snapshot
}

func (s *Service) worldSeries(ctx context.Context, accessor, indicator string) model.Series {
	start := s.clock.Now()
	series, err := s.worldBank.FetchIndicator(ctx, providers.IndicatorQuery{
		Country:   WorldCountry,
		Indicator: indicator,
		PerPage:   seriesPerPage,
	})
	if err != nil {
		s.logger.Errorf("%s: fetching %s for %s: %v", accessor, indicator, WorldCountry, err)
		s.metrics.observe(accessor, OutcomeFailed, s.since(start), 0)
		return model.Series{}
	}
	if series == nil {
		series = model.Series{}
	}
	s.metrics.observe(accessor, outcomeFor(len(series)), s.since(start), len(series))
	return series
}

func (s *Service) energySeries(ctx context.Context, accessor string, query providers.EnergyQuery) model.EnergySeries {
	start := s.clock.Now()
	records, err := s.energy.FetchEnergy(ctx, query)
	if errors.Is(err, eia.ErrMissingAPIKey) {
		s.logger.Warningf("%s: energy data unavailable: %v", accessor, err)
		s.metrics.observe(accessor, OutcomeUnavailable, s.since(start), 0)
		return model.EnergyUnavailable
	}
	if err != nil {
		s.logger.Errorf("%s: fetching %s: %v", accessor, query.Path, err)
		s.metrics.observe(accessor, OutcomeFailed, s.since(start), 0)
		return model.EnergyUnavailable
	}
	if records == nil {
		records = []model.EnergyRecord{}
	}
	s.metrics.observe(accessor, outcomeFor(len(records)), s.since(start), len(records))
	return model.EnergySeries{Available: true, Records: records}
}

func (s *Service) since(start time.Time) float64 {
	return s.clock.Now().Sub(start).Seconds()
}

func outcomeFor(size int) string {
	if size == 0 {
		return OutcomeEmpty
	}
	return OutcomeOK
}
