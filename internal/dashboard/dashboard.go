package dashboard

import (
	"context"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"golang.org/x/sync/errgroup"

	"kardashev/internal/kardashev"
	"kardashev/internal/model"
)

var logger = loggo.GetLogger("kardashev.dashboard")

// Source is the set of indicator accessors a dashboard load needs.
// *indicators.Service satisfies it.
type Source interface {
	Population(ctx context.Context) model.Series
	PovertyRate(ctx context.Context) model.Series
	LifeExpectancy(ctx context.Context) model.Series
	EnergyUsagePerCapita(ctx context.Context) model.Series
	EnergyConsumptionHistory(ctx context.Context) model.EnergySeries
	EnergyProjections(ctx context.Context) model.EnergySeries
	TopCountriesLifeExpectancy(ctx context.Context) model.RankedSnapshot
}

type Stat struct {
	Value   float64 `json:"value"`
	Period  string  `json:"period"`
	Display string  `json:"display"`
}

type Rating struct {
	Value  float64 `json:"value"`
	Watts  float64 `json:"watts"`
	Period string  `json:"period"`
}

type Headline struct {
	Population     *Stat   `json:"population"`
	LifeExpectancy *Stat   `json:"life_expectancy"`
	EnergyUsage    *Stat   `json:"energy_usage"`
	Kardashev      *Rating `json:"kardashev"`
}

type Snapshot struct {
	GeneratedAt       time.Time            `json:"generated_at"`
	Population        model.Series         `json:"population"`
	PovertyRate       model.Series         `json:"poverty_rate"`
	LifeExpectancy    model.Series         `json:"life_expectancy"`
	EnergyUsage       model.Series         `json:"energy_usage"`
	TopLifeExpectancy model.RankedSnapshot `json:"top_life_expectancy"`
	EnergyHistory     model.EnergySeries   `json:"energy_history"`
	EnergyProjections model.EnergySeries   `json:"energy_projections"`
	Headline          Headline             `json:"headline"`
}

// PopulationTrend is the population series with values, oldest first.
func (s Snapshot) PopulationTrend() model.Series {
	return s.Population.NonNull().SortedByPeriod(false)
}

// PovertyTrend is the poverty rate series with values, oldest first.
func (s Snapshot) PovertyTrend() model.Series {
	return s.PovertyRate.NonNull().SortedByPeriod(false)
}

type Loader struct {
	source Source
	clock  clock.Clock
}

func NewLoader(source Source, clk clock.Clock) (*Loader, error) {
	if source == nil {
		return nil, errors.NotValidf("nil indicator source")
	}
	if clk == nil {
		clk = clock.WallClock
	}
	return &Loader{source: source, clock: clk}, nil
}

// Load runs every accessor concurrently and returns once all of them have
// settled. Each goroutine writes only its own field of the snapshot.
func (l *Loader) Load(ctx context.Context) Snapshot {
	var snapshot Snapshot
	var g errgroup.Group

	g.Go(func() error {
		snapshot.Population = l.source.Population(ctx)
		return nil
	})
	g.Go(func() error {
		snapshot.PovertyRate = l.source.PovertyRate(ctx)
		return nil
	})
	g.Go(func() error {
		snapshot.LifeExpectancy = l.source.LifeExpectancy(ctx)
		return nil
	})
	g.Go(func() error {
		snapshot.EnergyUsage = l.source.EnergyUsagePerCapita(ctx)
		return nil
	})
	g.Go(func() error {
		snapshot.TopLifeExpectancy = l.source.TopCountriesLifeExpectancy(ctx)
		return nil
	})
	g.Go(func() error {
		snapshot.EnergyHistory = l.source.EnergyConsumptionHistory(ctx)
		return nil
	})
	g.Go(func() error {
		snapshot.EnergyProjections = l.source.EnergyProjections(ctx)
		return nil
	})
	// Accessors never fail, so Wait has nothing to report.
	_ = g.Wait()

	snapshot.GeneratedAt = l.clock.Now().UTC()
	snapshot.Headline = buildHeadline(snapshot)
	return snapshot
}

func buildHeadline(snapshot Snapshot) Headline {
	headline := Headline{
		Population:     latestStat(snapshot.Population),
		LifeExpectancy: latestStat(snapshot.LifeExpectancy),
		EnergyUsage:    latestStat(snapshot.EnergyUsage),
	}
	if headline.LifeExpectancy != nil {
		headline.LifeExpectancy.Display = humanize.FormatFloat("#,###.#", headline.LifeExpectancy.Value)
	}

	if snapshot.EnergyHistory.Available {
		if record, ok := LatestEnergy(snapshot.EnergyHistory.Records); ok {
			watts := kardashev.QuadBTUToWatts(*record.Value)
			rating, err := kardashev.Rating(watts)
			if err != nil {
				logger.Warningf("cannot rate consumption %v for %s: %v", *record.Value, record.Period, err)
			} else {
				headline.Kardashev = &Rating{Value: rating, Watts: watts, Period: record.Period}
			}
		}
	}
	return headline
}

func latestStat(series model.Series) *Stat {
	latest, ok := series.SortedByPeriod(true).Latest()
	if !ok {
		return nil
	}
	return &Stat{
		Value:   *latest.Value,
		Period:  latest.Period,
		Display: FormatStat(*latest.Value),
	}
}

// quadBTUUnits are the spellings the energy API uses for quadrillion BTU.
var quadBTUUnits = map[string]struct{}{
	"qbtu":            {},
	"quad btu":        {},
	"quadrillion btu": {},
}

func isQuadBTU(unit string) bool {
	_, ok := quadBTUUnits[strings.Join(strings.Fields(strings.ToLower(unit)), " ")]
	return ok
}

// LatestEnergy returns the most recent record in quadrillion BTU carrying a
// value. Records in any other unit are ignored.
func LatestEnergy(records []model.EnergyRecord) (model.EnergyRecord, bool) {
	best := -1
	bestKey := 0
	for i, record := range records {
		if record.Value == nil || !isQuadBTU(record.Unit) {
			continue
		}
		key, ok := model.PeriodKey(record.Period)
		if !ok {
			continue
		}
		if best == -1 || key > bestKey {
			best = i
			bestKey = key
		}
	}
	if best == -1 {
		return model.EnergyRecord{}, false
	}
	return records[best], true
}
