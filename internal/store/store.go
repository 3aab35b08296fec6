// Package store archives collected snapshots. The archive is write-only from
// the service's point of view: nothing on the dashboard path reads it back.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"github.com/juju/errors"

	"kardashev/internal/dashboard"
	"kardashev/internal/indicators"
	"kardashev/internal/model"
)

type Store interface {
	SaveRun(ctx context.Context, run Run) error
	UpsertObservations(ctx context.Context, runID, accessor string, observations []model.Observation) error
	UpsertEnergyRecords(ctx context.Context, runID, accessor string, records []model.EnergyRecord) error
	Close() error
}

// Run identifies one collection pass.
type Run struct {
	ID            string
	StartedAt     time.Time
	RankingPeriod string
}

func NewRun(clk clock.Clock, rankingPeriod string) Run {
	return Run{
		ID:            uuid.NewString(),
		StartedAt:     clk.Now().UTC(),
		RankingPeriod: rankingPeriod,
	}
}

type NopStore struct{}

func (s *NopStore) SaveRun(ctx context.Context, run Run) error {
	_ = ctx
	_ = run
	return nil
}

func (s *NopStore) UpsertObservations(ctx context.Context, runID, accessor string, observations []model.Observation) error {
	_ = ctx
	_ = runID
	_ = accessor
	_ = observations
	return nil
}

func (s *NopStore) UpsertEnergyRecords(ctx context.Context, runID, accessor string, records []model.EnergyRecord) error {
	_ = ctx
	_ = runID
	_ = accessor
	_ = records
	return nil
}

func (s *NopStore) Close() error {
	return nil
}

// ArchiveSnapshot writes every series of a snapshot under run.
// Unavailable energy series are skipped.
func ArchiveSnapshot(ctx context.Context, st Store, run Run, snapshot dashboard.Snapshot) error {
	if run.ID == "" {
		return errors.NotValidf("empty run id")
	}
	if err := st.SaveRun(ctx, run); err != nil {
		return errors.Annotatef(err, "saving run %s", run.ID)
	}

	series := []struct {
		accessor     string
		observations []model.Observation
	}{
		{indicators.AccessorPopulation, snapshot.Population},
		{indicators.AccessorPovertyRate, snapshot.PovertyRate},
		{indicators.AccessorLifeExpectancy, snapshot.LifeExpectancy},
		{indicators.AccessorEnergyUsage, snapshot.EnergyUsage},
		{indicators.AccessorTopLifeExpectancy, snapshot.TopLifeExpectancy.Entries},
	}
	for _, s := range series {
		if err := st.UpsertObservations(ctx, run.ID, s.accessor, s.observations); err != nil {
			return errors.Annotatef(err, "archiving %s", s.accessor)
		}
	}

	energy := []struct {
		accessor string
		series   model.EnergySeries
	}{
		{indicators.AccessorEnergyHistory, snapshot.EnergyHistory},
		{indicators.AccessorEnergyProjections, snapshot.EnergyProjections},
	}
	for _, e := range energy {
		if !e.series.Available {
			continue
		}
		if err := st.UpsertEnergyRecords(ctx, run.ID, e.accessor, e.series.Records); err != nil {
			return errors.Annotatef(err, "archiving %s", e.accessor)
		}
	}
	return nil
}
