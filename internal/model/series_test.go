package model_test

import (
	"testing"

	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"kardashev/internal/model"
)

func Test(t *testing.T) {
	gc.TestingT(t)
}

type seriesSuite struct{}

var _ = gc.Suite(&seriesSuite{})

func periods(series model.Series) []string {
	out := make([]string, len(series))
	for i, observation := range series {
		out[i] = observation.Period
	}
	return out
}

func (s *seriesSuite) TestSortedByPeriodIsNumeric(c *gc.C) {
	series := model.Series{
		{Period: "999"},
		{Period: "2020"},
		{Period: "1000"},
	}
	c.Check(periods(series.SortedByPeriod(false)), jc.DeepEquals, []string{"999", "1000", "2020"})
	c.Check(periods(series.SortedByPeriod(true)), jc.DeepEquals, []string{"2020", "1000", "999"})
	// The receiver is left in fetch order.
	c.Check(periods(series), jc.DeepEquals, []string{"999", "2020", "1000"})
}

func (s *seriesSuite) TestSortedByPeriodPutsUnparsedFirst(c *gc.C) {
	series := model.Series{
		{Period: "2001"},
		{Period: "n/a", CountryCode: "A"},
		{Period: "2000"},
		{Period: "", CountryCode: "B"},
	}
	sorted := series.SortedByPeriod(false)
	c.Check(periods(sorted), jc.DeepEquals, []string{"n/a", "", "2000", "2001"})
	c.Check(sorted[0].CountryCode, gc.Equals, "A")
	c.Check(sorted[1].CountryCode, gc.Equals, "B")
}

func (s *seriesSuite) TestLatestSkipsNullValues(c *gc.C) {
	series := model.Series{
		{Period: "2021", Value: model.Float(71.0)},
		{Period: "2023"},
		{Period: "2022", Value: model.Float(73.2)},
	}
	latest, ok := series.SortedByPeriod(true).Latest()
	c.Assert(ok, jc.IsTrue)
	c.Check(latest.Period, gc.Equals, "2022")
	c.Check(*latest.Value, gc.Equals, 73.2)
}

func (s *seriesSuite) TestLatestAbsent(c *gc.C) {
	_, ok := model.Series{{Period: "2023"}}.Latest()
	c.Check(ok, jc.IsFalse)

	_, ok = model.Series(nil).Latest()
	c.Check(ok, jc.IsFalse)
}

func (s *seriesSuite) TestNonNull(c *gc.C) {
	series := model.Series{
		{Period: "2020", Value: model.Float(1)},
		{Period: "2021"},
		{Period: "2022", Value: model.Float(0)},
	}
	c.Check(periods(series.NonNull()), jc.DeepEquals, []string{"2020", "2022"})
}

func (s *seriesSuite) TestEnergyUnavailable(c *gc.C) {
	c.Check(model.EnergyUnavailable.Available, jc.IsFalse)
	c.Check(model.EnergyUnavailable.Records, gc.HasLen, 0)
}
