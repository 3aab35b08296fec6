package indicators_test

import (
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"kardashev/internal/indicators"
	"kardashev/internal/model"
)

type rankSuite struct{}

var _ = gc.Suite(&rankSuite{})

func obs(code string, value *float64) model.Observation {
	return model.Observation{CountryCode: code, CountryLabel: code, Period: "2023", Value: value}
}

func codes(observations []model.Observation) []string {
	out := make([]string, len(observations))
	for i, observation := range observations {
		out[i] = observation.CountryCode
	}
	return out
}

func (s *rankSuite) TestExcludesAggregates(c *gc.C) {
	series := model.Series{}
	for _, code := range []string{"WLD", "HIC", "LMC", "UMC", "LIC", "EAS", "ECS", "LCN", "MEA", "NAC", "SAS", "SSF"} {
		c.Check(indicators.IsAggregate(code), jc.IsTrue)
		series = append(series, obs(code, model.Float(99)))
	}
	series = append(series, obs("CHE", model.Float(84)))

	c.Check(codes(indicators.Rank(series, 5)), jc.DeepEquals, []string{"CHE"})
}

func (s *rankSuite) TestIsAggregateNormalizes(c *gc.C) {
	c.Check(indicators.IsAggregate(" wld "), jc.IsTrue)
	c.Check(indicators.IsAggregate("JPN"), jc.IsFalse)
	c.Check(indicators.IsAggregate(""), jc.IsFalse)
}

func (s *rankSuite) TestExcludesNullAndEmptyCodes(c *gc.C) {
	series := model.Series{
		obs("ESP", nil),
		obs("", model.Float(90)),
		obs("  ", model.Float(89)),
		obs("KOR", model.Float(83.5)),
	}
	c.Check(codes(indicators.Rank(series, 5)), jc.DeepEquals, []string{"KOR"})
}

func (s *rankSuite) TestDescendingAndTruncated(c *gc.C) {
	series := model.Series{
		obs("A", model.Float(70)),
		obs("B", model.Float(81)),
		obs("C", model.Float(75)),
		obs("D", model.Float(84)),
		obs("E", model.Float(60)),
		obs("F", model.Float(79)),
		obs("G", model.Float(82)),
	}
	ranked := indicators.Rank(series, indicators.TopN)
	c.Check(codes(ranked), jc.DeepEquals, []string{"D", "G", "B", "F", "C"})
	for i := 1; i < len(ranked); i++ {
		c.Check(*ranked[i-1].Value >= *ranked[i].Value, jc.IsTrue)
	}
}

func (s *rankSuite) TestStableForTies(c *gc.C) {
	series := model.Series{
		obs("X", model.Float(80)),
		obs("Y", model.Float(85)),
		obs("Z", model.Float(80)),
		obs("W", model.Float(80)),
	}
	c.Check(codes(indicators.Rank(series, 5)), jc.DeepEquals, []string{"Y", "X", "Z", "W"})
}

func (s *rankSuite) TestDoesNotMutateInput(c *gc.C) {
	series := model.Series{
		obs("A", model.Float(1)),
		obs("B", model.Float(2)),
	}
	indicators.Rank(series, 5)
	c.Check(codes(series), jc.DeepEquals, []string{"A", "B"})
}

func (s *rankSuite) TestEmpty(c *gc.C) {
	c.Check(indicators.Rank(nil, 5), gc.HasLen, 0)
	c.Check(indicators.Rank(model.Series{obs("A", model.Float(1))}, 0), gc.HasLen, 0)
}
