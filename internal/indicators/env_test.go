package indicators_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"

	jujutesting "github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"kardashev/internal/indicators"
)

type envSuite struct {
	jujutesting.IsolationSuite
}

var _ = gc.Suite(&envSuite{})

func (s *envSuite) TestServiceFromEnvDefaults(c *gc.C) {
	svc, err := indicators.ServiceFromEnv(nil)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(svc.RankingPeriod(), gc.Equals, indicators.DefaultRankingPeriod)
}

func (s *envSuite) TestServiceFromEnvOverrides(c *gc.C) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		c.Check(r.URL.Query().Get("date"), gc.Equals, "2021")
		_, _ = w.Write([]byte(`[{"page":1},null]`))
	}))
	defer server.Close()

	s.PatchEnvironment("WORLDBANK_BASE_URL", server.URL)
	s.PatchEnvironment("KARDASHEV_RANKING_PERIOD", " 2021 ")

	svc, err := indicators.ServiceFromEnv(nil)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(svc.RankingPeriod(), gc.Equals, "2021")

	snapshot := svc.TopCountriesLifeExpectancy(context.Background())
	c.Check(snapshot.Period, gc.Equals, "2021")
	c.Check(snapshot.Entries, gc.HasLen, 0)
	c.Check(atomic.LoadInt32(&hits), gc.Equals, int32(1))
}

func (s *envSuite) TestServiceFromEnvWithoutKeyIsUnavailable(c *gc.C) {
	for _, name := range []string{"EIA_API_KEY", "NEXT_PUBLIC_EIA_API_KEY"} {
		s.PatchEnvironment(name, "")
	}
	svc, err := indicators.ServiceFromEnv(nil)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(svc.EnergyConsumptionHistory(context.Background()).Available, jc.IsFalse)
}

func (s *envSuite) TestRankingPeriodFromEnv(c *gc.C) {
	s.PatchEnvironment("KARDASHEV_RANKING_PERIOD", "")
	c.Check(indicators.RankingPeriodFromEnv(), gc.Equals, "")

	s.PatchEnvironment("KARDASHEV_RANKING_PERIOD", "\t2020 ")
	c.Check(indicators.RankingPeriodFromEnv(), gc.Equals, "2020")
}
