package eia

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/juju/errors"
	jujutesting "github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"kardashev/internal/model"
	"kardashev/internal/providers"
)

func Test(t *testing.T) {
	gc.TestingT(t)
}

type providerSuite struct {
	requests []*http.Request
	status   int
	body     string
	server   *httptest.Server
}

var _ = gc.Suite(&providerSuite{})

func (s *providerSuite) SetUpTest(c *gc.C) {
	s.requests = nil
	s.status = http.StatusOK
	s.body = `{"response":{"data":[]}}`
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests = append(s.requests, r)
		w.WriteHeader(s.status)
		fmt.Fprint(w, s.body)
	}))
}

func (s *providerSuite) TearDownTest(c *gc.C) {
	s.server.Close()
}

func (s *providerSuite) newProvider(c *gc.C, key string) *Provider {
	p, err := NewWithConfig(Config{BaseURL: s.server.URL + "/v2"})
	c.Assert(err, jc.ErrorIsNil)
	p.lookupKey = func() string { return key }
	return p
}

var historyQuery = providers.EnergyQuery{
	Path: "/international/data/",
	Facets: map[string][]string{
		"regionId":   {"WORL"},
		"activityId": {"1"},
		"productId":  {"44"},
	},
}

func (s *providerSuite) TestMissingKeyShortCircuits(c *gc.C) {
	p := s.newProvider(c, "")
	_, err := p.FetchEnergy(context.Background(), historyQuery)
	c.Check(errors.Is(err, ErrMissingAPIKey), jc.IsTrue)
	c.Check(s.requests, gc.HasLen, 0)
}

func (s *providerSuite) TestKeyIsReadPerRequest(c *gc.C) {
	key := ""
	p := s.newProvider(c, "")
	p.lookupKey = func() string { return key }

	_, err := p.FetchEnergy(context.Background(), historyQuery)
	c.Check(errors.Is(err, ErrMissingAPIKey), jc.IsTrue)

	key = "later"
	_, err = p.FetchEnergy(context.Background(), historyQuery)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(s.requests, gc.HasLen, 1)
	c.Check(s.requests[0].URL.Query().Get("api_key"), gc.Equals, "later")
}

func (s *providerSuite) TestConfiguredKeyWins(c *gc.C) {
	p, err := NewWithConfig(Config{BaseURL: s.server.URL + "/v2", APIKey: " fixed "})
	c.Assert(err, jc.ErrorIsNil)
	p.lookupKey = func() string { return "env" }

	_, err = p.FetchEnergy(context.Background(), historyQuery)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(s.requests[0].URL.Query().Get("api_key"), gc.Equals, "fixed")
}

func (s *providerSuite) TestRequestParameters(c *gc.C) {
	p := s.newProvider(c, "secret")
	_, err := p.FetchEnergy(context.Background(), historyQuery)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(s.requests, gc.HasLen, 1)

	req := s.requests[0]
	c.Check(req.URL.Path, gc.Equals, "/v2/international/data/")
	query := req.URL.Query()
	c.Check(query.Get("api_key"), gc.Equals, "secret")
	c.Check(query.Get("frequency"), gc.Equals, "annual")
	c.Check(query.Get("data"), gc.Equals, "value")
	c.Check(query.Get("facets"), gc.Equals, `{"activityId":["1"],"productId":["44"],"regionId":["WORL"]}`)
}

func (s *providerSuite) TestInternationalRows(c *gc.C) {
	s.body = `{"response":{"total":2,"frequency":"annual","data":[
		{"period":"2022","productId":"44","productName":"Total energy","activityId":"1","activityName":"Consumption","countryRegionId":"WORL","countryRegionName":"World","unit":"QBTU","value":"604.1"},
		{"period":"2023","productId":"44","productName":"Total energy","activityId":"1","activityName":"Consumption","countryRegionId":"WORL","countryRegionName":"World","unit":"QBTU","value":"--"}
	]},"apiVersion":"2.1.7"}`
	p := s.newProvider(c, "secret")
	records, err := p.FetchEnergy(context.Background(), historyQuery)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(records, gc.HasLen, 2)
	c.Check(records[0], jc.DeepEquals, model.EnergyRecord{
		Period:     "2022",
		SeriesID:   "44",
		SeriesName: "Total energy",
		RegionID:   "WORL",
		RegionName: "World",
		Unit:       "QBTU",
		Value:      model.Float(604.1),
	})
	c.Check(records[1].Value, gc.IsNil)
}

func (s *providerSuite) TestProjectionRows(c *gc.C) {
	s.body = `{"response":{"data":[
		{"period":"2050","scenario":"ref2023","scenarioDescription":"Reference","seriesId":"cnsm_enu_wrl","seriesName":"Energy consumption","regionId":"wor","regionName":"World","unit":"quadrillion Btu","value":887.2}
	]}}`
	p := s.newProvider(c, "secret")
	records, err := p.FetchEnergy(context.Background(), providers.EnergyQuery{
		Path:   "/ieo/data/",
		Facets: map[string][]string{"scenario": {"reference"}, "regionId": {"wor"}},
	})
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(records, gc.HasLen, 1)
	c.Check(records[0].Scenario, gc.Equals, "ref2023")
	c.Check(records[0].SeriesID, gc.Equals, "cnsm_enu_wrl")
	c.Check(records[0].RegionID, gc.Equals, "wor")
	c.Check(*records[0].Value, gc.Equals, 887.2)
}

func (s *providerSuite) TestMalformedResponses(c *gc.C) {
	p := s.newProvider(c, "secret")
	for i, body := range []string{
		`<html>`,
		`[]`,
		`{"request":{}}`,
		`{"response":{"data":{}}}`,
		`{"error":"invalid facet","code":400}`,
	} {
		c.Logf("test %d: %s", i, body)
		s.body = body
		_, err := p.FetchEnergy(context.Background(), historyQuery)
		c.Check(errors.Is(err, ErrMalformedResponse), jc.IsTrue)
	}
}

func (s *providerSuite) TestHTTPErrorDoesNotLeakKey(c *gc.C) {
	s.status = http.StatusForbidden
	s.body = `{"error":{"code":"API_KEY_INVALID"}}`
	p := s.newProvider(c, "topsecret")
	_, err := p.FetchEnergy(context.Background(), historyQuery)
	c.Assert(err, gc.ErrorMatches, `fetching /international/data/: eia: request failed \(403 Forbidden\).*`)
	c.Check(strings.Contains(err.Error(), "topsecret"), jc.IsFalse)
}

func (s *providerSuite) TestTransportErrorDoesNotLeakKey(c *gc.C) {
	s.server.Close()
	p := s.newProvider(c, "topsecret")
	_, err := p.FetchEnergy(context.Background(), historyQuery)
	c.Assert(err, gc.NotNil)
	c.Check(strings.Contains(err.Error(), "topsecret"), jc.IsFalse)
}

func (s *providerSuite) TestAPIKeyEnvPrecedence(c *gc.C) {
	defer jujutesting.PatchEnvironment("NEXT_PUBLIC_EIA_API_KEY", "public")()
	defer jujutesting.PatchEnvironment("EIA_API_KEY", "server")()
	c.Check(apiKeyFromEnv(), gc.Equals, "public")

	defer jujutesting.PatchEnvironment("NEXT_PUBLIC_EIA_API_KEY", " ")()
	c.Check(apiKeyFromEnv(), gc.Equals, "server")
}

func (s *providerSuite) TestGetValueCaseInsensitiveFallbackIsStable(c *gc.C) {
	row := map[string]any{
		"SeriesId":    "mixed",
		"SERIESID":    "upper",
		"seriesid":    nil,
		"Unit":        "QBTU",
		"periodLabel": "2022",
	}
	for i := 0; i < 50; i++ {
		value, ok := getValue(row, "seriesId", "unit")
		c.Assert(ok, jc.IsTrue)
		c.Assert(value, gc.Equals, "upper")
	}

	value, ok := getValue(row, "units", "unit")
	c.Check(ok, jc.IsTrue)
	c.Check(value, gc.Equals, "QBTU")

	_, ok = getValue(row, "missing")
	c.Check(ok, jc.IsFalse)
}
