package worldbank

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"

	"kardashev/internal/model"
	"kardashev/internal/providers"
)

const (
	defaultBaseURL        = "https://api.worldbank.org/v2"
	defaultIndicatorPath  = "country/{country}/indicator/{indicator}"
	defaultFormatParam    = "format"
	defaultFormatValue    = "json"
	defaultPerPage        = 100
	defaultTimeoutSeconds = 20
	defaultUserAgent      = "Kardashev/0.1"
)

// ErrMalformedEnvelope is returned when the body is not the two element
// [metadata, observations] array the API documents.
const ErrMalformedEnvelope = errors.ConstError("worldbank: malformed envelope")

var logger = loggo.GetLogger("kardashev.providers.worldbank")

type Config struct {
	BaseURL       string
	IndicatorPath string
	FormatParam   string
	FormatValue   string
	PerPage       int
	Timeout       time.Duration
	UserAgent     string
}

type Provider struct {
	config Config
	client *http.Client
}

func New() (*Provider, error) {
	cfg, err := ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return NewWithConfig(cfg)
}

func NewWithConfig(cfg Config) (*Provider, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.NotValidf("empty worldbank base url")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if strings.TrimSpace(cfg.IndicatorPath) == "" {
		cfg.IndicatorPath = defaultIndicatorPath
	}
	if cfg.FormatParam == "" {
		cfg.FormatParam = defaultFormatParam
	}
	if cfg.FormatValue == "" {
		cfg.FormatValue = defaultFormatValue
	}
	if cfg.PerPage <= 0 {
		cfg.PerPage = defaultPerPage
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeoutSeconds * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	return &Provider{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func ConfigFromEnv() (Config, error) {
	cfg := Config{
		BaseURL:       getenv("WORLDBANK_BASE_URL", defaultBaseURL),
		IndicatorPath: getenv("WORLDBANK_INDICATOR_PATH", defaultIndicatorPath),
		FormatParam:   getenv("WORLDBANK_FORMAT_PARAM", defaultFormatParam),
		FormatValue:   getenv("WORLDBANK_FORMAT_VALUE", defaultFormatValue),
		PerPage:       getenvInt("WORLDBANK_PER_PAGE", defaultPerPage),
		UserAgent:     getenv("WORLDBANK_USER_AGENT", defaultUserAgent),
	}
	cfg.Timeout = time.Duration(getenvInt("WORLDBANK_TIMEOUT_SECONDS", defaultTimeoutSeconds)) * time.Second
	return cfg, nil
}

func (p *Provider) Name() string {
	return "worldbank"
}

func (p *Provider) FetchIndicator(ctx context.Context, query providers.IndicatorQuery) (model.Series, error) {
	country := strings.TrimSpace(query.Country)
	indicator := strings.TrimSpace(query.Indicator)
	if country == "" || indicator == "" {
		return nil, errors.NotValidf("indicator query %+v", query)
	}

	path := p.indicatorPath(country, indicator)
	params := url.Values{}
	perPage := query.PerPage
	if perPage <= 0 {
		perPage = p.config.PerPage
	}
	params.Set("per_page", strconv.Itoa(perPage))
	if date := strings.TrimSpace(query.Date); date != "" {
		params.Set("date", date)
	}

	body, err := p.doRequest(ctx, path, params)
	if err != nil {
		return nil, errors.Annotatef(err, "fetching %s for %s", indicator, country)
	}
	series, err := parseEnvelope(body)
	if err != nil {
		return nil, errors.Annotatef(err, "fetching %s for %s", indicator, country)
	}
	logger.Debugf("fetched %d observations of %s for %s", len(series), indicator, country)
	return series, nil
}

func (p *Provider) indicatorPath(country, indicator string) string {
	path := p.config.IndicatorPath
	path = strings.ReplaceAll(path, "{country}", url.PathEscape(country))
	path = strings.ReplaceAll(path, "{indicator}", url.PathEscape(indicator))
	return path
}

func (p *Provider) doRequest(ctx context.Context, path string, params url.Values) ([]byte, error) {
	endpoint := p.buildURL(path, params)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Trace(err)
	}
	req.Header.Set("Accept", "application/json")
	if p.config.UserAgent != "" {
		req.Header.Set("User-Agent", p.config.UserAgent)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Trace(err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, errors.Errorf("worldbank: request failed (%s): %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return body, nil
}

func (p *Provider) buildURL(path string, params url.Values) string {
	endpoint := p.config.BaseURL + "/" + strings.TrimLeft(path, "/")

	query := url.Values{}
	for key, values := range params {
		for _, value := range values {
			query.Add(key, value)
		}
	}
	if p.config.FormatParam != "" && p.config.FormatValue != "" {
		query.Set(p.config.FormatParam, p.config.FormatValue)
	}
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	return endpoint
}

type envelopeMeta struct {
	Message []envelopeMessage `json:"message"`
}

type envelopeMessage struct {
	ID    string `json:"id"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

type labelled struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

type observationRow struct {
	Indicator       labelled        `json:"indicator"`
	Country         labelled        `json:"country"`
	CountryISO3Code string          `json:"countryiso3code"`
	Date            string          `json:"date"`
	Value           json.RawMessage `json:"value"`
	Unit            string          `json:"unit"`
	ObsStatus       string          `json:"obs_status"`
	Decimal         int             `json:"decimal"`
}

func parseEnvelope(body []byte) (model.Series, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(body, &parts); err != nil {
		return nil, errors.Annotate(ErrMalformedEnvelope, err.Error())
	}
	if len(parts) < 2 {
		if len(parts) == 1 {
			if message := envelopeError(parts[0]); message != "" {
				return nil, errors.Annotatef(ErrMalformedEnvelope, "upstream said %q", message)
			}
		}
		return nil, errors.Annotatef(ErrMalformedEnvelope, "expected 2 elements, got %d", len(parts))
	}

	data := bytes.TrimSpace(parts[1])
	if bytes.Equal(data, []byte("null")) {
		return model.Series{}, nil
	}
	var rows []observationRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, errors.Annotate(ErrMalformedEnvelope, err.Error())
	}

	series := make(model.Series, 0, len(rows))
	for _, row := range rows {
		series = append(series, rowToObservation(row))
	}
	return series, nil
}

func envelopeError(raw json.RawMessage) string {
	var meta envelopeMeta
	if err := json.Unmarshal(raw, &meta); err != nil || len(meta.Message) == 0 {
		return ""
	}
	parts := make([]string, 0, len(meta.Message))
	for _, message := range meta.Message {
		text := strings.TrimSpace(message.Key + ": " + message.Value)
		parts = append(parts, strings.Trim(text, ": "))
	}
	return strings.Join(parts, "; ")
}

func rowToObservation(row observationRow) model.Observation {
	return model.Observation{
		IndicatorID:    strings.TrimSpace(row.Indicator.ID),
		IndicatorLabel: strings.TrimSpace(row.Indicator.Value),
		CountryCode:    strings.ToUpper(strings.TrimSpace(row.CountryISO3Code)),
		CountryLabel:   strings.TrimSpace(row.Country.Value),
		Period:         strings.TrimSpace(row.Date),
		Value:          parseValue(row.Value),
		Unit:           row.Unit,
		ObsStatus:      row.ObsStatus,
		Decimal:        row.Decimal,
	}
}

// parseValue accepts a JSON number, a numeric string or null.
func parseValue(raw json.RawMessage) *float64 {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	var number float64
	if err := json.Unmarshal(trimmed, &number); err == nil {
		return &number
	}
	var text string
	if err := json.Unmarshal(trimmed, &text); err != nil {
		return nil
	}
	parsed, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return nil
	}
	return &parsed
}

func getenv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

var _ providers.IndicatorSource = (*Provider)(nil)
