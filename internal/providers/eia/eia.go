package eia

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"

	"kardashev/internal/model"
	"kardashev/internal/providers"
)

const (
	defaultBaseURL        = "https://api.eia.gov/v2"
	defaultAPIKeyParam    = "api_key"
	defaultFrequency      = "annual"
	defaultData           = "value"
	defaultTimeoutSeconds = 20
	defaultUserAgent      = "Kardashev/0.1"
)

// APIKeyEnv lists the variables consulted, in order, for the API key.
var APIKeyEnv = []string{"NEXT_PUBLIC_EIA_API_KEY", "EIA_API_KEY"}

const (
	ErrMissingAPIKey     = errors.ConstError("eia: api key is not configured")
	ErrMalformedResponse = errors.ConstError("eia: malformed response")
)

var logger = loggo.GetLogger("kardashev.providers.eia")

type Config struct {
	BaseURL     string
	APIKey      string
	APIKeyParam string
	Timeout     time.Duration
	UserAgent   string
}

type Provider struct {
	config Config
	client *http.Client
	// lookupKey is consulted on every request when Config.APIKey is empty.
	lookupKey func() string
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
		return nil, errors.NotValidf("empty eia base url")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKeyParam == "" {
		cfg.APIKeyParam = defaultAPIKeyParam
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeoutSeconds * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	return &Provider{
		config:    cfg,
		client:    &http.Client{Timeout: cfg.Timeout},
		lookupKey: apiKeyFromEnv,
	}, nil
}

// ConfigFromEnv leaves APIKey empty so that the key is read per request.
func ConfigFromEnv() (Config, error) {
	cfg := Config{
		BaseURL:     getenv("EIA_BASE_URL", defaultBaseURL),
		APIKeyParam: getenv("EIA_API_KEY_PARAM", defaultAPIKeyParam),
		UserAgent:   getenv("EIA_USER_AGENT", defaultUserAgent),
	}
	cfg.Timeout = time.Duration(getenvInt("EIA_TIMEOUT_SECONDS", defaultTimeoutSeconds)) * time.Second
	return cfg, nil
}

func (p *Provider) Name() string {
	return "eia"
}

func (p *Provider) apiKey() string {
	if p.config.APIKey != "" {
		return p.config.APIKey
	}
	if p.lookupKey == nil {
		return ""
	}
	return strings.TrimSpace(p.lookupKey())
}

func (p *Provider) FetchEnergy(ctx context.Context, query providers.EnergyQuery) ([]model.EnergyRecord, error) {
	key := p.apiKey()
	if key == "" {
		return nil, ErrMissingAPIKey
	}
	if strings.TrimSpace(query.Path) == "" {
		return nil, errors.NotValidf("empty eia route")
	}

	params, err := queryParams(query)
	if err != nil {
		return nil, errors.Annotatef(err, "encoding facets for %s", query.Path)
	}
	body, err := p.doRequest(ctx, query.Path, params, key)
	if err != nil {
		return nil, errors.Annotatef(err, "fetching %s", query.Path)
	}
	records, err := parseRecords(body)
	if err != nil {
		return nil, errors.Annotatef(err, "fetching %s", query.Path)
	}
	logger.Debugf("fetched %d records from %s", len(records), query.Path)
	return records, nil
}

func queryParams(query providers.EnergyQuery) (url.Values, error) {
	params := url.Values{}
	frequency := query.Frequency
	if frequency == "" {
		frequency = defaultFrequency
	}
	data := query.Data
	if data == "" {
		data = defaultData
	}
	params.Set("frequency", frequency)
	params.Set("data", data)
	if len(query.Facets) > 0 {
		// encoding/json writes map keys in sorted order.
		encoded, err := json.Marshal(query.Facets)
		if err != nil {
			return nil, errors.Trace(err)
		}
		params.Set("facets", string(encoded))
	}
	return params, nil
}

func (p *Provider) doRequest(ctx context.Context, path string, params url.Values, key string) ([]byte, error) {
	endpoint := p.buildURL(path, params, key)

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
		// The url in a transport error carries the api key.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return nil, errors.Errorf("eia: %s %s: %v", urlErr.Op, path, urlErr.Err)
		}
		return nil, errors.Trace(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, errors.Errorf("eia: request failed (%s): %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return body, nil
}

func (p *Provider) buildURL(path string, params url.Values, key string) string {
	endpoint := p.config.BaseURL + "/" + strings.TrimLeft(path, "/")

	query := url.Values{}
	for name, values := range params {
		for _, value := range values {
			query.Add(name, value)
		}
	}
	query.Set(p.config.APIKeyParam, key)
	return endpoint + "?" + query.Encode()
}

func parseRecords(body []byte) ([]model.EnergyRecord, error) {
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	var payload map[string]any
	if err := decoder.Decode(&payload); err != nil {
		return nil, errors.Annotate(ErrMalformedResponse, err.Error())
	}
	if message, ok := getString(payload, "error"); ok {
		return nil, errors.Annotatef(ErrMalformedResponse, "upstream said %q", message)
	}

	response, ok := payload["response"].(map[string]any)
	if !ok {
		return nil, errors.Annotate(ErrMalformedResponse, "missing response object")
	}
	rawRows, ok := response["data"].([]any)
	if !ok {
		return nil, errors.Annotate(ErrMalformedResponse, "missing response data")
	}

	records := make([]model.EnergyRecord, 0, len(rawRows))
	for _, raw := range rawRows {
		row, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		records = append(records, rowToRecord(row))
	}
	return records, nil
}

func rowToRecord(row map[string]any) model.EnergyRecord {
	record := model.EnergyRecord{}
	record.Period, _ = getString(row, "period")
	record.SeriesID, _ = getString(row, "seriesId", "productId", "activityId")
	record.SeriesName, _ = getString(row, "seriesName", "productName", "activityName")
	record.RegionID, _ = getString(row, "regionId", "countryRegionId")
	record.RegionName, _ = getString(row, "regionName", "countryRegionName")
	record.Scenario, _ = getString(row, "scenario", "scenarioDescription")
	record.Unit, _ = getString(row, "unit", "units")
	if value, ok := getFloat(row, "value"); ok {
		record.Value = &value
	}
	return record
}

func getString(row map[string]any, keys ...string) (string, bool) {
	value, ok := getValue(row, keys...)
	if !ok {
		return "", false
	}
	switch typed := value.(type) {
	case string:
		trimmed := strings.TrimSpace(typed)
		if trimmed == "" {
			return "", false
		}
		return trimmed, true
	case json.Number:
		return typed.String(), true
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64), true
	default:
		return "", false
	}
}

// getFloat treats placeholder strings such as "--" or "NA" as missing.
func getFloat(row map[string]any, keys ...string) (float64, bool) {
	value, ok := getValue(row, keys...)
	if !ok {
		return 0, false
	}
	switch typed := value.(type) {
	case json.Number:
		parsed, err := typed.Float64()
		if err != nil {
			return 0, false
		}
		return parsed, true
	case float64:
		return typed, true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func getValue(row map[string]any, keys ...string) (any, bool) {
	for _, key := range keys {
		if value, ok := row[key]; ok && value != nil {
			return value, true
		}
	}
	rowKeys := make([]string, 0, len(row))
	for rowKey := range row {
		rowKeys = append(rowKeys, rowKey)
	}
	sort.Strings(rowKeys)
	for _, key := range keys {
		for _, rowKey := range rowKeys {
			if value := row[rowKey]; value != nil && strings.EqualFold(rowKey, key) {
				return value, true
			}
		}
	}
	return nil, false
}

func apiKeyFromEnv() string {
	for _, name := range APIKeyEnv {
		if value := strings.TrimSpace(os.Getenv(name)); value != "" {
			return value
		}
	}
	return ""
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

var _ providers.EnergySource = (*Provider)(nil)
