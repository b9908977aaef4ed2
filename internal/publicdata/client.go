// Package publicdata provides clients for the Korean public-data portal
// (commercial registry) and the Seoul open-data API (floating population).
//
// The fetch operations never return errors. Upstream flakiness must not
// abort a collection run, so every failure path degrades to the neutral
// default (0 stores, empty population map) and emits a structured log so
// operators can tell "genuinely zero" from "unreachable".
package publicdata

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/openinsight-kr/market-pulse/internal/common"
	"github.com/openinsight-kr/market-pulse/internal/model"
	"github.com/openinsight-kr/market-pulse/internal/service"
)

// Config holds upstream API configuration.
type Config struct {
	RegistryKey   string // service key for the commercial registry API
	RegistryURL   string // base URL of the store-count endpoint
	PopulationKey string // key for the Seoul open-data API
	PopulationURL string // base URL of the Seoul open-data API
	Timeout       time.Duration
}

// Validate checks that the upstream configuration is complete. A missing
// key is not fatal to a run: callers warn and proceed, and every call
// fails through the degradation path, producing all-simulated data.
func (c *Config) Validate() error {
	if missing := c.MissingKeys(); len(missing) > 0 {
		return fmt.Errorf("%w: %s", common.ErrMissingConfig, strings.Join(missing, ", "))
	}
	return nil
}

// MissingKeys returns the names of unset configuration fields.
func (c *Config) MissingKeys() []string {
	var missing []string
	if c.RegistryKey == "" {
		missing = append(missing, "registry.api_key")
	}
	if c.RegistryURL == "" {
		missing = append(missing, "registry.base_url")
	}
	if c.PopulationKey == "" {
		missing = append(missing, "population.api_key")
	}
	if c.PopulationURL == "" {
		missing = append(missing, "population.base_url")
	}
	return missing
}

// Client implements the service.SignalFetcher interface.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	cfg        Config
	retryOpts  service.RetryOptions
}

// NewClient creates a new public-data client with the given configuration.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     slog.Default().With("component", "publicdata"),
		retryOpts: service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 2 * time.Second,
			MaxDelay:     2 * time.Second,
			Multiplier:   1.0,
		},
	}
}

// WithRetryOptions overrides the retry behavior. Tests use this to avoid
// real backoff delays.
func (c *Client) WithRetryOptions(opts service.RetryOptions) *Client {
	c.retryOpts = opts
	return c
}

// storeCountBody is the success shape of the registry lookup. Anything
// else counts as zero stores.
type storeCountBody struct {
	Body struct {
		TotalCount *int `json:"totalCount"`
	} `json:"body"`
}

// FetchStoreCount returns the number of registered stores for the
// administrative code, optionally narrowed to a registry classification
// code. Transient failures are retried; after the retry budget is spent
// the call returns 0.
func (c *Client) FetchStoreCount(ctx context.Context, admCode, categoryCode string) int {
	params := url.Values{}
	params.Set("serviceKey", c.cfg.RegistryKey)
	params.Set("pageNo", "1")
	params.Set("numOfRows", "1")
	params.Set("divId", "adongCd")
	params.Set("key", admCode)
	params.Set("type", "json")
	if categoryCode != "" {
		params.Set("indsSclsCd", categoryCode)
	}

	var count int
	err := common.WithRetry(ctx, func() error {
		n, err := c.requestStoreCount(ctx, params)
		if err != nil {
			return err
		}
		count = n
		return nil
	}, c.retryOpts)

	if err != nil {
		c.logger.Warn("store count lookup failed, defaulting to zero",
			"adm_code", admCode,
			"category_code", categoryCode,
			"error", err)
		return 0
	}

	return count
}

func (c *Client) requestStoreCount(ctx context.Context, params url.Values) (int, error) {
	reqURL := c.cfg.RegistryURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, &common.RetryableError{Err: err, Retryable: false}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: %d", common.ErrUpstreamStatus, resp.StatusCode)
	}

	// The portal occasionally serves JSON with a text/html content type.
	var body storeCountBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, &common.RetryableError{
			Err:       fmt.Errorf("%w: %v", common.ErrUpstreamMalformed, err),
			Retryable: false,
		}
	}

	if body.Body.TotalCount == nil {
		// 200 with no data body: treat as zero stores.
		c.logger.Warn("registry response missing totalCount, treating as zero")
		return 0, nil
	}

	return *body.Body.TotalCount, nil
}

// flexFloat decodes Seoul open-data numeric fields, which arrive as either
// JSON numbers or quoted strings like "12345.0".
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

type populationRow struct {
	AdmCode string    `json:"ADSTRD_CODE_SE"`
	Total   flexFloat `json:"TOT_LVPOP_CO"`
	Male    flexFloat `json:"MALE_LVPOP_CO"`
	Female  flexFloat `json:"FEMALE_LVPOP_CO"`
	Age10s  flexFloat `json:"AGE_10_19_LVPOP_CO"`
	Age20s  flexFloat `json:"AGE_20_29_LVPOP_CO"`
	Age30s  flexFloat `json:"AGE_30_39_LVPOP_CO"`
	Age40s  flexFloat `json:"AGE_40_49_LVPOP_CO"`
	Age50s  flexFloat `json:"AGE_50_59_LVPOP_CO"`
	Age60s  flexFloat `json:"AGE_60_69_LVPOP_CO"`
	Age70Up flexFloat `json:"AGE_70_ABOVE_LVPOP_CO"`
}

type populationResponse struct {
	Dataset struct {
		Rows []populationRow `json:"row"`
	} `json:"SPOP_LOCAL_RESD_DONG"`
}

// FetchPopulationSnapshot performs the single bulk population fetch for a
// run. It returns an empty map on any failure; callers treat missing codes
// as population zero.
func (c *Client) FetchPopulationSnapshot(ctx context.Context) map[string]model.PopulationRecord {
	popMap := make(map[string]model.PopulationRecord)

	reqURL := fmt.Sprintf("%s/%s/json/SPOP_LOCAL_RESD_DONG/1/1000/",
		strings.TrimRight(c.cfg.PopulationURL, "/"), c.cfg.PopulationKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		c.logger.Error("failed to build population request", "error", err)
		return popMap
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("population fetch failed", "error", err)
		return popMap
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("population fetch returned unexpected status", "status", resp.StatusCode)
		return popMap
	}

	var parsed populationResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		c.logger.Error("population response malformed", "error", err)
		return popMap
	}

	if len(parsed.Dataset.Rows) == 0 {
		c.logger.Warn("population response contained no rows")
		return popMap
	}

	for _, row := range parsed.Dataset.Rows {
		popMap[row.AdmCode] = model.PopulationRecord{
			Total:              int(row.Total),
			Male:               int(row.Male),
			Female:             int(row.Female),
			DominantAgeBracket: dominantBracket(row),
		}
	}

	c.logger.Info("population snapshot loaded", "areas", len(popMap))
	return popMap
}

// dominantBracket finds the largest age bucket. The 60+ bracket sums the
// upstream 60-69 and 70+ fields.
func dominantBracket(row populationRow) string {
	brackets := []struct {
		label string
		value float64
	}{
		{"10s", float64(row.Age10s)},
		{"20s", float64(row.Age20s)},
		{"30s", float64(row.Age30s)},
		{"40s", float64(row.Age40s)},
		{"50s", float64(row.Age50s)},
		{"60+", float64(row.Age60s) + float64(row.Age70Up)},
	}

	dominant := brackets[0]
	for _, b := range brackets[1:] {
		if b.value > dominant.value {
			dominant = b
		}
	}
	return dominant.label
}
