// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package eutils talks to NCBI E-utilities and the PMC ID converter: it
// searches PubMed, translates PMIDs to PMCIDs, fetches PMC full text, and
// lists the PMC papers each paper cites. Responses are XML.
//
// The E-utilities API documentation is available at
// https://www.ncbi.nlm.nih.gov/books/NBK25499/
package eutils

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/methnet/internal/httputil"
	"github.com/pdiddy/methnet/internal/observability"
	"github.com/pdiddy/methnet/internal/ratelimit"
	"github.com/pdiddy/methnet/pkg/types"
)

// Base URLs. Declared as vars so tests can substitute httptest servers.
var (
	eutilsBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"
	idconvBase = "https://www.ncbi.nlm.nih.gov/pmc/utils/idconv/v1.0/"
)

const (
	// DefaultTool is sent as the tool parameter when none is configured.
	DefaultTool = "methnet"

	// DefaultMaxResults is the esearch retmax cap. Hits beyond it are dropped.
	DefaultMaxResults = 10000

	// MaxTranslateBatch is the ID converter's per-request identifier limit.
	MaxTranslateBatch = 200

	defaultUserAgent = "methnet/0.1"
)

// Endpoint labels used for metrics and logs.
const (
	endpointSearch = "esearch"
	endpointIDConv = "idconv"
	endpointFetch  = "efetch"
	endpointLink   = "elink"
)

// Client issues E-utilities requests. It is not safe for concurrent use:
// the pipeline is sequential and the client remembers the last raw body.
type Client struct {
	cfg        types.NCBIConfig
	httpClient *http.Client
	throttle   *ratelimit.Throttler
	log        zerolog.Logger
	metrics    *observability.Metrics
	baseURL    string
	idconvURL  string
	lastBody   []byte
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger used for warnings.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithMetrics records per-endpoint request counts into m.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithThrottler replaces the throttler used between translation batches.
func WithThrottler(t *ratelimit.Throttler) Option {
	return func(c *Client) { c.throttle = t }
}

// WithBaseURLs points the client at alternate E-utilities and ID converter
// endpoints. Empty values keep the defaults.
func WithBaseURLs(eutils, idconv string) Option {
	return func(c *Client) {
		if eutils != "" {
			c.baseURL = strings.TrimRight(eutils, "/")
		}
		if idconv != "" {
			c.idconvURL = idconv
		}
	}
}

// New creates a client for cfg. Without an API key the throttler uses the
// anonymous ceiling.
func New(cfg types.NCBIConfig, opts ...Option) *Client {
	applyDefaults(&cfg)
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		throttle:   ratelimit.New(cfg.APIKey != ""),
		log:        zerolog.Nop(),
		baseURL:    eutilsBase,
		idconvURL:  idconvBase,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func applyDefaults(cfg *types.NCBIConfig) {
	if cfg.Tool == "" {
		cfg.Tool = DefaultTool
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
}

// Throttler returns the throttler shared with callers that pace
// per-record requests.
func (c *Client) Throttler() *ratelimit.Throttler {
	return c.throttle
}

// LastBody returns the most recent raw response body, including bodies of
// failed requests. It is kept for failure dumps.
func (c *Client) LastBody() []byte {
	return c.lastBody
}

// SearchURL builds the esearch request for a free-text PubMed query.
func (c *Client) SearchURL(query string) string {
	params := c.baseParams()
	params.Set("db", "pubmed")
	params.Set("term", query)
	params.Set("usehistory", "y")
	params.Set("retmax", strconv.Itoa(c.cfg.MaxResults))
	return c.baseURL + "/esearch.fcgi?" + params.Encode()
}

// FullTextURL builds the efetch request for one PMC article. The search
// history WebEnv is forwarded when present.
func (c *Client) FullTextURL(pmcid string, hist History) string {
	params := c.baseParams()
	params.Set("db", "pmc")
	params.Set("id", types.PMCIDNumber(pmcid))
	params.Set("retmode", "xml")
	if hist.WebEnv != "" {
		params.Set("WebEnv", hist.WebEnv)
	}
	return c.baseURL + "/efetch.fcgi?" + params.Encode()
}

// LinksURL builds the elink request listing the PMC papers pmcid cites.
func (c *Client) LinksURL(pmcid string) string {
	params := c.baseParams()
	params.Set("dbfrom", "pmc")
	params.Set("db", "pmc")
	params.Set("linkname", "pmc_pmc_cites")
	params.Set("id", types.PMCIDNumber(pmcid))
	return c.baseURL + "/elink.fcgi?" + params.Encode()
}

// TranslateURL builds the ID converter request for one batch of PMIDs.
func (c *Client) TranslateURL(pmids []string) string {
	params := c.baseParams()
	params.Set("ids", strings.Join(pmids, ","))
	params.Set("idtype", "pmid")
	params.Set("format", "xml")
	return c.idconvURL + "?" + params.Encode()
}

func (c *Client) baseParams() url.Values {
	params := url.Values{}
	params.Set("tool", c.cfg.Tool)
	if c.cfg.Email != "" {
		params.Set("email", c.cfg.Email)
	}
	if c.cfg.APIKey != "" {
		params.Set("api_key", c.cfg.APIKey)
	}
	return params
}

// get fetches reqURL and keeps the body as the last raw response.
func (c *Client) get(ctx context.Context, endpoint, reqURL string) ([]byte, error) {
	c.metrics.Request(endpoint)
	body, err := httputil.GetBody(ctx, c.httpClient, reqURL, c.cfg.UserAgent, c.cfg.MaxRetries)
	c.lastBody = body
	if err != nil {
		c.metrics.Failure(endpoint)
		return body, err
	}
	return body, nil
}
