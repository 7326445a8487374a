package remote

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"starmap-server/internal/shared/errors"
	"starmap-server/internal/sky"
	"starmap-server/internal/votable"
)

const (
	DefaultSimbadURL    = "https://simbad.cds.unistra.fr/simbad/sim-tap/sync"
	DefaultVizierURL    = "https://vizier.cds.unistra.fr/viz-bin/votable"
	DefaultVizierSource = "I/131A/sao"
	DefaultProviderName = "Gaia DR3"
	DefaultCatalogTag   = "SAO "

	DefaultIdentifierTimeout = 30 * time.Second
	DefaultConeTimeout       = 30 * time.Second

	coneColumns  = "SAO,_RAJ2000,_DEJ2000,Vmag"
	pointColumns = "SAO,_RAJ2000,_DEJ2000,Vmag,SpType"

	maxResponseBytes = 4 << 20
)

type Options struct {
	SimbadURL    string
	VizierURL    string
	VizierSource string
	ProviderName string
	CatalogTag   string
	UserAgent    string

	IdentifierTimeout time.Duration
	ConeTimeout       time.Duration

	// RequestsPerSecond throttles outbound calls across all goroutines sharing
	// the client. Zero disables throttling.
	RequestsPerSecond float64
	BurstSize         int

	HTTPClient *http.Client
}

// Client queries SIMBAD and VizieR for legacy catalog numbers. Every failure
// is logged and reported as "not found"; nothing is retried.
type Client struct {
	opts    Options
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewClient(opts Options, logger *slog.Logger) *Client {
	if opts.SimbadURL == "" {
		opts.SimbadURL = DefaultSimbadURL
	}
	if opts.VizierURL == "" {
		opts.VizierURL = DefaultVizierURL
	}
	if opts.VizierSource == "" {
		opts.VizierSource = DefaultVizierSource
	}
	if opts.ProviderName == "" {
		opts.ProviderName = DefaultProviderName
	}
	if opts.CatalogTag == "" {
		opts.CatalogTag = DefaultCatalogTag
	}
	if opts.IdentifierTimeout <= 0 {
		opts.IdentifierTimeout = DefaultIdentifierTimeout
	}
	if opts.ConeTimeout <= 0 {
		opts.ConeTimeout = DefaultConeTimeout
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		burst := opts.BurstSize
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	logger.Debug("Initializing remote cross-match client",
		"simbad_url", opts.SimbadURL,
		"vizier_url", opts.VizierURL,
		"identifier_timeout", opts.IdentifierTimeout,
		"cone_timeout", opts.ConeTimeout,
		"rate_limited", limiter != nil,
	)

	return &Client{
		opts:    opts,
		http:    httpClient,
		limiter: limiter,
		logger:  logger,
	}
}

// QueryIdentifier asks SIMBAD for the catalog designation cross-identified
// with the provider's designation of sourceID.
func (c *Client) QueryIdentifier(ctx context.Context, sourceID int64) (int, bool) {
	logger := c.logger.With("component", "remote_client", "operation", "query_identifier", "source_id", sourceID)

	body, err := c.get(ctx, c.identifierURL(sourceID), c.opts.IdentifierTimeout)
	if err != nil {
		logger.Warn("SIMBAD identifier query failed", "error", err)
		return 0, false
	}

	n, ok := votable.NumberAfterTag(body, c.opts.CatalogTag)
	if !ok {
		logger.Debug("No catalog designation in SIMBAD response")
		return 0, false
	}

	logger.Debug("SIMBAD identifier query matched", "catalog_number", n)
	return n, true
}

// ConeSearch asks VizieR for the closest catalog entry around pos.
func (c *Client) ConeSearch(ctx context.Context, pos sky.Position, radiusArcsec float64) (int, bool) {
	logger := c.logger.With("component", "remote_client", "operation", "cone_search",
		"ra", pos.RA, "dec", pos.Dec, "radius_arcsec", radiusArcsec)

	body, err := c.get(ctx, c.coneURL(pos, radiusArcsec), c.opts.ConeTimeout)
	if err != nil {
		logger.Warn("VizieR cone search failed", "error", err)
		return 0, false
	}

	n, ok := votable.FirstCellNumber(body)
	if !ok {
		logger.Debug("No catalog entry in VizieR cone response")
		return 0, false
	}

	logger.Debug("VizieR cone search matched", "catalog_number", n)
	return n, true
}

// QueryNumber fetches a single catalog entry from VizieR by its number.
func (c *Client) QueryNumber(ctx context.Context, number int) (sky.CrossMatchEntry, bool) {
	logger := c.logger.With("component", "remote_client", "operation", "query_number", "catalog_number", number)

	body, err := c.get(ctx, c.numberURL(number), c.opts.ConeTimeout)
	if err != nil {
		logger.Warn("VizieR point query failed", "error", err)
		return sky.CrossMatchEntry{}, false
	}

	entry, err := parseEntryRow(votable.FirstRowCells(body))
	if err != nil {
		logger.Debug("No usable row in VizieR point response", "error", err)
		return sky.CrossMatchEntry{}, false
	}
	if entry.Number != number {
		logger.Warn("VizieR returned a different catalog entry", "returned_number", entry.Number)
		return sky.CrossMatchEntry{}, false
	}

	return entry, true
}

func (c *Client) get(ctx context.Context, url string, timeout time.Duration) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", errors.WrapExternal("rate limiter wait aborted", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", errors.WrapInternal("failed to build request", err)
	}
	if c.opts.UserAgent != "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.WrapExternal("request failed", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Debug("Failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", errors.External(fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", errors.WrapExternal("failed to read response body", err)
	}
	return string(data), nil
}

// parseEntryRow maps the pointColumns cells onto an entry.
func parseEntryRow(cells []string) (sky.CrossMatchEntry, error) {
	if len(cells) < 4 {
		return sky.CrossMatchEntry{}, fmt.Errorf("expected at least 4 cells, got %d", len(cells))
	}

	number, err := strconv.Atoi(cells[0])
	if err != nil {
		return sky.CrossMatchEntry{}, fmt.Errorf("invalid catalog number %q: %w", cells[0], err)
	}
	ra, err := parseFinite(cells[1])
	if err != nil {
		return sky.CrossMatchEntry{}, fmt.Errorf("invalid right ascension %q: %w", cells[1], err)
	}
	dec, err := parseFinite(cells[2])
	if err != nil {
		return sky.CrossMatchEntry{}, fmt.Errorf("invalid declination %q: %w", cells[2], err)
	}

	entry := sky.CrossMatchEntry{
		Number:   number,
		Position: sky.Position{RA: ra, Dec: dec},
	}
	if cells[3] != "" {
		mag, err := parseFinite(cells[3])
		if err != nil {
			return sky.CrossMatchEntry{}, fmt.Errorf("invalid magnitude %q: %w", cells[3], err)
		}
		entry.Magnitude = mag
	}
	if len(cells) > 4 {
		entry.SpectralType = cells[4]
	}
	return entry, nil
}

func parseFinite(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not a finite number")
	}
	return v, nil
}
