// Package wikipedia implements harvest.ContentSource against the MediaWiki
// action API using gocolly.
package wikipedia

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/JakeFAU/topic-harvester/internal/harvest"
)

const (
	// DefaultEndpoint is the English Wikipedia action API.
	DefaultEndpoint = "https://en.wikipedia.org/w/api.php"
	// DefaultMinInterval matches the spacing the public API asks clients to keep.
	DefaultMinInterval = 50 * time.Millisecond

	defaultTimeout = 15 * time.Second
	maxSearchLimit = 500
	maxContinues   = 50
)

// RateLimit spaces requests issued by one Client.
type RateLimit struct {
	Enabled     bool          `mapstructure:"enabled"`
	MinInterval time.Duration `mapstructure:"min_interval"`
}

// Config controls the client.
type Config struct {
	Endpoint  string        `mapstructure:"endpoint"`
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit RateLimit     `mapstructure:"rate_limit"`
}

// Client searches and fetches Wikipedia pages. It is safe for concurrent use;
// the rate limit applies across all goroutines sharing one Client.
type Client struct {
	cfg           Config
	baseCollector *colly.Collector
	limiter       *rate.Limiter
	logger        *zap.Logger
}

var _ harvest.ContentSource = (*Client)(nil)

// New builds a Client.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := colly.NewCollector(colly.AllowURLRevisit())
	c.SetRequestTimeout(cfg.Timeout)
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}

	var limiter *rate.Limiter
	if cfg.RateLimit.Enabled {
		interval := cfg.RateLimit.MinInterval
		if interval <= 0 {
			interval = DefaultMinInterval
		}
		limiter = rate.NewLimiter(rate.Every(interval), 1)
	}

	return &Client{
		cfg:           cfg,
		baseCollector: c,
		limiter:       limiter,
		logger:        logger,
	}
}

// Search returns up to limit page titles related to term, in API rank order.
func (c *Client) Search(ctx context.Context, term string, limit int) ([]string, error) {
	if limit <= 0 {
		return []string{}, nil
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	params := url.Values{
		"action":        {"query"},
		"list":          {"search"},
		"srsearch":      {term},
		"srlimit":       {strconv.Itoa(limit)},
		"srprop":        {""},
		"format":        {"json"},
		"formatversion": {"2"},
	}

	var resp searchResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, fmt.Errorf("search %q: %w", term, err)
	}
	if err := resp.Error.err(); err != nil {
		return nil, fmt.Errorf("search %q: %w", term, err)
	}

	titles := make([]string, 0, len(resp.Query.Search))
	for _, hit := range resp.Query.Search {
		titles = append(titles, hit.Title)
		if len(titles) == limit {
			break
		}
	}
	c.logger.Debug("search complete", zap.String("term", term), zap.Int("results", len(titles)))
	return titles, nil
}

// Fetch resolves title (following redirects) and returns its external links.
// Missing pages wrap harvest.ErrNotFound, disambiguation pages wrap
// harvest.ErrAmbiguous and timeouts wrap harvest.ErrTimeout.
func (c *Client) Fetch(ctx context.Context, title string) (harvest.Page, error) {
	params := url.Values{
		"action":        {"query"},
		"prop":          {"extlinks|pageprops"},
		"ppprop":        {"disambiguation"},
		"titles":        {title},
		"redirects":     {"1"},
		"ellimit":       {"max"},
		"format":        {"json"},
		"formatversion": {"2"},
	}

	page := harvest.Page{Title: title, References: []string{}}
	for i := 0; i < maxContinues; i++ {
		var resp pageResponse
		if err := c.get(ctx, params, &resp); err != nil {
			return harvest.Page{}, fmt.Errorf("fetch %q: %w", title, err)
		}
		if err := resp.Error.err(); err != nil {
			return harvest.Page{}, fmt.Errorf("fetch %q: %w", title, err)
		}
		if len(resp.Query.Pages) == 0 {
			return harvest.Page{}, fmt.Errorf("fetch %q: %w", title, harvest.ErrNotFound)
		}

		p := resp.Query.Pages[0]
		switch {
		case p.Invalid:
			return harvest.Page{}, fmt.Errorf("%q is not a valid title (%s): %w", title, p.InvalidReason, harvest.ErrNotFound)
		case p.Missing:
			return harvest.Page{}, fmt.Errorf("%q does not match any pages: %w", title, harvest.ErrNotFound)
		case p.isDisambiguation():
			return harvest.Page{}, fmt.Errorf("%q may refer to several pages: %w", p.Title, harvest.ErrAmbiguous)
		}

		if p.Title != "" {
			page.Title = p.Title
		}
		for _, link := range p.ExtLinks {
			page.References = append(page.References, normalizeLink(link.URL))
		}

		next := resp.Continue.ExtLinks
		if next == "" {
			return page, nil
		}
		params.Set("elcontinue", next)
		params.Set("continue", resp.Continue.Continue)
	}
	c.logger.Warn("extlink continuation limit reached", zap.String("title", title), zap.Int("links", len(page.References)))
	return page, nil
}

func (c *Client) get(ctx context.Context, params url.Values, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	var (
		body     []byte
		fetchErr error
	)
	collector := c.baseCollector.Clone()
	collector.OnResponse(func(r *colly.Response) {
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	target := c.cfg.Endpoint + "?" + params.Encode()
	if err := c.runCollector(ctx, collector, target, &fetchErr); err != nil {
		return err
	}
	return decode(body, out)
}

func (c *Client) runCollector(ctx context.Context, collector *colly.Collector, target string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(target)
	}()

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %v", harvest.ErrTimeout, ctx.Err())
		}
		return fmt.Errorf("request canceled: %w", ctx.Err())
	case err := <-done:
		if err == nil {
			err = *fetchErr
		}
		if err == nil {
			return nil
		}
		if isTimeout(err) {
			return fmt.Errorf("%w: %v", harvest.ErrTimeout, err)
		}
		return fmt.Errorf("request failed: %w", err)
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout())
}
