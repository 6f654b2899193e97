// Package scraper extracts customer records from the portal: it
// harvests detail links from the listing table, fetches each detail
// page over the authenticated session one at a time, and assembles the
// deduplicated batch.
package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/lkhoram/patrascan/config"
	"github.com/lkhoram/patrascan/models"
	"github.com/lkhoram/patrascan/parser"
)

var (
	dateHeaderRE   = regexp.MustCompile(`تاریخثبت`)
	statusHeaderRE = regexp.MustCompile(`وضعیتمشتری|وضعیت`)
)

// Scraper owns the portal session, the per-page listing cache, and the
// cross-run seen-set. Both caches live until Reset, the equivalent of
// reloading the portal page.
type Scraper struct {
	cfg       *config.Config
	host      string
	jar       http.CookieJar
	transport http.RoundTripper
	collector *colly.Collector
	detail    *colly.Collector
	Metrics   *Metrics

	linkCache *lru.Cache[string, []models.ScrapeLinkEntry]

	mu         sync.Mutex
	seen       map[string]struct{}
	harvested  []models.ScrapeLinkEntry
	detailBody []byte

	handlersOnce sync.Once
}

// NewScraper builds a scraper instance configured from cfg.
func NewScraper(cfg *config.Config) (*Scraper, error) {
	parsed, err := url.Parse(cfg.PortalURL)
	if err != nil {
		return nil, fmt.Errorf("parse portal url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("portal url must include a host")
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	cache, err := lru.New[string, []models.ScrapeLinkEntry](cfg.LinkCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create link cache: %w", err)
	}

	s := &Scraper{
		cfg:       cfg,
		host:      parsed.Host,
		jar:       jar,
		Metrics:   NewMetrics(),
		linkCache: cache,
		seen:      make(map[string]struct{}),
		transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   cfg.Timeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
	s.collector = s.newPageCollector()
	s.detail = s.newPageCollector()
	s.registerHandlers()
	return s, nil
}

// newPageCollector builds a synchronous collector bound to the shared
// session jar. Revisits stay allowed: detail pages are re-fetched on
// every run and filtered afterwards by the seen-set.
func (s *Scraper) newPageCollector() *colly.Collector {
	c := colly.NewCollector(
		colly.AllowedDomains(s.host),
		colly.UserAgent(s.cfg.UserAgent),
	)
	c.SetRequestTimeout(s.cfg.Timeout)
	c.IgnoreRobotsTxt = true
	c.AllowURLRevisit = true
	c.SetCookieJar(s.jar)
	c.WithTransport(s.transport)
	return c
}

// setTransport swaps the HTTP transport on every collector; used by
// tests to plug in a mock.
func (s *Scraper) setTransport(rt http.RoundTripper) {
	s.transport = rt
	s.collector.WithTransport(rt)
	s.detail.WithTransport(rt)
}

func (s *Scraper) registerHandlers() {
	s.handlersOnce.Do(func() {
		anchorSel := fmt.Sprintf("a[href*='%s']", s.cfg.DetailPattern)

		s.collector.OnRequest(func(r *colly.Request) {
			r.Ctx.Put("start", time.Now())
			s.Metrics.IncRequest("listing")
		})
		s.collector.OnResponse(func(r *colly.Response) {
			if start, ok := r.Request.Ctx.GetAny("start").(time.Time); ok {
				s.Metrics.ObserveDuration(time.Since(start))
			}
		})
		s.collector.OnError(func(r *colly.Response, err error) {
			statusCode := 0
			if r != nil {
				statusCode = r.StatusCode
			}
			category := errorTypeLabel(classifyError(err, statusCode))
			s.Metrics.IncError(category)
			slog.Error("listing request failed",
				slog.String("category", category),
				slog.Any("error", err),
			)
		})
		s.collector.OnHTML(anchorSel, func(e *colly.HTMLElement) {
			entry := harvestEntry(e)
			s.mu.Lock()
			s.harvested = append(s.harvested, entry)
			s.mu.Unlock()
		})

		s.detail.OnRequest(func(r *colly.Request) {
			r.Ctx.Put("start", time.Now())
			s.Metrics.IncRequest("detail")
		})
		s.detail.OnResponse(func(r *colly.Response) {
			if start, ok := r.Request.Ctx.GetAny("start").(time.Time); ok {
				s.Metrics.ObserveDuration(time.Since(start))
			}
			s.mu.Lock()
			s.detailBody = append([]byte(nil), r.Body...)
			s.mu.Unlock()
		})
		s.detail.OnError(func(r *colly.Response, err error) {
			statusCode := 0
			if r != nil {
				statusCode = r.StatusCode
			}
			s.Metrics.IncError(errorTypeLabel(classifyError(err, statusCode)))
		})
	})
}

// harvestEntry reads one listing anchor: it walks up to the enclosing
// table, finds the first row carrying header cells, maps the
// whitespace-stripped header labels to column indexes, and reads the
// registration-date and status cells from the anchor's own row.
func harvestEntry(e *colly.HTMLElement) models.ScrapeLinkEntry {
	entry := models.ScrapeLinkEntry{URL: e.Request.AbsoluteURL(e.Attr("href"))}

	row := e.DOM.Closest("tr")
	if row.Length() == 0 {
		return entry
	}
	table := row.Closest("table")
	if table.Length() == 0 {
		return entry
	}

	var headers []string
	table.Find("tr").EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		ths := tr.Find("th")
		if ths.Length() == 0 {
			return true
		}
		ths.Each(func(_ int, th *goquery.Selection) {
			headers = append(headers, parser.StripSpaces(th.Text()))
		})
		return false
	})
	if len(headers) == 0 {
		return entry
	}

	cells := row.Find("td")
	cellText := func(col int) string {
		if col < 0 || col >= cells.Length() {
			return ""
		}
		return strings.TrimSpace(cells.Eq(col).Text())
	}

	entry.RegisteredAt = cellText(findHeader(headers, dateHeaderRE))
	entry.Status = cellText(findHeader(headers, statusHeaderRE))
	return entry
}

func findHeader(headers []string, re *regexp.Regexp) int {
	for i, h := range headers {
		if re.MatchString(h) {
			return i
		}
	}
	return -1
}

// collapseEntries merges duplicate listing rows pointing at the same
// detail URL, keeping the first non-empty value per field.
func collapseEntries(entries []models.ScrapeLinkEntry) []models.ScrapeLinkEntry {
	index := make(map[string]int, len(entries))
	out := make([]models.ScrapeLinkEntry, 0, len(entries))
	for _, e := range entries {
		i, ok := index[e.URL]
		if !ok {
			index[e.URL] = len(out)
			out = append(out, e)
			continue
		}
		if out[i].RegisteredAt == "" {
			out[i].RegisteredAt = e.RegisteredAt
		}
		if out[i].Status == "" {
			out[i].Status = e.Status
		}
	}
	return out
}

// listingEntries returns the collapsed link entries for the listing
// page, scanning it at most once per Reset.
func (s *Scraper) listingEntries() ([]models.ScrapeLinkEntry, error) {
	listingURL := s.cfg.ListingURL()
	if cached, ok := s.linkCache.Get(listingURL); ok {
		return cached, nil
	}

	s.mu.Lock()
	s.harvested = nil
	s.mu.Unlock()

	if err := s.collector.Visit(listingURL); err != nil {
		return nil, fmt.Errorf("visit listing page: %w", err)
	}

	s.mu.Lock()
	harvested := s.harvested
	s.harvested = nil
	s.mu.Unlock()

	collapsed := collapseEntries(harvested)
	s.linkCache.Add(listingURL, collapsed)
	return collapsed, nil
}

// Extract runs one full extraction: listing scan (or cache hit),
// sequential detail fetches, and cross-run dedup. It returns ErrNoLinks
// when the listing has no detail anchors and ErrNothingNew when dedup
// leaves an empty batch.
func (s *Scraper) Extract(ctx context.Context) ([]*models.CustomerRecord, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	entries, err := s.listingEntries()
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrNoLinks
	}

	// One blocking fetch at a time, in listing order. Parallel fetches
	// would change dedup ordering.
	var out []*models.CustomerRecord
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record := s.fetchDetail(entry)
		if record == nil {
			continue
		}

		key := record.Key()
		if key == "" {
			s.Metrics.IncDropped("blank_key")
			continue
		}
		s.mu.Lock()
		_, dup := s.seen[key]
		if !dup {
			s.seen[key] = struct{}{}
		}
		s.mu.Unlock()
		if dup {
			s.Metrics.IncDropped("duplicate")
			continue
		}

		s.Metrics.IncExtracted()
		out = append(out, record)
	}

	if len(out) == 0 {
		return nil, ErrNothingNew
	}
	return out, nil
}

// ExtractPayload runs Extract and encodes the outcome as the one
// opaque payload string handed to the caller. Scrape-empty and
// scrape-stale become error payloads; only transport failures on the
// listing page surface as Go errors.
func (s *Scraper) ExtractPayload(ctx context.Context) (string, error) {
	records, err := s.Extract(ctx)
	switch {
	case errors.Is(err, ErrNoLinks):
		return models.EncodeError(MsgNoLinks), nil
	case errors.Is(err, ErrNothingNew):
		return models.EncodeError(MsgNothingNew), nil
	case err != nil:
		return "", err
	}
	return models.EncodeRecords(records)
}

// fetchDetail fetches and parses one detail page. Any failure drops
// the record and the batch continues.
func (s *Scraper) fetchDetail(entry models.ScrapeLinkEntry) *models.CustomerRecord {
	s.mu.Lock()
	s.detailBody = nil
	s.mu.Unlock()

	if err := s.detail.Visit(entry.URL); err != nil {
		s.Metrics.IncDropped("fetch")
		slog.Debug("detail fetch dropped", slog.String("url", entry.URL), slog.Any("error", err))
		return nil
	}

	s.mu.Lock()
	body := s.detailBody
	s.detailBody = nil
	s.mu.Unlock()
	if body == nil {
		s.Metrics.IncDropped("fetch")
		return nil
	}

	record, err := parseDetail(body, entry)
	if err != nil {
		s.Metrics.IncDropped("parse")
		slog.Debug("detail parse dropped", slog.String("url", entry.URL), slog.Any("error", err))
		return nil
	}
	return record
}

// parseDetail builds a record from a detail page. The page is a
// label/value table; adjacent td pairs become map entries, first
// occurrence of a non-empty label wins.
func parseDetail(body []byte, entry models.ScrapeLinkEntry) (*models.CustomerRecord, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse detail page: %w", err)
	}

	cells := doc.Find("td")
	texts := make([]string, cells.Length())
	cells.Each(func(i int, td *goquery.Selection) {
		texts[i] = strings.TrimSpace(td.Text())
	})

	labels := make(map[string]string)
	for i := 0; i+1 < len(texts); i++ {
		key := texts[i]
		if key == "" {
			continue
		}
		if _, ok := labels[key]; !ok {
			labels[key] = texts[i+1]
		}
	}

	rawStatus := parser.PickLabel(labels, "وضعیت", "وضعیت پرونده", "وضعیت سفارش")
	if rawStatus == "" {
		rawStatus = entry.Status
	}

	return &models.CustomerRecord{
		Name:           parser.PickLabel(labels, "نام و نام خانوادگی", "نام"),
		Mobile:         parser.PickLabel(labels, "شماره موبایل", "موبایل", "تلفن همراه"),
		Phone:          labels["شماره تلفن"],
		Province:       labels["استان"],
		City:           labels["شهر"],
		PostalCode:     labels["کد ارسال"],
		Address:        labels["آدرس"],
		Notes:          labels["توضیحات"],
		RegisteredAt:   entry.RegisteredAt,
		Seller:         labels["فروشنده"],
		DeliveryStatus: parser.NormalizeStatus(rawStatus),
		Status:         models.StatusPending,
	}, nil
}

// Reset drops the listing cache and the cross-run seen-set; call it
// after the portal session or listing page changes.
func (s *Scraper) Reset() {
	s.linkCache.Purge()
	s.mu.Lock()
	s.seen = make(map[string]struct{})
	s.mu.Unlock()
}

func classifyError(err error, statusCode int) error {
	if err == nil && statusCode == 0 {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrConnection{Err: err}
	}

	if statusCode != 0 {
		wrapped := err
		if wrapped == nil {
			wrapped = fmt.Errorf("http status %d", statusCode)
		}
		switch statusCode {
		case http.StatusForbidden:
			return ErrForbidden{Err: wrapped}
		case http.StatusNotFound:
			return ErrNotFound{Err: wrapped}
		case http.StatusTooManyRequests:
			return ErrRateLimited{Err: wrapped}
		}
	}

	if err == nil {
		return nil
	}
	return err
}
