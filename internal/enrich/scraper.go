package enrich

import (
	"context"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

// imageish extensions show up in src attributes and match the email pattern.
var junkSuffixes = []string{".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".css", ".js"}

// SiteScraper harvests a contact email from a business website. Best-effort:
// it fetches the homepage and a /contact page, then picks the first
// plausible address.
type SiteScraper struct {
	http      *http.Client
	userAgent string
	maxBody   int64
}

// NewSiteScraper creates a website email scraper.
func NewSiteScraper(userAgent string) *SiteScraper {
	if userAgent == "" {
		userAgent = "leadgen-cli/1.0"
	}
	return &SiteScraper{
		http: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     60 * time.Second,
			},
		},
		userAgent: userAgent,
		maxBody:   512 * 1024,
	}
}

// ScrapeEmail returns the first plausible email found on the site, or an
// empty string when none is found.
func (s *SiteScraper) ScrapeEmail(ctx context.Context, website string) (string, error) {
	base := website
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	base = strings.TrimRight(base, "/")

	var lastErr error
	for _, page := range []string{base, base + "/contact", base + "/contact-us"} {
		email, err := s.scrapePage(ctx, page)
		if err != nil {
			lastErr = err
			continue
		}
		if email != "" {
			return email, nil
		}
	}
	if lastErr != nil {
		return "", lastErr
	}
	return "", nil
}

func (s *SiteScraper) scrapePage(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", eris.Wrap(err, "scraper: create request")
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.http.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "scraper: fetch page")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("scraper: status %d for %s", resp.StatusCode, pageURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBody))
	if err != nil {
		return "", eris.Wrap(err, "scraper: read page")
	}

	for _, match := range emailPattern.FindAllString(string(body), 10) {
		if plausibleEmail(match) {
			return strings.ToLower(match), nil
		}
	}
	return "", nil
}

func plausibleEmail(email string) bool {
	lower := strings.ToLower(email)
	for _, suffix := range junkSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return false
		}
	}
	// Template placeholders leak into rendered pages often enough to check.
	return !strings.Contains(lower, "example.") && !strings.Contains(lower, "yourdomain")
}
