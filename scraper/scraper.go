package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

const (
	defaultListURL = "https://maplestory.nexon.com/News/Event/Ongoing"
	defaultUA      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	maxPageBytes   = 4 << 20
)

var (
	// ErrEventListMissing means the list page no longer has the expected layout.
	ErrEventListMissing = errors.New("event list not found")
	// ErrNoEvent means no ongoing event matched.
	ErrNoEvent = errors.New("no matching event")
	// ErrNoImage means the event post has no usable image.
	ErrNoImage = errors.New("event image not found")
)

// DefaultTerms match Sunday Maple event titles and image alts.
var DefaultTerms = []string{"썬데이", "스페셜 썬데이", "sunday", "스페셜썬데이"}

// Event is an ongoing event found on the list page.
type Event struct {
	Title    string
	PostURL  string
	ImageURL string
	Excerpt  string
}

// Scraper finds event notices on the official site.
type Scraper struct {
	httpClient *http.Client
	listURL    string
	userAgent  string
	terms      []string
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Scraper) {
		s.httpClient.Timeout = d
	}
}

// WithListURL sets the ongoing event list page (for testing).
func WithListURL(u string) Option {
	return func(s *Scraper) {
		s.listURL = u
	}
}

// WithTerms replaces the title keywords.
func WithTerms(terms ...string) Option {
	return func(s *Scraper) {
		s.terms = terms
	}
}

// NewScraper creates a new event scraper.
func NewScraper(opts ...Option) *Scraper {
	s := &Scraper{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		listURL:    defaultListURL,
		userAgent:  defaultUA,
		terms:      DefaultTerms,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FindSundayMaple looks up the ongoing Sunday Maple event and its banner image.
func (s *Scraper) FindSundayMaple(ctx context.Context) (*Event, error) {
	listURL, err := url.Parse(s.listURL)
	if err != nil {
		return nil, fmt.Errorf("invalid list URL: %w", err)
	}

	body, err := s.fetch(ctx, listURL.String())
	if err != nil {
		return nil, fmt.Errorf("fetch event list: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse event list: %w", err)
	}

	board := doc.Find(".contents_wrap .event_board").First()
	if board.Length() == 0 {
		return nil, ErrEventListMissing
	}

	var event *Event
	board.Find("li").EachWithBreak(func(_ int, li *goquery.Selection) bool {
		title := strings.TrimSpace(li.Find("dd, .title, p, span").First().Text())
		if title == "" || !s.matches(title) {
			return true
		}
		href, ok := li.Find("a").First().Attr("href")
		if !ok {
			return true
		}
		postURL, err := listURL.Parse(href)
		if err != nil {
			return true
		}
		event = &Event{Title: title, PostURL: postURL.String()}
		return false
	})
	if event == nil {
		return nil, ErrNoEvent
	}

	if err := s.fillImage(ctx, event); err != nil {
		return event, err
	}
	return event, nil
}

func (s *Scraper) fillImage(ctx context.Context, event *Event) error {
	postURL, err := url.Parse(event.PostURL)
	if err != nil {
		return fmt.Errorf("invalid post URL: %w", err)
	}

	body, err := s.fetch(ctx, event.PostURL)
	if err != nil {
		return fmt.Errorf("fetch event post: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("parse event post: %w", err)
	}

	var src string
	doc.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		alt := img.AttrOr("alt", "")
		if alt != "" && s.matches(alt) {
			src = img.AttrOr("src", "")
			return src == ""
		}
		return true
	})
	if src == "" {
		src = doc.Find(".event_thumbnail img, .content img").First().AttrOr("src", "")
	}

	// The readable-article pass supplies an excerpt, and its lead image
	// when the page markup has nothing we recognize.
	if article, err := readability.FromReader(bytes.NewReader(body), postURL); err == nil {
		event.Excerpt = strings.TrimSpace(article.Excerpt)
		if src == "" {
			src = article.Image
		}
	}

	if src == "" {
		return ErrNoImage
	}
	imgURL, err := postURL.Parse(src)
	if err != nil {
		return fmt.Errorf("invalid image URL %q: %w", src, err)
	}
	event.ImageURL = imgURL.String()
	return nil
}

func (s *Scraper) matches(text string) bool {
	text = strings.ToLower(text)
	for _, term := range s.terms {
		if strings.Contains(text, strings.ToLower(term)) {
			return true
		}
	}
	return false
}

func (s *Scraper) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
}
