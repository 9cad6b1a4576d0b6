package nexon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"maple-exp-bot/metrics"
)

const (
	defaultBaseURL = "https://open.api.nexon.com/maplestory/v1"
	apiKeyHeader   = "x-nxopen-api-key"
	maxErrorBody   = 512
)

// ErrNotFound is returned when the requested character or record does not exist.
var ErrNotFound = errors.New("not found")

// APIError is a non-success response from the API.
type APIError struct {
	StatusCode int
	Name       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("api error (status %d, %s: %s)", e.StatusCode, e.Name, e.Message)
	}
	return fmt.Sprintf("api error (status %d: %s)", e.StatusCode, e.Message)
}

// TransportError is a network-level failure talking to the API.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// CharacterBasic is the /character/basic payload.
type CharacterBasic struct {
	Date                     *string `json:"date"`
	CharacterName            string  `json:"character_name"`
	WorldName                string  `json:"world_name"`
	CharacterGender          string  `json:"character_gender"`
	CharacterClass           string  `json:"character_class"`
	CharacterClassLevel      string  `json:"character_class_level"`
	CharacterLevel           int     `json:"character_level"`
	CharacterExp             *int64  `json:"character_exp"`
	CharacterExpRate         string  `json:"character_exp_rate"`
	CharacterGuildName       *string `json:"character_guild_name"`
	CharacterImage           string  `json:"character_image"`
	CharacterDateCreate      string  `json:"character_date_create"`
	AccessFlag               string  `json:"access_flag"`
	LiberationQuestClearFlag string  `json:"liberation_quest_clear_flag"`
}

// ExpRate parses the percent-of-level string. Empty values read as 0.
func (c *CharacterBasic) ExpRate() (float64, error) {
	s := strings.TrimSpace(c.CharacterExpRate)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse exp rate %q: %w", s, err)
	}
	return v, nil
}

// Client provides access to the Nexon Open API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
	ocidCache  *expirable.LRU[string, string]
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), max(1, int(perSecond)))
	}
}

// WithOCIDCache caches name to OCID lookups.
func WithOCIDCache(size int, ttl time.Duration) Option {
	return func(c *Client) {
		if size <= 0 {
			c.ocidCache = nil
			return
		}
		c.ocidCache = expirable.NewLRU[string, string](size, nil, ttl)
	}
}

// NewClient creates a new API client.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOCID resolves a character name to its OCID.
func (c *Client) GetOCID(ctx context.Context, characterName string) (string, error) {
	if c.ocidCache != nil {
		if ocid, ok := c.ocidCache.Get(characterName); ok {
			metrics.OCIDCacheTotal.WithLabelValues("hit").Inc()
			return ocid, nil
		}
		metrics.OCIDCacheTotal.WithLabelValues("miss").Inc()
	}

	q := url.Values{"character_name": {characterName}}
	var body struct {
		OCID string `json:"ocid"`
	}
	if err := c.get(ctx, "id", q, &body); err != nil {
		return "", err
	}
	if body.OCID == "" {
		return "", ErrNotFound
	}

	if c.ocidCache != nil {
		c.ocidCache.Add(characterName, body.OCID)
	}
	return body.OCID, nil
}

// GetCharacterBasic returns the character's basic info. A zero date asks
// for the latest state; otherwise the record for that calendar day.
// A day without a record returns ErrNotFound.
func (c *Client) GetCharacterBasic(ctx context.Context, ocid string, date time.Time) (*CharacterBasic, error) {
	q := url.Values{"ocid": {ocid}}
	if !date.IsZero() {
		q.Set("date", date.Format(time.DateOnly))
	}

	var basic CharacterBasic
	if err := c.get(ctx, "character/basic", q, &basic); err != nil {
		return nil, err
	}
	if basic.CharacterExp == nil {
		return nil, ErrNotFound
	}
	return &basic, nil
}

func (c *Client) get(ctx context.Context, endpoint string, q url.Values, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("wait for rate limit: %w", err)
		}
	}

	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.APIRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.APIRequestsTotal.WithLabelValues(endpoint, "transport_error").Inc()
		return &TransportError{Op: "fetch " + endpoint, Err: err}
	}
	defer resp.Body.Close()

	metrics.APIRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return newAPIError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func newAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	var body struct {
		Error struct {
			Name    string `json:"name"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Error.Name != "" {
		apiErr.Name = body.Error.Name
		apiErr.Message = body.Error.Message
	}
	return apiErr
}
