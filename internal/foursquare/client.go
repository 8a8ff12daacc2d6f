// Package foursquare implements the venue lookup client for the Foursquare
// venues/explore API. It turns a geographic point into a ranked list of
// venues, substituting documented defaults for every optional field so that
// downstream formatting never has to deal with missing data.
package foursquare

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// ErrRemote indicates that the venue search or a photo fetch failed on the
// network, returned a non-2xx status, or produced an unparseable response.
// It is recoverable at the dispatcher: the error text is reported to the
// chat and the event is considered handled.
var ErrRemote = errors.New("remote venue lookup failed")

// Default strings substituted for missing optional fields.
const (
	DefaultAddress  = "Exact address unspecified"
	DefaultPhone    = "no phone"
	DefaultCategory = "no category"
	DefaultHours    = "no info"
)

const defaultBaseURL = "https://api.foursquare.com/v2/venues/explore"

// Point is a geographic coordinate pair.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Tip is a short user-submitted note about a venue, optionally with a photo.
type Tip struct {
	Text     string `json:"text"`
	PhotoURL string `json:"photourl,omitempty"`
}

// Venue is a single point-of-interest record. All optional fields are
// guaranteed non-empty: missing data is replaced by the Default* constants
// at parse time.
type Venue struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address"`
	Category  string  `json:"category"`
	Phone     string  `json:"phone"`
	Hours     string  `json:"hours"`
	Distance  int     `json:"distance"`
	Tips      []Tip   `json:"tips,omitempty"`
}

// Searcher is the venue lookup contract consumed by the dispatcher and the
// web interface.
type Searcher interface {
	Search(ctx context.Context, p Point) ([]Venue, error)
}

// PhotoFetcher downloads tip photos referenced by URL.
type PhotoFetcher interface {
	FetchPhoto(ctx context.Context, photoURL string) ([]byte, error)
}

// Config holds the credentials and fixed query parameters for the
// venues/explore endpoint.
type Config struct {
	ClientID     string
	ClientSecret string
	APIVersion   string        // version token, e.g. "20160820"
	Limit        int           // result limit, fixed per query
	Section      string        // category filter, e.g. "food"
	Timeout      time.Duration // per-request budget
	BaseURL      string        // overridable for tests
}

// Client calls the Foursquare venues/explore API.
type Client struct {
	cfg     Config
	httpC   *http.Client
	baseURL string
	logger  *slog.Logger
}

// NewClient creates a venue lookup client. The configured timeout applies
// to every search and photo fetch; expiry surfaces as ErrRemote.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("foursquare credentials are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		cfg:     cfg,
		httpC:   &http.Client{Timeout: timeout},
		baseURL: baseURL,
		logger:  logger.With("component", "foursquare_client"),
	}, nil
}

// exploreResponse mirrors the slice of the venues/explore payload this bot
// consumes: response.groups[0].items with per-item venue and tips.
type exploreResponse struct {
	Response struct {
		Groups []struct {
			Items []exploreItem `json:"items"`
		} `json:"groups"`
	} `json:"response"`
}

type exploreItem struct {
	Venue struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Location struct {
			Address  string  `json:"address"`
			Lat      float64 `json:"lat"`
			Lng      float64 `json:"lng"`
			Distance int     `json:"distance"`
		} `json:"location"`
		Categories []struct {
			Name string `json:"name"`
		} `json:"categories"`
		Contact struct {
			Phone string `json:"phone"`
		} `json:"contact"`
		Hours struct {
			Status string `json:"status"`
		} `json:"hours"`
	} `json:"venue"`
	Tips []Tip `json:"tips"`
}

// Search requests the top venues of the configured section around p.
// The returned slice preserves the API's ranking order and never exceeds
// the configured limit.
func (c *Client) Search(ctx context.Context, p Point) ([]Venue, error) {
	q := url.Values{}
	q.Set("ll", fmt.Sprintf("%f,%f", p.Latitude, p.Longitude))
	q.Set("limit", fmt.Sprintf("%d", c.cfg.Limit))
	q.Set("section", c.cfg.Section)
	q.Set("v", c.cfg.APIVersion)
	q.Set("client_id", c.cfg.ClientID)
	q.Set("client_secret", c.cfg.ClientSecret)

	reqURL := c.baseURL + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrRemote, err)
	}

	start := time.Now()
	resp, err := c.httpC.Do(req)
	if err != nil {
		c.logger.ErrorContext(ctx, "Venue search request failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrRemote, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.ErrorContext(ctx, "Venue search returned non-OK status", "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: unexpected status %d", ErrRemote, resp.StatusCode)
	}

	var payload exploreResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.logger.ErrorContext(ctx, "Failed to decode venue search response", "error", err)
		return nil, fmt.Errorf("%w: decode response: %v", ErrRemote, err)
	}

	if len(payload.Response.Groups) == 0 {
		c.logger.ErrorContext(ctx, "Venue search response has no groups")
		return nil, fmt.Errorf("%w: malformed response: no groups", ErrRemote)
	}

	items := payload.Response.Groups[0].Items
	venues := make([]Venue, 0, len(items))
	for _, item := range items {
		venues = append(venues, item.toVenue())
	}

	c.logger.DebugContext(ctx, "Venue search completed",
		"lat", p.Latitude, "lng", p.Longitude,
		"count", len(venues), "duration", time.Since(start))
	return venues, nil
}

// FetchPhoto downloads a tip photo. Failures surface as ErrRemote.
func (c *Client) FetchPhoto(ctx context.Context, photoURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, photoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build photo request: %v", ErrRemote, err)
	}

	resp, err := c.httpC.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "Photo fetch failed", "url", photoURL, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrRemote, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.WarnContext(ctx, "Photo fetch returned non-OK status", "url", photoURL, "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: unexpected status %d", ErrRemote, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read photo body: %v", ErrRemote, err)
	}
	return data, nil
}

func (it exploreItem) toVenue() Venue {
	v := Venue{
		ID:        it.Venue.ID,
		Name:      it.Venue.Name,
		Latitude:  it.Venue.Location.Lat,
		Longitude: it.Venue.Location.Lng,
		Address:   it.Venue.Location.Address,
		Phone:     it.Venue.Contact.Phone,
		Hours:     it.Venue.Hours.Status,
		Distance:  it.Venue.Location.Distance,
		Tips:      it.Tips,
	}
	if len(it.Venue.Categories) > 0 {
		v.Category = it.Venue.Categories[0].Name
	}

	// Defaulting policy: the formatter and session history rely on every
	// optional field being present in some form.
	if v.Address == "" {
		v.Address = DefaultAddress
	}
	if v.Phone == "" {
		v.Phone = DefaultPhone
	}
	if v.Category == "" {
		v.Category = DefaultCategory
	}
	if v.Hours == "" {
		v.Hours = DefaultHours
	}
	return v
}
