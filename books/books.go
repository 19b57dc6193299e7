// Package books is a small client for the Google Books volumes API used by
// the cartographer to compile bibliographies.
package books

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// DefaultBaseURL is the public Google Books volumes endpoint.
const DefaultBaseURL = "https://www.googleapis.com/books/v1/volumes"

// Volume is the subset of volume metadata the cartographer needs.
type Volume struct {
	Title         string
	Authors       []string
	PublishedDate string
	Description   string
	ISBN10        string
	ISBN13        string
	PageCount     int
	Categories    []string
	Language      string
	InfoLink      string
	PreviewLink   string
}

// Year extracts the publication year from PublishedDate ("1969", "1969-04",
// "c1969"). It returns 0 when no year can be found.
func (v Volume) Year() int {
	head := strings.SplitN(v.PublishedDate, "-", 2)[0]
	var digits strings.Builder
	for _, r := range head {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	year, err := strconv.Atoi(digits.String())
	if err != nil {
		return 0
	}
	return year
}

// ISBN prefers the 13 digit identifier.
func (v Volume) ISBN() string {
	if v.ISBN13 != "" {
		return v.ISBN13
	}
	return v.ISBN10
}

// StatusError is returned for non 2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("google books: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the request may succeed when repeated.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	APIKey     string
	MaxResults int
	HTTPClient *http.Client
}

// Client queries the volumes API. It is safe for concurrent use.
type Client struct {
	opts Options
}

// NewClient creates a Client. Without an API key the public quota applies.
func NewClient(optFns ...func(o *Options)) *Client {
	opts := Options{
		BaseURL:    DefaultBaseURL,
		MaxResults: 20,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxResults <= 0 || opts.MaxResults > 40 {
		opts.MaxResults = 40
	}
	return &Client{opts: opts}
}

// SearchByAuthor returns volumes whose author list mentions author
// (case-insensitive), in API relevance order.
func (c *Client) SearchByAuthor(ctx context.Context, author string) ([]Volume, error) {
	q := url.Values{}
	q.Set("q", "inauthor:"+author)
	q.Set("maxResults", strconv.Itoa(c.opts.MaxResults))
	q.Set("orderBy", "relevance")
	if c.opts.APIKey != "" {
		q.Set("key", c.opts.APIKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.opts.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("google books: build request: %w", err)
	}

	resp, err := c.opts.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google books: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("google books: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 200)}
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("google books: invalid JSON response")
	}

	needle := strings.ToLower(author)
	var volumes []Volume
	gjson.GetBytes(body, "items").ForEach(func(_, item gjson.Result) bool {
		v, ok := parseVolume(item)
		if ok && strings.Contains(strings.ToLower(strings.Join(v.Authors, " ")), needle) {
			volumes = append(volumes, v)
		}
		return true
	})
	return volumes, nil
}

func parseVolume(item gjson.Result) (Volume, bool) {
	info := item.Get("volumeInfo")
	title := strings.TrimSpace(info.Get("title").String())
	if title == "" {
		return Volume{}, false
	}

	v := Volume{
		Title:         title,
		Authors:       stringList(info.Get("authors")),
		PublishedDate: info.Get("publishedDate").String(),
		Description:   info.Get("description").String(),
		PageCount:     int(info.Get("pageCount").Int()),
		Categories:    stringList(info.Get("categories")),
		Language:      info.Get("language").String(),
		InfoLink:      info.Get("infoLink").String(),
		PreviewLink:   info.Get("previewLink").String(),
	}
	if sub := info.Get("subtitle").String(); sub != "" {
		v.Title = title + ": " + sub
	}
	info.Get("industryIdentifiers").ForEach(func(_, id gjson.Result) bool {
		switch id.Get("type").String() {
		case "ISBN_10":
			v.ISBN10 = id.Get("identifier").String()
		case "ISBN_13":
			v.ISBN13 = id.Get("identifier").String()
		}
		return true
	})
	if link := item.Get("accessInfo.webReaderLink").String(); v.PreviewLink == "" && link != "" {
		v.PreviewLink = link
	}
	return v, true
}

func stringList(r gjson.Result) []string {
	var out []string
	r.ForEach(func(_, v gjson.Result) bool {
		if s := strings.TrimSpace(v.String()); s != "" {
			out = append(out, s)
		}
		return true
	})
	return out
}

// truncate shortens s to n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
