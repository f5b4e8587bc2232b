// Package wiki looks up encyclopedia summaries on Wikipedia and verifies
// authorship through Wikidata. Lookups never fail loudly: callers get a
// reference or nothing.
package wiki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/kiranshivaraju/artscan/pkg/models"
)

// Sentinel errors for encyclopedia failures. They are only logged.
var (
	ErrPageNotFound = errors.New("wikipedia page not found")
	ErrWikiStatus   = errors.New("encyclopedia returned non-2xx status")
)

const (
	searchLimit    = 8
	noSummary      = "No summary available."
	thumbnailWidth = 640
)

// artKeywords mark an entity as an art piece when found in its instance-of labels.
var artKeywords = []string{"painting", "work of art", "sculpture", "statue", "monument", "portrait", "landscape"}

// Client queries Wikipedia and Wikidata.
type Client struct {
	http         *http.Client
	wikipediaURL string
	wikidataURL  string
	cache        *expirable.LRU[string, cached]
}

type cached struct {
	ref *models.Reference
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoints points the client at alternative hosts, e.g. test servers.
func WithEndpoints(wikipediaURL, wikidataURL string) Option {
	return func(c *Client) {
		c.wikipediaURL = strings.TrimRight(wikipediaURL, "/")
		c.wikidataURL = strings.TrimRight(wikidataURL, "/")
	}
}

// NewClient creates a client for the given language edition. Results and
// confirmed misses are cached for ttl in an LRU of cacheSize entries.
func NewClient(lang string, timeout time.Duration, cacheSize int, ttl time.Duration, opts ...Option) *Client {
	if lang == "" {
		lang = "en"
	}
	if cacheSize <= 0 {
		cacheSize = 256
	}
	c := &Client{
		http:         &http.Client{Timeout: timeout},
		wikipediaURL: fmt.Sprintf("https://%s.wikipedia.org", lang),
		wikidataURL:  "https://www.wikidata.org",
		cache:        expirable.NewLRU[string, cached](cacheSize, nil, ttl),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup finds the article for title. When artist is set, pages whose
// Wikidata creator matches it are preferred: the exact title first, then
// search hits, then the exact title unverified.
func (c *Client) Lookup(ctx context.Context, title, artist string) (*models.Reference, bool) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, false
	}

	key := strings.ToLower(title) + "\x00" + normalize(artist)
	if hit, ok := c.cache.Get(key); ok {
		return hit.ref, hit.ref != nil
	}

	ref, err := c.lookup(ctx, title, normalize(artist))
	if err != nil {
		slog.Debug("encyclopedia lookup failed", "title", title, "error", err)
		if errors.Is(err, ErrPageNotFound) {
			c.cache.Add(key, cached{})
		}
		return nil, false
	}
	c.cache.Add(key, cached{ref: ref})
	return ref, true
}

func (c *Client) lookup(ctx context.Context, title, artist string) (*models.Reference, error) {
	primary, primaryErr := c.summary(ctx, title)

	if artist != "" {
		if primary != nil && primary.WikibaseItem != "" {
			if ref := c.verified(ctx, primary, artist); ref != nil {
				return ref, nil
			}
		}
		if ref := c.searchVerified(ctx, title, artist); ref != nil {
			return ref, nil
		}
	}

	if primary == nil {
		if primaryErr == nil {
			primaryErr = ErrPageNotFound
		}
		return nil, primaryErr
	}
	return c.unverified(ctx, primary), nil
}

// verified returns a reference when the page's creators include artist.
func (c *Client) verified(ctx context.Context, page *pageSummary, artist string) *models.Reference {
	creators, _, err := c.entityLabels(ctx, page.WikibaseItem, false)
	if err != nil || !matchesArtist(creators, artist) {
		return nil
	}
	ref := page.reference()
	ref.Creator = strings.Join(creators, ", ")
	ref.IsArtPiece = true
	return ref
}

func (c *Client) searchVerified(ctx context.Context, title, artist string) *models.Reference {
	hits, err := c.search(ctx, title)
	if err != nil {
		slog.Debug("wikipedia search failed", "title", title, "error", err)
		return nil
	}
	for _, hit := range hits {
		if ctx.Err() != nil {
			return nil
		}
		page, err := c.summary(ctx, hit)
		if err != nil || page.WikibaseItem == "" {
			continue
		}
		if ref := c.verified(ctx, page, artist); ref != nil {
			return ref
		}
	}
	return nil
}

// unverified builds the fallback reference, enriching it with Wikidata
// creators and art-piece detection when available.
func (c *Client) unverified(ctx context.Context, page *pageSummary) *models.Reference {
	ref := page.reference()
	if ref.Thumbnail == "" {
		if thumb, err := c.pageImage(ctx, ref.Title); err == nil {
			ref.Thumbnail = thumb
		}
	}
	if page.WikibaseItem == "" {
		return ref
	}

	creators, instances, err := c.entityLabels(ctx, page.WikibaseItem, true)
	if err != nil {
		return ref
	}
	if len(creators) > 0 {
		ref.Creator = strings.Join(creators, ", ")
		ref.IsArtPiece = true
		return ref
	}
	ref.IsArtPiece = isArtInstance(instances)
	return ref
}

// --- Wikipedia ---

type pageSummary struct {
	Title        string `json:"title"`
	Extract      string `json:"extract"`
	WikibaseItem string `json:"wikibase_item"`
	Thumbnail    *struct {
		Source string `json:"source"`
	} `json:"thumbnail"`
	ContentURLs struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
}

func (p *pageSummary) reference() *models.Reference {
	ref := &models.Reference{
		Title:      p.Title,
		Summary:    p.Extract,
		URL:        p.ContentURLs.Desktop.Page,
		WikidataID: p.WikibaseItem,
	}
	if ref.Summary == "" {
		ref.Summary = noSummary
	}
	if p.Thumbnail != nil {
		ref.Thumbnail = p.Thumbnail.Source
	}
	return ref
}

func (c *Client) summary(ctx context.Context, title string) (*pageSummary, error) {
	u := c.wikipediaURL + "/api/rest_v1/page/summary/" + url.PathEscape(strings.TrimSpace(title))

	var page pageSummary
	if err := c.getJSON(ctx, u, &page); err != nil {
		return nil, err
	}
	if page.Title == "" {
		page.Title = title
	}
	return &page, nil
}

func (c *Client) search(ctx context.Context, title string) ([]string, error) {
	params := url.Values{
		"action":   {"query"},
		"format":   {"json"},
		"list":     {"search"},
		"srsearch": {title},
		"srlimit":  {fmt.Sprint(searchLimit)},
	}
	var out struct {
		Query struct {
			Search []struct {
				Title string `json:"title"`
			} `json:"search"`
		} `json:"query"`
	}
	if err := c.getJSON(ctx, c.wikipediaURL+"/w/api.php?"+params.Encode(), &out); err != nil {
		return nil, err
	}
	titles := make([]string, 0, len(out.Query.Search))
	for _, h := range out.Query.Search {
		titles = append(titles, h.Title)
	}
	return titles, nil
}

func (c *Client) pageImage(ctx context.Context, title string) (string, error) {
	params := url.Values{
		"action":      {"query"},
		"format":      {"json"},
		"prop":        {"pageimages"},
		"piprop":      {"thumbnail|original"},
		"pithumbsize": {fmt.Sprint(thumbnailWidth)},
		"titles":      {title},
	}
	type image struct {
		Source string `json:"source"`
	}
	var out struct {
		Query struct {
			Pages map[string]struct {
				Thumbnail *image `json:"thumbnail"`
				Original  *image `json:"original"`
			} `json:"pages"`
		} `json:"query"`
	}
	if err := c.getJSON(ctx, c.wikipediaURL+"/w/api.php?"+params.Encode(), &out); err != nil {
		return "", err
	}
	for _, p := range out.Query.Pages {
		if p.Thumbnail != nil && p.Thumbnail.Source != "" {
			return p.Thumbnail.Source, nil
		}
		if p.Original != nil && p.Original.Source != "" {
			return p.Original.Source, nil
		}
	}
	return "", ErrPageNotFound
}

// --- Wikidata ---

type claim struct {
	Mainsnak struct {
		Datavalue struct {
			Value json.RawMessage `json:"value"`
		} `json:"datavalue"`
	} `json:"mainsnak"`
}

// entityID extracts the target id of an item-valued claim.
func (c claim) entityID() string {
	var v struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(c.Mainsnak.Datavalue.Value, &v); err != nil {
		return ""
	}
	return v.ID
}

// entityLabels resolves the English labels of the creator (P170) claims and,
// when withInstances is set, of the instance-of (P31) claims. Instance
// labels are lowercased.
func (c *Client) entityLabels(ctx context.Context, id string, withInstances bool) (creators, instances []string, err error) {
	var entity struct {
		Entities map[string]struct {
			Claims map[string][]claim `json:"claims"`
		} `json:"entities"`
	}
	u := c.wikidataURL + "/wiki/Special:EntityData/" + url.PathEscape(id) + ".json"
	if err := c.getJSON(ctx, u, &entity); err != nil {
		return nil, nil, err
	}
	claims := entity.Entities[id].Claims

	creators, err = c.labels(ctx, claimIDs(claims["P170"]))
	if err != nil {
		return nil, nil, err
	}
	if !withInstances || len(creators) > 0 {
		return creators, nil, nil
	}

	instances, err = c.labels(ctx, claimIDs(claims["P31"]))
	if err != nil {
		return creators, nil, err
	}
	for i := range instances {
		instances[i] = strings.ToLower(instances[i])
	}
	return creators, instances, nil
}

func claimIDs(claims []claim) []string {
	var ids []string
	for _, cl := range claims {
		if id := cl.entityID(); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// labels returns English labels in the order of ids, skipping unlabeled ones.
func (c *Client) labels(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	params := url.Values{
		"action":    {"wbgetentities"},
		"ids":       {strings.Join(ids, "|")},
		"format":    {"json"},
		"props":     {"labels"},
		"languages": {"en"},
	}
	var out struct {
		Entities map[string]struct {
			Labels map[string]struct {
				Value string `json:"value"`
			} `json:"labels"`
		} `json:"entities"`
	}
	if err := c.getJSON(ctx, c.wikidataURL+"/w/api.php?"+params.Encode(), &out); err != nil {
		return nil, err
	}
	var labels []string
	for _, id := range ids {
		if l := out.Entities[id].Labels["en"].Value; l != "" {
			labels = append(labels, l)
		}
	}
	return labels, nil
}

func (c *Client) getJSON(ctx context.Context, u string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "artscan/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrPageNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", ErrWikiStatus, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding %s: %w", req.URL.Path, err)
	}
	return nil
}

func normalize(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func matchesArtist(creators []string, artist string) bool {
	for _, c := range creators {
		if strings.Contains(normalize(c), artist) {
			return true
		}
	}
	return false
}

func isArtInstance(labels []string) bool {
	for _, l := range labels {
		for _, kw := range artKeywords {
			if strings.Contains(l, kw) {
				return true
			}
		}
	}
	return false
}
