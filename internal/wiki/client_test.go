package wiki_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kiranshivaraju/artscan/internal/wiki"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWiki serves a tiny Wikipedia + Wikidata.
type fakeWiki struct {
	summaries map[string]map[string]any // by title
	search    []string
	claims    map[string]map[string][]string // entity -> property -> ids
	labels    map[string]string
	images    map[string]string
	hits      atomic.Int32
}

func item(id string) map[string]any {
	return map[string]any{"mainsnak": map[string]any{"datavalue": map[string]any{"value": map[string]any{"id": id}}}}
}

func (f *fakeWiki) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/rest_v1/page/summary/", func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		title := strings.TrimPrefix(r.URL.Path, "/api/rest_v1/page/summary/")
		s, ok := f.summaries[title]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(s)
	})
	mux.HandleFunc("/w/api.php", func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		q := r.URL.Query()
		switch {
		case q.Get("list") == "search":
			assert.Equal(t, "8", q.Get("srlimit"))
			var hits []map[string]string
			for _, h := range f.search {
				hits = append(hits, map[string]string{"title": h})
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"query": map[string]any{"search": hits}})
		case q.Get("prop") == "pageimages":
			src, ok := f.images[q.Get("titles")]
			pages := map[string]any{}
			if ok {
				pages["1"] = map[string]any{"thumbnail": map[string]string{"source": src}}
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"query": map[string]any{"pages": pages}})
		case q.Get("action") == "wbgetentities":
			entities := map[string]any{}
			for _, id := range strings.Split(q.Get("ids"), "|") {
				if l, ok := f.labels[id]; ok {
					entities[id] = map[string]any{"labels": map[string]any{"en": map[string]string{"value": l}}}
				}
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"entities": entities})
		default:
			http.Error(w, "unexpected", http.StatusBadRequest)
		}
	})
	mux.HandleFunc("/wiki/Special:EntityData/", func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/wiki/Special:EntityData/"), ".json")
		props, ok := f.claims[id]
		if !ok {
			http.NotFound(w, r)
			return
		}
		claims := map[string]any{}
		for p, ids := range props {
			var list []any
			for _, v := range ids {
				list = append(list, item(v))
			}
			claims[p] = list
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"entities": map[string]any{id: map[string]any{"claims": claims}}})
	})
	return mux
}

func summary(title, extract, wikidataID string) map[string]any {
	return map[string]any{
		"title":         title,
		"extract":       extract,
		"wikibase_item": wikidataID,
		"thumbnail":     map[string]string{"source": "https://upload.example.com/" + title + ".jpg"},
		"content_urls":  map[string]any{"desktop": map[string]string{"page": "https://en.wikipedia.org/wiki/" + title}},
	}
}

func newTestClient(t *testing.T, f *fakeWiki) *wiki.Client {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	return wiki.NewClient("en", 2*time.Second, 16, time.Minute, wiki.WithEndpoints(srv.URL, srv.URL))
}

func TestLookup_ExactTitleVerifiedByArtist(t *testing.T) {
	f := &fakeWiki{
		summaries: map[string]map[string]any{"Mona Lisa": summary("Mona Lisa", "A portrait.", "Q12418")},
		claims:    map[string]map[string][]string{"Q12418": {"P170": {"Q762"}}},
		labels:    map[string]string{"Q762": "Leonardo da Vinci"},
	}
	c := newTestClient(t, f)

	ref, ok := c.Lookup(context.Background(), "Mona Lisa", "leonardo")
	require.True(t, ok)
	assert.Equal(t, "Mona Lisa", ref.Title)
	assert.Equal(t, "A portrait.", ref.Summary)
	assert.Equal(t, "Leonardo da Vinci", ref.Creator)
	assert.True(t, ref.IsArtPiece)
	assert.Equal(t, "Q12418", ref.WikidataID)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Mona Lisa", ref.URL)
}

func TestLookup_SearchHitMatchesArtist(t *testing.T) {
	f := &fakeWiki{
		summaries: map[string]map[string]any{
			"Sunflowers":                   summary("Sunflowers", "A flower.", "Q1"),
			"Sunflowers (Van Gogh series)": summary("Sunflowers (Van Gogh series)", "Series of paintings.", "Q2"),
		},
		search: []string{"Sunflowers", "Sunflowers (Van Gogh series)"},
		claims: map[string]map[string][]string{
			"Q1": {"P31": {"Q10"}},
			"Q2": {"P170": {"Q5582"}},
		},
		labels: map[string]string{"Q5582": "Vincent van Gogh", "Q10": "taxon"},
	}
	c := newTestClient(t, f)

	ref, ok := c.Lookup(context.Background(), "Sunflowers", "Vincent van Gogh")
	require.True(t, ok)
	assert.Equal(t, "Sunflowers (Van Gogh series)", ref.Title)
	assert.Equal(t, "Vincent van Gogh", ref.Creator)
	assert.True(t, ref.IsArtPiece)
}

func TestLookup_UnverifiedFallbackUsesInstanceLabels(t *testing.T) {
	f := &fakeWiki{
		summaries: map[string]map[string]any{"Eiffel Tower": summary("Eiffel Tower", "Iron tower.", "Q243")},
		claims:    map[string]map[string][]string{"Q243": {"P31": {"Q1", "Q2"}}},
		labels:    map[string]string{"Q1": "Lattice Tower", "Q2": "Tourist Monument"},
	}
	c := newTestClient(t, f)

	ref, ok := c.Lookup(context.Background(), "Eiffel Tower", "Gustave Eiffel")
	require.True(t, ok)
	assert.Equal(t, "Eiffel Tower", ref.Title)
	assert.Empty(t, ref.Creator)
	assert.True(t, ref.IsArtPiece, "instance label contains monument")
}

func TestLookup_NoArtistPlainSummary(t *testing.T) {
	s := summary("Yosemite Valley", "", "")
	delete(s, "thumbnail")
	f := &fakeWiki{
		summaries: map[string]map[string]any{"Yosemite Valley": s},
		images:    map[string]string{"Yosemite Valley": "https://upload.example.com/yv.jpg"},
	}
	c := newTestClient(t, f)

	ref, ok := c.Lookup(context.Background(), "Yosemite Valley", "")
	require.True(t, ok)
	assert.Equal(t, "No summary available.", ref.Summary)
	assert.Equal(t, "https://upload.example.com/yv.jpg", ref.Thumbnail)
	assert.False(t, ref.IsArtPiece)
}

func TestLookup_NotFoundIsQuietAndCached(t *testing.T) {
	f := &fakeWiki{}
	c := newTestClient(t, f)

	ref, ok := c.Lookup(context.Background(), "Nonexistent Thing", "")
	assert.False(t, ok)
	assert.Nil(t, ref)
	before := f.hits.Load()

	_, ok = c.Lookup(context.Background(), "nonexistent thing", "")
	assert.False(t, ok)
	assert.Equal(t, before, f.hits.Load(), "miss served from cache")
}

func TestLookup_CachesHits(t *testing.T) {
	f := &fakeWiki{summaries: map[string]map[string]any{"Big Ben": summary("Big Ben", "Clock tower.", "")}}
	c := newTestClient(t, f)

	_, ok := c.Lookup(context.Background(), "Big Ben", "")
	require.True(t, ok)
	before := f.hits.Load()

	ref, ok := c.Lookup(context.Background(), "Big Ben", "")
	require.True(t, ok)
	assert.Equal(t, "Clock tower.", ref.Summary)
	assert.Equal(t, before, f.hits.Load())
}

func TestLookup_ServerErrorIsNoEnrichment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	c := wiki.NewClient("en", time.Second, 4, time.Minute, wiki.WithEndpoints(srv.URL, srv.URL))

	ref, ok := c.Lookup(context.Background(), "Mona Lisa", "Leonardo")
	assert.False(t, ok)
	assert.Nil(t, ref)
}

func TestLookup_EmptyTitle(t *testing.T) {
	c := wiki.NewClient("en", time.Second, 4, time.Minute, wiki.WithEndpoints("http://127.0.0.1:1", "http://127.0.0.1:1"))
	_, ok := c.Lookup(context.Background(), "  ", "")
	assert.False(t, ok)
}
