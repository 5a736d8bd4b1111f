package client

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quillcms-backend/cache"
	"quillcms-backend/invalidation"
	"quillcms-backend/models"
)

// mapTransport serves canned bodies by full URL and records every request.
type mapTransport struct {
	bodies   map[string]string
	statuses map[string]int
	requests []*Request
}

func newMapTransport() *mapTransport {
	return &mapTransport{
		bodies:   make(map[string]string),
		statuses: make(map[string]int),
	}
}

func (t *mapTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	t.requests = append(t.requests, req)
	if code, found := t.statuses[req.URL]; found {
		return &Response{Status: code, Body: []byte(`{"success":false,"error":"not found"}`)}, nil
	}
	body, found := t.bodies[req.URL]
	if !found {
		return &Response{Status: 404, Body: []byte(`{"success":false,"error":"not found"}`)}, nil
	}
	return &Response{Status: 200, Body: []byte(body)}, nil
}

func (t *mapTransport) calls() int { return len(t.requests) }

func newTestClient(t *mapTransport) *Client {
	return New(Config{
		BaseURL:   "http://cms",
		TenantID:  "t1",
		APIKey:    "secret",
		Transport: t,
		Logger:    testLogger(),
	})
}

func envelope(data string) string {
	return fmt.Sprintf(`{"success":true,"data":%s}`, data)
}

const aboutPage = `{"id":"p1","slug":"about","title":"About","status":"published"}`

func TestGetPageBySlug(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"single object payload", envelope(aboutPage)},
		{"filtered list payload", envelope("[" + aboutPage + "]")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newMapTransport()
			tr.bodies["http://cms/api/v1/pages?slug=about"] = tt.body

			page, err := newTestClient(tr).GetPageBySlug(context.Background(), "about")
			require.NoError(t, err)
			require.NotNil(t, page)
			assert.Equal(t, "p1", page.ID)
			assert.Equal(t, "about", page.Slug)
		})
	}
}

func TestGetPageBySlugNotFound(t *testing.T) {
	tests := []struct {
		name  string
		setup func(tr *mapTransport)
	}{
		{"upstream 404", func(tr *mapTransport) {
			tr.statuses["http://cms/api/v1/pages?slug=about"] = 404
		}},
		{"empty filtered list", func(tr *mapTransport) {
			tr.bodies["http://cms/api/v1/pages?slug=about"] = envelope("[]")
		}},
		{"null data", func(tr *mapTransport) {
			tr.bodies["http://cms/api/v1/pages?slug=about"] = envelope("null")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newMapTransport()
			tt.setup(tr)

			page, err := newTestClient(tr).GetPageBySlug(context.Background(), "about")
			require.NoError(t, err)
			assert.Nil(t, page)
		})
	}
}

func TestFetchCachesSecondRead(t *testing.T) {
	tr := newMapTransport()
	tr.bodies["http://cms/api/v1/pages"] = envelope("[" + aboutPage + "]")
	c := newTestClient(tr)

	first, err := c.ListPages(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, tr.calls())

	second, err := c.ListPages(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, tr.calls(), "second read must be served from cache")
}

func TestPreviewBypassesCacheBothWays(t *testing.T) {
	tr := newMapTransport()
	tr.bodies["http://cms/api/v1/pages"] = envelope("[" + aboutPage + "]")
	c := newTestClient(tr)
	p := c.Preview()

	// preview never writes the cache
	_, err := p.ListPages(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, c.Cache().Len())

	// preview never reads it either: every call goes upstream
	_, err = p.ListPages(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, tr.calls())

	// published reads through the same client are unaffected
	_, err = c.ListPages(context.Background())
	require.NoError(t, err)
	_, err = c.ListPages(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, tr.calls())
}

func TestPreviewSendsHeaders(t *testing.T) {
	tr := newMapTransport()
	tr.bodies["http://cms/api/v1/pages"] = envelope("[]")
	c := newTestClient(tr)

	_, err := c.Preview().ListPages(context.Background())
	require.NoError(t, err)

	require.Len(t, tr.requests, 1)
	h := tr.requests[0].Headers
	assert.Equal(t, "t1", h["X-Tenant-ID"])
	assert.Equal(t, "true", h["X-Preview"])
	assert.Equal(t, "Bearer secret", h["Authorization"])

	_, err = c.ListPages(context.Background())
	require.NoError(t, err)
	_, sent := tr.requests[1].Headers["X-Preview"]
	assert.False(t, sent, "published reads must not claim preview")
}

func TestGroupInvalidationForcesRefetch(t *testing.T) {
	tr := newMapTransport()
	url := "http://cms/api/v1/pages?slug=about"
	tr.bodies[url] = envelope(aboutPage)
	c := newTestClient(tr)

	_, err := c.GetPageBySlug(context.Background(), "about")
	require.NoError(t, err)
	_, err = c.GetPageBySlug(context.Background(), "about")
	require.NoError(t, err)
	assert.Equal(t, 1, tr.calls())

	// a write to the page clears its slug group; the next read goes upstream
	c.Cache().InvalidateGroup(cache.EntitySlugGroup(models.EntityPage, "about"))
	_, err = c.GetPageBySlug(context.Background(), "about")
	require.NoError(t, err)
	assert.Equal(t, 2, tr.calls())
}

func TestTenantGroupClearsEverything(t *testing.T) {
	tr := newMapTransport()
	tr.bodies["http://cms/api/v1/pages"] = envelope("[]")
	tr.bodies["http://cms/api/v1/collections"] = envelope("[]")
	c := newTestClient(tr)

	_, err := c.ListPages(context.Background())
	require.NoError(t, err)
	_, err = c.ListCollections(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, c.Cache().Len())

	cleared := c.Cache().InvalidateGroup(cache.TenantGroup("t1"))
	assert.Equal(t, 2, cleared)
}

func TestListItems(t *testing.T) {
	tr := newMapTransport()
	tr.bodies["http://cms/api/v1/collections/news/items?limit=2&offset=2&status=published"] = `{
		"success": true,
		"data": [
			{"id":"i3","collection_id":"c1","slug":"third","status":"published"},
			{"id":"i4","collection_id":"c1","slug":"fourth","status":"published"}
		],
		"pagination": {"limit":2,"offset":2,"total":7,"hasMore":true}
	}`
	c := newTestClient(tr)

	items, pg, err := c.ListItems(context.Background(), "news", ListItemsOptions{
		Status: models.StatusPublished,
		Limit:  2,
		Offset: 2,
	})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "third", items[0].Slug)
	require.NotNil(t, pg)
	assert.Equal(t, 7, pg.Total)
	assert.True(t, pg.HasMore)
}

func TestGetItemBySlug(t *testing.T) {
	tr := newMapTransport()
	tr.bodies["http://cms/api/v1/collections/news/items"] = envelope(`[
		{"id":"i1","collection_id":"c1","slug":"first","status":"published"},
		{"id":"i2","collection_id":"c1","slug":"second","status":"published"}
	]`)
	c := newTestClient(tr)

	item, err := c.GetItemBySlug(context.Background(), "news", "second")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, "i2", item.ID)

	item, err = c.GetItemBySlug(context.Background(), "news", "no-such-item")
	require.NoError(t, err)
	assert.Nil(t, item)

	item, err = c.GetItemBySlug(context.Background(), "missing-collection", "first")
	require.NoError(t, err)
	assert.Nil(t, item)
}

// TestPublishVisibleAfterAnnounce walks the read side of a publish: a cached
// read stays cached until the announcer clears the page's groups, after which
// the next read goes upstream and sees the new status.
func TestPublishVisibleAfterAnnounce(t *testing.T) {
	tr := newMapTransport()
	pageURL := "http://cms/api/v1/pages?slug=launch"
	tr.bodies[pageURL] = envelope(`{"id":"p1","slug":"launch","title":"Launch","status":"draft"}`)
	c := newTestClient(tr)
	announcer := invalidation.NewAnnouncer(testLogger(), c.Cache())

	// miss then hit
	page, err := c.Preview().GetPageBySlug(context.Background(), "launch")
	require.NoError(t, err)
	assert.Equal(t, "draft", page.Status)

	page, err = c.GetPageBySlug(context.Background(), "launch")
	require.NoError(t, err)
	_, err = c.GetPageBySlug(context.Background(), "launch")
	require.NoError(t, err)
	assert.Equal(t, 2, tr.calls(), "preview miss + published miss, then a hit")

	// the publish happens upstream; the announcer clears the page's groups
	tr.bodies[pageURL] = envelope(`{"id":"p1","slug":"launch","title":"Launch","status":"published"}`)
	announcer.Invalidate("t1", models.EntityPage, "launch")

	page, err = c.GetPageBySlug(context.Background(), "launch")
	require.NoError(t, err)
	require.NotNil(t, page)
	assert.Equal(t, "published", page.Status)
	assert.Equal(t, 3, tr.calls())
}

func TestGetGlobal(t *testing.T) {
	tr := newMapTransport()
	tr.bodies["http://cms/api/v1/globals/site-settings"] = envelope(
		`{"id":"g1","key":"site-settings","status":"published","content":{"title":"Acme"}}`)
	c := newTestClient(tr)

	g, err := c.GetGlobal(context.Background(), "site-settings")
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, "site-settings", g.Key)
	assert.Equal(t, json.RawMessage(`{"title":"Acme"}`), g.Content)

	g, err = c.GetGlobal(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, g)
}
