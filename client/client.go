package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"quillcms-backend/cache"
	"quillcms-backend/models"
)

// Default tuning. Overridable via Config.
const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = 250 * time.Millisecond
	defaultCacheMaxAge = 60 * time.Second
	defaultTimeout     = 10 * time.Second
)

// Config configures a delivery client.
type Config struct {
	BaseURL  string
	TenantID string
	// APIKey authorizes preview (draft) reads; optional for published reads.
	APIKey string

	MaxAttempts int
	BaseDelay   time.Duration
	CacheMaxAge time.Duration
	Timeout     time.Duration

	// Transport overrides the default resty transport; used in tests.
	Transport Transport
	Logger    *logrus.Logger
}

// Client is the typed content client. Reads check the response cache first
// (skipped in preview mode) and go through the retrying requester on a miss.
// A client is safe for concurrent use; Preview() derivatives share the same
// cache and requester.
type Client struct {
	baseURL   string
	tenantID  string
	apiKey    string
	preview   bool
	cache     *cache.ResponseCache
	requester *Requester
	log       *logrus.Logger
}

func New(cfg Config) *Client {
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.BaseDelay == 0 {
		cfg.BaseDelay = defaultBaseDelay
	}
	if cfg.CacheMaxAge == 0 {
		cfg.CacheMaxAge = defaultCacheMaxAge
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	transport := cfg.Transport
	if transport == nil {
		transport = newRestyTransport(cfg.Timeout)
	}

	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		tenantID:  cfg.TenantID,
		apiKey:    cfg.APIKey,
		cache:     cache.New(cfg.CacheMaxAge),
		requester: NewRequester(transport, cfg.MaxAttempts, cfg.BaseDelay, cfg.Logger),
		log:       cfg.Logger,
	}
}

// Preview returns a view of the client that requests draft content and
// bypasses the response cache in both directions.
func (c *Client) Preview() *Client {
	cp := *c
	cp.preview = true
	return &cp
}

// Cache exposes the client's response cache so a co-located write path can
// register it with the invalidation announcer.
func (c *Client) Cache() *cache.ResponseCache {
	return c.cache
}

// GetPageBySlug returns the page with the given slug, or nil when no such
// page exists. A single-object and a filtered-list upstream response are
// both accepted.
func (c *Client) GetPageBySlug(ctx context.Context, slug string) (*Page, error) {
	endpoint := "/api/v1/pages?slug=" + url.QueryEscape(slug)
	env, err := c.fetch(ctx, endpoint, cache.EntitySlugGroup(models.EntityPage, slug))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	pages, err := decodeOneOrMany[Page](env.Data)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, nil
	}
	return &pages[0], nil
}

// ListPages returns all pages visible in the current mode.
func (c *Client) ListPages(ctx context.Context) ([]Page, error) {
	env, err := c.fetch(ctx, "/api/v1/pages")
	if err != nil {
		return nil, err
	}
	return decodeOneOrMany[Page](env.Data)
}

// ListCollections returns all collections visible in the current mode.
func (c *Client) ListCollections(ctx context.Context) ([]Collection, error) {
	env, err := c.fetch(ctx, "/api/v1/collections")
	if err != nil {
		return nil, err
	}
	return decodeOneOrMany[Collection](env.Data)
}

// ListItems returns a page of items for a collection plus pagination
// metadata.
func (c *Client) ListItems(ctx context.Context, collectionSlug string, opts ListItemsOptions) ([]Item, *Pagination, error) {
	endpoint := itemsEndpoint(collectionSlug, opts)
	env, err := c.fetch(ctx, endpoint, cache.EntitySlugGroup(models.EntityCollection, collectionSlug))
	if err != nil {
		return nil, nil, err
	}
	items, err := decodeOneOrMany[Item](env.Data)
	if err != nil {
		return nil, nil, err
	}
	return items, env.Pagination, nil
}

// GetItemBySlug fetches the first page of the collection's items and scans
// for a matching slug; the delivery API has no single-item-by-slug endpoint.
// Returns nil when the collection is missing or holds no such item.
func (c *Client) GetItemBySlug(ctx context.Context, collectionSlug, slug string) (*Item, error) {
	endpoint := itemsEndpoint(collectionSlug, ListItemsOptions{})
	env, err := c.fetch(ctx, endpoint,
		cache.EntitySlugGroup(models.EntityCollection, collectionSlug),
		cache.EntitySlugGroup(models.EntityItem, slug))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	items, err := decodeOneOrMany[Item](env.Data)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].Slug == slug {
			return &items[i], nil
		}
	}
	return nil, nil
}

// GetGlobal returns the global for key, or nil when it does not exist.
func (c *Client) GetGlobal(ctx context.Context, key string) (*Global, error) {
	endpoint := "/api/v1/globals/" + url.PathEscape(key)
	env, err := c.fetch(ctx, endpoint, cache.EntitySlugGroup(models.EntityGlobal, key))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	var g Global
	if err := json.Unmarshal(env.Data, &g); err != nil {
		return nil, fmt.Errorf("decode global: %w", err)
	}
	return &g, nil
}

// fetch serves a GET from the cache when possible, otherwise issues it via
// the requester and caches the raw body. Cached entries are always tagged
// with the tenant group so any write can invalidate them, plus the more
// precise groups the caller supplies.
func (c *Client) fetch(ctx context.Context, endpoint string, groups ...cache.Group) (*Envelope, error) {
	fullURL := c.baseURL + endpoint
	key := cache.Key(fullURL, c.preview)

	if !c.preview {
		if body, ok := c.cache.Get(key); ok {
			return decodeEnvelope(body)
		}
	}

	resp, err := c.requester.Execute(ctx, &Request{
		Method:  "GET",
		URL:     fullURL,
		Headers: c.headers(),
	})
	if err != nil {
		return nil, err
	}

	env, err := decodeEnvelope(resp.Body)
	if err != nil {
		return nil, err
	}

	if !c.preview {
		c.cache.Put(key, resp.Body, append(groups, cache.TenantGroup(c.tenantID))...)
	}
	return env, nil
}

func (c *Client) headers() map[string]string {
	h := map[string]string{
		"X-Tenant-ID": c.tenantID,
	}
	if c.preview {
		h["X-Preview"] = "true"
	}
	if c.apiKey != "" {
		h["Authorization"] = "Bearer " + c.apiKey
	}
	return h
}

func itemsEndpoint(collectionSlug string, opts ListItemsOptions) string {
	endpoint := "/api/v1/collections/" + url.PathEscape(collectionSlug) + "/items"
	q := url.Values{}
	if opts.Status != "" {
		q.Set("status", opts.Status)
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		q.Set("offset", strconv.Itoa(opts.Offset))
	}
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	return endpoint
}

func decodeEnvelope(body []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode response envelope: %w", err)
	}
	return &env, nil
}

// decodeOneOrMany accepts both list and single-object payloads, normalizing
// a single object into a one-element slice. A JSON null decodes to empty.
func decodeOneOrMany[T any](data json.RawMessage) ([]T, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var many []T
		if err := json.Unmarshal(trimmed, &many); err != nil {
			return nil, fmt.Errorf("decode list payload: %w", err)
		}
		return many, nil
	}
	var one T
	if err := json.Unmarshal(trimmed, &one); err != nil {
		return nil, fmt.Errorf("decode single payload: %w", err)
	}
	return []T{one}, nil
}
