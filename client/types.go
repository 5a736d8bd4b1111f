package client

import (
	"encoding/json"
	"time"
)

// Envelope is the delivery API's response shape.
type Envelope struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error,omitempty"`
	Pagination *Pagination     `json:"pagination,omitempty"`
}

// Pagination accompanies list responses.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	Total   int  `json:"total"`
	HasMore bool `json:"hasMore"`
}

// Page is a standalone content page as served by the delivery API.
type Page struct {
	ID          string          `json:"id"`
	Slug        string          `json:"slug"`
	Title       string          `json:"title"`
	Status      string          `json:"status"`
	Content     json.RawMessage `json:"content"`
	PublishedAt *time.Time      `json:"published_at"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type Collection struct {
	ID        string          `json:"id"`
	Slug      string          `json:"slug"`
	Name      string          `json:"name"`
	Status    string          `json:"status"`
	Config    json.RawMessage `json:"config"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type Item struct {
	ID           string          `json:"id"`
	CollectionID string          `json:"collection_id"`
	Slug         string          `json:"slug"`
	Title        string          `json:"title"`
	Status       string          `json:"status"`
	Content      json.RawMessage `json:"content"`
	PublishedAt  *time.Time      `json:"published_at"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type Global struct {
	ID        string          `json:"id"`
	Key       string          `json:"key"`
	Status    string          `json:"status"`
	Content   json.RawMessage `json:"content"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ListItemsOptions filters an item listing. A zero Status defers to the
// upstream default (published only on non-preview requests).
type ListItemsOptions struct {
	Status string
	Limit  int
	Offset int
}
