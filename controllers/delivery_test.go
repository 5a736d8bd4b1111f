package controllers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampLimit(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{"explicit zero falls back to default", 0, defaultItemLimit},
		{"negative falls back to default", -5, defaultItemLimit},
		{"one is the floor", 1, 1},
		{"default passes through", defaultItemLimit, defaultItemLimit},
		{"max passes through", maxItemLimit, maxItemLimit},
		{"above max is capped", maxItemLimit + 1, maxItemLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, clampLimit(tt.limit))
		})
	}
}
