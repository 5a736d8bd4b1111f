package invalidation

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quillcms-backend/cache"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func groupStrings(groups []cache.Group) []string {
	out := make([]string, 0, len(groups))
	for _, g := range groups {
		out = append(out, g.String())
	}
	return out
}

func TestInvalidateComputesGroups(t *testing.T) {
	a := NewAnnouncer(quietLogger())

	tests := []struct {
		name  string
		slugs []string
		want  []string
	}{
		{
			name:  "no slug still hits the tenant group",
			slugs: nil,
			want:  []string{"tenant:t1"},
		},
		{
			name:  "single slug",
			slugs: []string{"about"},
			want:  []string{"tenant:t1", "page:slug:about"},
		},
		{
			name:  "slug change carries old and new",
			slugs: []string{"about", "about-us"},
			want:  []string{"tenant:t1", "page:slug:about", "page:slug:about-us"},
		},
		{
			name:  "unchanged slug passed twice is deduplicated",
			slugs: []string{"about", "about"},
			want:  []string{"tenant:t1", "page:slug:about"},
		},
		{
			name:  "empty slugs are skipped",
			slugs: []string{"", "about"},
			want:  []string{"tenant:t1", "page:slug:about"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := a.Invalidate("t1", "page", tt.slugs...)
			assert.Equal(t, tt.want, groupStrings(got))
		})
	}
}

func TestInvalidateClearsRegisteredCaches(t *testing.T) {
	c := cache.New(time.Minute)
	a := NewAnnouncer(quietLogger(), c)

	c.Put("pages-list", []byte("list"), cache.TenantGroup("t1"))
	c.Put("page-about", []byte("about"), cache.TenantGroup("t1"), cache.EntitySlugGroup("page", "about"))
	c.Put("other", []byte("x"), cache.TenantGroup("t2"))

	a.Invalidate("t1", "page", "about")

	_, ok := c.Get("pages-list")
	assert.False(t, ok)
	_, ok = c.Get("page-about")
	assert.False(t, ok)
	_, ok = c.Get("other")
	assert.True(t, ok, "other tenants stay cached")
}

type panickyTarget struct{}

func (panickyTarget) InvalidateGroup(cache.Group) int { panic("boom") }

func TestInvalidateSurvivesPanickingTarget(t *testing.T) {
	c := cache.New(time.Minute)
	a := NewAnnouncer(quietLogger(), panickyTarget{}, c)

	c.Put("k", []byte("v"), cache.TenantGroup("t1"))

	require.NotPanics(t, func() {
		a.Invalidate("t1", "page", "about")
	})

	// the healthy target after the panicking one was still cleared
	_, ok := c.Get("k")
	assert.False(t, ok)
}
