package controllers

import (
	"io"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"quillcms-backend/cache"
	"quillcms-backend/invalidation"
	"quillcms-backend/models"
)

func acquireCtx(t *testing.T) *fiber.Ctx {
	t.Helper()
	app := fiber.New()
	c := app.AcquireCtx(&fasthttp.RequestCtx{})
	t.Cleanup(func() { app.ReleaseCtx(c) })
	return c
}

func quietLog() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestAfterCommitStagesUntilFlush(t *testing.T) {
	c := acquireCtx(t)
	var staged []func()
	c.Locals("afterCommit", &staged)

	ran := false
	afterCommit(c, func() { ran = true })
	assert.False(t, ran, "staged side effects must wait for the commit")

	require.Len(t, staged, 1)
	staged[0]()
	assert.True(t, ran)
}

func TestAfterCommitRunsImmediatelyWithoutTx(t *testing.T) {
	c := acquireCtx(t)

	ran := false
	afterCommit(c, func() { ran = true })
	assert.True(t, ran)
}

func TestAnnounceWaitsForCommit(t *testing.T) {
	target := cache.New(time.Minute)
	target.Put("k", []byte("v"), cache.TenantGroup("t1"))
	log := quietLog()
	Setup(invalidation.NewAnnouncer(log, target), nil, target, log)

	c := acquireCtx(t)
	var staged []func()
	c.Locals("afterCommit", &staged)

	announce(c, "t1", models.EntityPage, "about")

	// nothing cleared while the TX is still open
	_, ok := target.Get("k")
	assert.True(t, ok)
	require.Len(t, staged, 1)

	// the TX middleware flushes after the commit
	staged[0]()
	require.Eventually(t, func() bool {
		_, ok := target.Get("k")
		return !ok
	}, time.Second, 5*time.Millisecond)
}
