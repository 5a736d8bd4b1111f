package audit

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quillcms-backend/models"
)

func publishEntry(id string) models.PublishLogEntry {
	return models.PublishLogEntry{
		TenantId:   "t1",
		ActorId:    "u1",
		TargetType: models.EntityPage,
		TargetId:   id,
		Action:     models.ActionPublish,
	}
}

func TestRecordWritesThroughWorker(t *testing.T) {
	var mu sync.Mutex
	var got []models.PublishLogEntry
	r := newRecorder(nil, func(schema string, entry models.PublishLogEntry) error {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, "tenant_a", schema)
		got = append(got, entry)
		return nil
	})

	r.Record("tenant_a", publishEntry("p1"))
	r.Record("tenant_a", publishEntry("p2"))
	r.Close()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 2)
	assert.Equal(t, "p1", got[0].TargetId)
	assert.Equal(t, "p2", got[1].TargetId)
}

func TestRecordNeverBlocksWhenQueueFull(t *testing.T) {
	log, hook := test.NewNullLogger()

	gate := make(chan struct{})
	started := make(chan struct{})
	var startOnce sync.Once
	var wrote int32
	r := newRecorder(log, func(string, models.PublishLogEntry) error {
		startOnce.Do(func() { close(started) })
		<-gate
		atomic.AddInt32(&wrote, 1)
		return nil
	})

	// first job occupies the worker, the next 64 fill the queue
	r.Record("s", publishEntry("p0"))
	<-started
	for i := 0; i < 64; i++ {
		r.Record("s", publishEntry("queued"))
	}

	// one more must drop instead of blocking the caller
	returned := make(chan struct{})
	go func() {
		r.Record("s", publishEntry("overflow"))
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("Record blocked on a full queue")
	}

	close(gate)
	r.Close()

	assert.Equal(t, int32(65), atomic.LoadInt32(&wrote))
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "publish log queue full, entry dropped", hook.LastEntry().Message)
}

func TestFailedWriteIsLoggedAndSwallowed(t *testing.T) {
	log, hook := test.NewNullLogger()
	r := newRecorder(log, func(string, models.PublishLogEntry) error {
		return errors.New("insert failed")
	})

	r.Record("s", publishEntry("p1"))
	r.Close()

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Equal(t, "publish log write failed", hook.LastEntry().Message)
}
