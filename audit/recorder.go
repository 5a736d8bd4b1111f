// Package audit writes the append-only publish/unpublish log. Writes are
// queued and performed off the request path: a full queue or a failed insert
// is logged and dropped, never surfaced to the triggering operation.
package audit

import (
	"sync"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"quillcms-backend/database"
	"quillcms-backend/models"
)

type job struct {
	schema string
	entry  models.PublishLogEntry
}

// writeFunc persists one entry into the given tenant schema.
type writeFunc func(schema string, entry models.PublishLogEntry) error

type Recorder struct {
	log   *logrus.Logger
	write writeFunc
	queue chan job

	closeOnce sync.Once
	done      chan struct{}
}

func NewRecorder(log *logrus.Logger) *Recorder {
	return newRecorder(log, func(schema string, entry models.PublishLogEntry) error {
		return database.WithSchema(schema, func(tx *gorm.DB) error {
			return tx.Create(&entry).Error
		})
	})
}

func newRecorder(log *logrus.Logger, write writeFunc) *Recorder {
	if log == nil {
		log = logrus.StandardLogger()
	}
	r := &Recorder{
		log:   log,
		write: write,
		queue: make(chan job, 64),
		done:  make(chan struct{}),
	}
	go r.run()
	return r
}

// Record queues a publish log entry for the given tenant schema. Never
// blocks; if the queue is full the entry is dropped with a log line.
func (r *Recorder) Record(schema string, entry models.PublishLogEntry) {
	select {
	case r.queue <- job{schema: schema, entry: entry}:
	default:
		r.log.WithFields(logrus.Fields{
			"target_type": entry.TargetType,
			"target_id":   entry.TargetId,
			"action":      entry.Action,
		}).Warn("publish log queue full, entry dropped")
	}
}

// Close stops the worker after draining queued entries.
func (r *Recorder) Close() {
	r.closeOnce.Do(func() {
		close(r.queue)
		<-r.done
	})
}

func (r *Recorder) run() {
	defer close(r.done)
	for j := range r.queue {
		if err := r.write(j.schema, j.entry); err != nil {
			r.log.WithFields(logrus.Fields{
				"schema":      j.schema,
				"target_type": j.entry.TargetType,
				"target_id":   j.entry.TargetId,
				"action":      j.entry.Action,
			}).WithError(err).Error("publish log write failed")
		}
	}
}
