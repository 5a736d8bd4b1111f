package models

import "time"

// Publish log actions
const (
	ActionPublish   = "publish"
	ActionUnpublish = "unpublish"
)

// PublishLogEntry is an append-only audit record for status transitions.
// It is tenant-scoped (lives in the tenant schema) and written best-effort:
// a failed log write never fails the publish itself.
type PublishLogEntry struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	TenantId   string    `json:"tenant_id" gorm:"size:64;index"`
	ActorId    string    `json:"actor_id" gorm:"size:64"`
	TargetType string    `json:"target_type" gorm:"size:20;index:idx_publish_log_target,priority:1"`
	TargetId   string    `json:"target_id" gorm:"size:64;index:idx_publish_log_target,priority:2"`
	Action     string    `json:"action" gorm:"size:20;not null"`
	Note       string    `json:"note"`
	CreatedAt  time.Time `json:"created_at"`
}
