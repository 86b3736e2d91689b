package model

import (
	"time"

	"gorm.io/datatypes"
)

// ActivityLog is an append-only audit row of a change to a tenant entity
type ActivityLog struct {
	ID         uint              `json:"id" gorm:"primaryKey"`
	TenantID   uint              `json:"tenant_id" gorm:"index:idx_activity_logs_entity,priority:1;not null"`
	UserID     *uint             `json:"user_id,omitempty" gorm:"index"`
	EntityType string            `json:"entity_type" gorm:"type:varchar(30);index:idx_activity_logs_entity,priority:2;not null"`
	EntityID   uint              `json:"entity_id" gorm:"index:idx_activity_logs_entity,priority:3;not null"`
	Action     string            `json:"action" gorm:"type:varchar(50);not null"`
	OldValues  datatypes.JSONMap `json:"old_values,omitempty"`
	NewValues  datatypes.JSONMap `json:"new_values,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}
