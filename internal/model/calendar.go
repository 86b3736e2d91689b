package model

import "time"

// Calendar event types
const (
	EventTypeAppointment = "appointment"
	EventTypeJob         = "job"
	EventTypeReminder    = "reminder"
	EventTypeMeeting     = "meeting"
)

// CalendarEvent is a scheduled appointment, job slot, reminder or meeting
type CalendarEvent struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	TenantID       uint      `json:"tenant_id" gorm:"index;not null"`
	JobID          *uint     `json:"job_id,omitempty" gorm:"index"`
	AssignedUserID *uint     `json:"assigned_user_id,omitempty" gorm:"index"`
	Title          string    `json:"title" gorm:"type:varchar(200);not null"`
	Description    string    `json:"description" gorm:"type:text"`
	StartTime      time.Time `json:"start_time" gorm:"index;not null"`
	EndTime        time.Time `json:"end_time" gorm:"not null"`
	AllDay         bool      `json:"all_day"`
	EventType      string    `json:"event_type" gorm:"type:varchar(20);not null"`
	Status         string    `json:"status" gorm:"type:varchar(20);not null"`
	CreatedBy      uint      `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
