package service

import (
	"fmt"
	"strings"
	"time"

	"fleetshop/internal/activity"
	"fleetshop/internal/apperr"
	"fleetshop/internal/events"
	"fleetshop/internal/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Calendar event statuses
const (
	EventStatusScheduled = "scheduled"
	EventStatusCompleted = "completed"
	EventStatusCancelled = "cancelled"
)

// CalendarService schedules appointments and job slots
type CalendarService struct {
	db  *gorm.DB
	log *zap.Logger
	bus *events.Bus
}

// NewCalendarService creates a calendar service
func NewCalendarService(db *gorm.DB, log *zap.Logger, bus *events.Bus) *CalendarService {
	return &CalendarService{db: db, log: log, bus: bus}
}

// EventInput creates a calendar event
type EventInput struct {
	Title          string    `json:"title" validate:"required"`
	Description    string    `json:"description"`
	StartTime      time.Time `json:"start_time" validate:"required"`
	EndTime        time.Time `json:"end_time" validate:"required"`
	AllDay         bool      `json:"all_day"`
	EventType      string    `json:"event_type" validate:"omitempty,oneof=appointment job reminder meeting"`
	JobID          *uint     `json:"job_id"`
	AssignedUserID *uint     `json:"assigned_user_id"`
}

func validateEventWindow(title string, start, end time.Time) error {
	if strings.TrimSpace(title) == "" || start.IsZero() || end.IsZero() {
		return apperr.Validation("Title, start time, and end time are required")
	}
	if end.Before(start) {
		return apperr.Validation("End time must not be before start time")
	}
	return nil
}

// CreateEvent schedules an event. A job event also moves the job's scheduled window.
func (s *CalendarService) CreateEvent(actor Actor, in EventInput) (*model.CalendarEvent, error) {
	if err := validateEventWindow(in.Title, in.StartTime, in.EndTime); err != nil {
		return nil, err
	}
	eventType := in.EventType
	if eventType == "" {
		eventType = model.EventTypeAppointment
	}
	switch eventType {
	case model.EventTypeAppointment, model.EventTypeJob, model.EventTypeReminder, model.EventTypeMeeting:
	default:
		return nil, apperr.Validation("unknown event type %q", eventType)
	}

	event := model.CalendarEvent{
		TenantID:       actor.TenantID,
		JobID:          in.JobID,
		AssignedUserID: in.AssignedUserID,
		Title:          strings.TrimSpace(in.Title),
		Description:    in.Description,
		StartTime:      in.StartTime.UTC(),
		EndTime:        in.EndTime.UTC(),
		AllDay:         in.AllDay,
		EventType:      eventType,
		Status:         EventStatusScheduled,
		CreatedBy:      actor.UserID,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if in.AssignedUserID != nil {
			var user model.User
			if err := findInTenant(tx, &user, actor.TenantID, *in.AssignedUserID, "user"); err != nil {
				return err
			}
		}
		var job model.Job
		if in.JobID != nil {
			if err := findInTenant(tx, &job, actor.TenantID, *in.JobID, "job"); err != nil {
				return err
			}
		}

		if err := tx.Create(&event).Error; err != nil {
			return err
		}

		if in.JobID != nil && eventType == model.EventTypeJob {
			if err := tx.Model(&job).Updates(map[string]interface{}{
				"scheduled_start_date": event.StartTime,
				"scheduled_end_date":   event.EndTime,
			}).Error; err != nil {
				return fmt.Errorf("schedule job: %w", err)
			}
		}

		return activity.Record(tx, activity.Entry{
			TenantID:   actor.TenantID,
			UserID:     actor.UserRef(),
			EntityType: events.EntityCalendar,
			EntityID:   event.ID,
			Action:     "created",
			NewValues: map[string]interface{}{
				"title":      event.Title,
				"event_type": event.EventType,
				"start_time": event.StartTime,
				"end_time":   event.EndTime,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Calendar event created", zap.Uint("tenant_id", actor.TenantID), zap.Uint("event_id", event.ID))
	publish(s.bus, actor.TenantID, events.EntityCalendar, event.ID, "created")
	if in.JobID != nil && eventType == model.EventTypeJob {
		publish(s.bus, actor.TenantID, events.EntityJob, *in.JobID, "scheduled")
	}
	return &event, nil
}

// EventUpdate replaces the editable fields of an event
type EventUpdate struct {
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"start_time" validate:"required"`
	EndTime     time.Time `json:"end_time" validate:"required"`
	Status      string    `json:"status" validate:"omitempty,oneof=scheduled completed cancelled"`
}

// UpdateEvent edits an event; an empty status keeps the current one
func (s *CalendarService) UpdateEvent(actor Actor, id uint, in EventUpdate) (*model.CalendarEvent, error) {
	if err := validateEventWindow(in.Title, in.StartTime, in.EndTime); err != nil {
		return nil, err
	}
	switch in.Status {
	case "", EventStatusScheduled, EventStatusCompleted, EventStatusCancelled:
	default:
		return nil, apperr.Validation("unknown event status %q", in.Status)
	}

	var event model.CalendarEvent
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := findInTenant(tx, &event, actor.TenantID, id, "calendar event"); err != nil {
			return err
		}
		updates := map[string]interface{}{
			"title":       strings.TrimSpace(in.Title),
			"description": in.Description,
			"start_time":  in.StartTime.UTC(),
			"end_time":    in.EndTime.UTC(),
		}
		if in.Status != "" {
			updates["status"] = in.Status
		}
		if err := tx.Model(&event).Updates(updates).Error; err != nil {
			return err
		}
		return activity.Record(tx, activity.Entry{
			TenantID:   actor.TenantID,
			UserID:     actor.UserRef(),
			EntityType: events.EntityCalendar,
			EntityID:   event.ID,
			Action:     "updated",
		})
	})
	if err != nil {
		return nil, err
	}

	publish(s.bus, actor.TenantID, events.EntityCalendar, event.ID, "updated")
	return &event, nil
}

// DeleteEvent removes an event
func (s *CalendarService) DeleteEvent(actor Actor, id uint) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var event model.CalendarEvent
		if err := findInTenant(tx, &event, actor.TenantID, id, "calendar event"); err != nil {
			return err
		}
		if err := tx.Delete(&event).Error; err != nil {
			return err
		}
		return activity.Record(tx, activity.Entry{
			TenantID:   actor.TenantID,
			UserID:     actor.UserRef(),
			EntityType: events.EntityCalendar,
			EntityID:   id,
			Action:     "deleted",
		})
	})
	if err != nil {
		return err
	}

	publish(s.bus, actor.TenantID, events.EntityCalendar, id, "deleted")
	return nil
}

// EventRange selects events overlapping [From, To)
type EventRange struct {
	From           time.Time
	To             time.Time
	AssignedUserID *uint
	JobID          *uint
}

// ListEvents returns the events overlapping the range, earliest first
func (s *CalendarService) ListEvents(actor Actor, r EventRange) ([]model.CalendarEvent, error) {
	if !r.From.IsZero() && !r.To.IsZero() && r.To.Before(r.From) {
		return nil, apperr.Validation("end of range must not be before its start")
	}

	query := s.db.Where("tenant_id = ?", actor.TenantID)
	if !r.From.IsZero() {
		query = query.Where("end_time >= ?", r.From.UTC())
	}
	if !r.To.IsZero() {
		query = query.Where("start_time < ?", r.To.UTC())
	}
	if r.AssignedUserID != nil {
		query = query.Where("assigned_user_id = ?", *r.AssignedUserID)
	}
	if r.JobID != nil {
		query = query.Where("job_id = ?", *r.JobID)
	}

	var list []model.CalendarEvent
	if err := query.Order("start_time, id").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list calendar events: %w", err)
	}
	return list, nil
}
