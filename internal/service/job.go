package service

import (
	"fmt"
	"strings"
	"time"

	"fleetshop/internal/activity"
	"fleetshop/internal/apperr"
	"fleetshop/internal/events"
	"fleetshop/internal/model"
	"fleetshop/internal/numbering"
	"fleetshop/pkg/database"
	"fleetshop/prometheus"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// JobService manages jobs and their workflow status
type JobService struct {
	db      *gorm.DB
	log     *zap.Logger
	numbers *numbering.Generator
	bus     *events.Bus
}

// NewJobService creates a job service
func NewJobService(db *gorm.DB, log *zap.Logger, numbers *numbering.Generator, bus *events.Bus) *JobService {
	return &JobService{db: db, log: log, numbers: numbers, bus: bus}
}

// CreateJobInput opens a new job
type CreateJobInput struct {
	ClientID            uint       `json:"client_id" validate:"required"`
	VehicleID           uint       `json:"vehicle_id" validate:"required"`
	Title               string     `json:"title" validate:"required"`
	Description         string     `json:"description" validate:"required"`
	Priority            string     `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	EstimatedHours      *float64   `json:"estimated_hours" validate:"omitempty,gte=0"`
	ScheduledStartDate  *time.Time `json:"scheduled_start_date"`
	EstimatedCompletion *time.Time `json:"estimated_completion"`
}

func validPriority(p string) bool {
	switch p {
	case model.PriorityLow, model.PriorityMedium, model.PriorityHigh, model.PriorityUrgent:
		return true
	}
	return false
}

// initialStatus returns the tenant's "Request Received" status, or its first status
func initialStatus(tx *gorm.DB, tenantID uint) (*model.JobStatus, error) {
	var status model.JobStatus
	err := tx.Where("tenant_id = ? AND code = ?", tenantID, model.StatusRequestReceived).First(&status).Error
	if database.IsNotFound(err) {
		err = tx.Where("tenant_id = ?", tenantID).Order("order_index").First(&status).Error
	}
	if database.IsNotFound(err) {
		return nil, apperr.InvalidState("no job statuses are configured")
	}
	if err != nil {
		return nil, fmt.Errorf("load initial status: %w", err)
	}
	return &status, nil
}

// CreateJob opens a job in the "Request Received" status
func (s *JobService) CreateJob(actor Actor, in CreateJobInput) (*model.Job, error) {
	if in.ClientID == 0 || in.VehicleID == 0 || strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Description) == "" {
		return nil, apperr.Validation("All required fields must be filled")
	}
	priority := in.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	if !validPriority(priority) {
		return nil, apperr.Validation("Invalid priority %q", priority)
	}
	if in.EstimatedHours != nil && *in.EstimatedHours < 0 {
		return nil, apperr.Validation("estimated_hours cannot be negative")
	}

	job := model.Job{
		TenantID:            actor.TenantID,
		JobNumber:           s.numbers.JobNumber(),
		ClientID:            in.ClientID,
		VehicleID:           in.VehicleID,
		Title:               strings.TrimSpace(in.Title),
		Description:         strings.TrimSpace(in.Description),
		Priority:            priority,
		EstimatedHours:      in.EstimatedHours,
		ScheduledStartDate:  in.ScheduledStartDate,
		EstimatedCompletion: in.EstimatedCompletion,
		CreatedBy:           actor.UserID,
	}

	defer prometheus.TrackDBOperation("job_create")(time.Now())

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var client model.Client
		if err := findInTenant(tx, &client, actor.TenantID, in.ClientID, "client"); err != nil {
			return err
		}
		var vehicle model.Vehicle
		if err := findInTenant(tx, &vehicle, actor.TenantID, in.VehicleID, "vehicle"); err != nil {
			return err
		}
		if vehicle.ClientID != client.ID {
			return apperr.Validation("vehicle does not belong to the client")
		}

		status, err := initialStatus(tx, actor.TenantID)
		if err != nil {
			return err
		}
		job.StatusID = status.ID

		if err := tx.Create(&job).Error; err != nil {
			return err
		}

		return activity.Record(tx, activity.Entry{
			TenantID:   actor.TenantID,
			UserID:     actor.UserRef(),
			EntityType: events.EntityJob,
			EntityID:   job.ID,
			Action:     "created",
			NewValues: map[string]interface{}{
				"job_number": job.JobNumber,
				"title":      job.Title,
				"priority":   job.Priority,
				"client_id":  job.ClientID,
				"vehicle_id": job.VehicleID,
				"status_id":  job.StatusID,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Job created",
		zap.Uint("tenant_id", actor.TenantID),
		zap.Uint("job_id", job.ID),
		zap.String("job_number", job.JobNumber))
	prometheus.RecordDomainOperation(events.EntityJob, "created")
	publish(s.bus, actor.TenantID, events.EntityJob, job.ID, "created")
	return &job, nil
}

// UpdateJobStatus moves a job to another status of the same tenant.
// Entering a final status stamps completed_at; leaving one clears it.
func (s *JobService) UpdateJobStatus(actor Actor, jobID, statusID uint) (*model.Job, error) {
	var job model.Job
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := findInTenant(tx, &job, actor.TenantID, jobID, "job"); err != nil {
			return err
		}
		var status model.JobStatus
		if err := findInTenant(tx, &status, actor.TenantID, statusID, "job status"); err != nil {
			return err
		}

		oldStatusID := job.StatusID
		updates := map[string]interface{}{"status_id": status.ID}
		switch {
		case status.IsFinal && job.CompletedAt == nil:
			updates["completed_at"] = now()
		case !status.IsFinal && job.CompletedAt != nil:
			updates["completed_at"] = nil
		}
		if err := tx.Model(&job).Updates(updates).Error; err != nil {
			return err
		}

		return activity.Record(tx, activity.Entry{
			TenantID:   actor.TenantID,
			UserID:     actor.UserRef(),
			EntityType: events.EntityJob,
			EntityID:   job.ID,
			Action:     "status_updated",
			OldValues:  map[string]interface{}{"status_id": oldStatusID},
			NewValues:  map[string]interface{}{"status_id": status.ID},
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Job status updated", zap.Uint("job_id", job.ID), zap.Uint("status_id", statusID))
	prometheus.RecordDomainOperation(events.EntityJob, "status_updated")
	publish(s.bus, actor.TenantID, events.EntityJob, job.ID, "status_updated")
	return &job, nil
}

// AssignTechnician sets the staff member responsible for a job
func (s *JobService) AssignTechnician(actor Actor, jobID, technicianID uint) (*model.Job, error) {
	var job model.Job
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := findInTenant(tx, &job, actor.TenantID, jobID, "job"); err != nil {
			return err
		}
		var tech model.User
		if err := findInTenant(tx, &tech, actor.TenantID, technicianID, "technician"); err != nil {
			return err
		}
		if tech.Status == model.UserStatusDisabled {
			return apperr.Validation("technician account is disabled")
		}

		if err := tx.Model(&job).Update("assigned_technician_id", tech.ID).Error; err != nil {
			return err
		}
		return activity.Record(tx, activity.Entry{
			TenantID:   actor.TenantID,
			UserID:     actor.UserRef(),
			EntityType: events.EntityJob,
			EntityID:   job.ID,
			Action:     "technician_assigned",
			NewValues:  map[string]interface{}{"assigned_technician_id": tech.ID},
		})
	})
	if err != nil {
		return nil, err
	}

	publish(s.bus, actor.TenantID, events.EntityJob, job.ID, "technician_assigned")
	return &job, nil
}

// ProgressInput updates work progress; nil fields are left unchanged
type ProgressInput struct {
	ActualHours     *float64   `json:"actual_hours" validate:"omitempty,gte=0"`
	InternalNotes   *string    `json:"internal_notes"`
	ActualStartDate *time.Time `json:"actual_start_date"`
	ActualEndDate   *time.Time `json:"actual_end_date"`
}

// UpdateJobProgress writes only the provided progress fields
func (s *JobService) UpdateJobProgress(actor Actor, jobID uint, in ProgressInput) (*model.Job, error) {
	updates := map[string]interface{}{}
	if in.ActualHours != nil {
		if *in.ActualHours < 0 {
			return nil, apperr.Validation("actual_hours cannot be negative")
		}
		updates["actual_hours"] = *in.ActualHours
	}
	if in.InternalNotes != nil && *in.InternalNotes != "" {
		updates["internal_notes"] = *in.InternalNotes
	}
	if in.ActualStartDate != nil {
		updates["actual_start_date"] = in.ActualStartDate.UTC()
	}
	if in.ActualEndDate != nil {
		updates["actual_end_date"] = in.ActualEndDate.UTC()
	}
	if len(updates) == 0 {
		return nil, apperr.Validation("no progress fields provided")
	}
	if in.ActualStartDate != nil && in.ActualEndDate != nil && in.ActualEndDate.Before(*in.ActualStartDate) {
		return nil, apperr.Validation("actual_end_date must not be before actual_start_date")
	}

	var job model.Job
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := findInTenant(tx, &job, actor.TenantID, jobID, "job"); err != nil {
			return err
		}
		if err := tx.Model(&job).Updates(updates).Error; err != nil {
			return err
		}
		return activity.Record(tx, activity.Entry{
			TenantID:   actor.TenantID,
			UserID:     actor.UserRef(),
			EntityType: events.EntityJob,
			EntityID:   job.ID,
			Action:     "progress_updated",
			NewValues:  updates,
		})
	})
	if err != nil {
		return nil, err
	}

	publish(s.bus, actor.TenantID, events.EntityJob, job.ID, "progress_updated")
	return &job, nil
}

// ApproveJobWork records that the work on a job has been authorized by the actor
func (s *JobService) ApproveJobWork(actor Actor, jobID uint) (*model.Job, error) {
	var job model.Job
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := findInTenant(tx, &job, actor.TenantID, jobID, "job"); err != nil {
			return err
		}
		if err := tx.Model(&job).Updates(map[string]interface{}{
			"work_authorized":    true,
			"work_authorized_at": now(),
			"work_authorized_by": actor.UserID,
		}).Error; err != nil {
			return err
		}
		return activity.Record(tx, activity.Entry{
			TenantID:   actor.TenantID,
			UserID:     actor.UserRef(),
			EntityType: events.EntityJob,
			EntityID:   job.ID,
			Action:     "work_authorized",
			NewValues:  map[string]interface{}{"work_authorized": true, "work_authorized_by": actor.UserID},
		})
	})
	if err != nil {
		return nil, err
	}

	prometheus.RecordDomainOperation(events.EntityJob, "work_authorized")
	publish(s.bus, actor.TenantID, events.EntityJob, job.ID, "work_authorized")
	return &job, nil
}

// JobFilter narrows ListJobs
type JobFilter struct {
	StatusID     uint
	TechnicianID uint
	ClientID     uint
	Priority     string
	PageRequest
}

// ListJobs lists the actor's jobs, newest first
func (s *JobService) ListJobs(actor Actor, f JobFilter) ([]model.Job, Pagination, error) {
	page, limit, offset := f.normalize()

	query := s.db.Model(&model.Job{}).Where("tenant_id = ?", actor.TenantID)
	if f.StatusID != 0 {
		query = query.Where("status_id = ?", f.StatusID)
	}
	if f.TechnicianID != 0 {
		query = query.Where("assigned_technician_id = ?", f.TechnicianID)
	}
	if f.ClientID != 0 {
		query = query.Where("client_id = ?", f.ClientID)
	}
	if f.Priority != "" {
		query = query.Where("priority = ?", f.Priority)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, Pagination{}, fmt.Errorf("count jobs: %w", err)
	}

	var jobs []model.Job
	err := query.Preload("Client").Preload("Vehicle").Preload("Status").Preload("Technician").
		Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&jobs).Error
	if err != nil {
		return nil, Pagination{}, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, newPagination(page, limit, total), nil
}

// GetJob loads a job with its relations and parts allocations
func (s *JobService) GetJob(actor Actor, jobID uint) (*model.Job, error) {
	var job model.Job
	query := s.db.Preload("Client").Preload("Vehicle").Preload("Status").Preload("Technician").
		Preload("Allocations.Part")
	if err := findInTenant(query, &job, actor.TenantID, jobID, "job"); err != nil {
		return nil, err
	}
	return &job, nil
}

// ListStatuses returns the tenant's job statuses in workflow order
func (s *JobService) ListStatuses(actor Actor) ([]model.JobStatus, error) {
	var statuses []model.JobStatus
	if err := s.db.Where("tenant_id = ?", actor.TenantID).Order("order_index").Find(&statuses).Error; err != nil {
		return nil, fmt.Errorf("list job statuses: %w", err)
	}
	return statuses, nil
}
