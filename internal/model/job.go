package model

import (
	"time"

	"gorm.io/gorm"
)

// Job priorities
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Job status codes seeded for every tenant
const (
	StatusRequestReceived    = "request_received"
	StatusDiagnosing         = "diagnosing"
	StatusAwaitingApproval   = "awaiting_approval"
	StatusAwaitingParts      = "awaiting_parts"
	StatusInProgress         = "in_progress"
	StatusQualityCheck       = "quality_check"
	StatusReadyForCollection = "ready_for_collection"
	StatusCompleted          = "completed"
	StatusCollected          = "collected"
)

// JobStatus is a tenant-defined workflow stage of a job
type JobStatus struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	TenantID   uint      `json:"tenant_id" gorm:"uniqueIndex:idx_job_statuses_tenant_code;not null"`
	Name       string    `json:"name" gorm:"type:varchar(50);not null"`
	Code       string    `json:"code" gorm:"type:varchar(50);uniqueIndex:idx_job_statuses_tenant_code;not null"`
	Color      string    `json:"color" gorm:"type:varchar(20)"`
	OrderIndex int       `json:"order_index"`
	IsFinal    bool      `json:"is_final"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// DefaultJobStatuses returns the status set a new tenant starts with
func DefaultJobStatuses(tenantID uint) []JobStatus {
	return []JobStatus{
		{TenantID: tenantID, Name: "Request Received", Code: StatusRequestReceived, Color: "#6B7280", OrderIndex: 1},
		{TenantID: tenantID, Name: "Diagnosing", Code: StatusDiagnosing, Color: "#3B82F6", OrderIndex: 2},
		{TenantID: tenantID, Name: "Awaiting Approval", Code: StatusAwaitingApproval, Color: "#F59E0B", OrderIndex: 3},
		{TenantID: tenantID, Name: "Awaiting Parts", Code: StatusAwaitingParts, Color: "#EF4444", OrderIndex: 4},
		{TenantID: tenantID, Name: "In Progress", Code: StatusInProgress, Color: "#8B5CF6", OrderIndex: 5},
		{TenantID: tenantID, Name: "Quality Check", Code: StatusQualityCheck, Color: "#06B6D4", OrderIndex: 6},
		{TenantID: tenantID, Name: "Ready for Collection", Code: StatusReadyForCollection, Color: "#10B981", OrderIndex: 7},
		{TenantID: tenantID, Name: "Completed", Code: StatusCompleted, Color: "#059669", OrderIndex: 8, IsFinal: true},
		{TenantID: tenantID, Name: "Collected", Code: StatusCollected, Color: "#374151", OrderIndex: 9, IsFinal: true},
	}
}

// ActiveStatusCodes are the statuses counted as work in progress on the dashboard
var ActiveStatusCodes = []string{StatusInProgress, StatusAwaitingParts, StatusReadyForCollection}

// Job is one unit of service work on a client's vehicle
type Job struct {
	ID                   uint           `json:"id" gorm:"primaryKey"`
	TenantID             uint           `json:"tenant_id" gorm:"index;not null"`
	JobNumber            string         `json:"job_number" gorm:"type:varchar(40);uniqueIndex;not null"`
	ClientID             uint           `json:"client_id" gorm:"index;not null"`
	VehicleID            uint           `json:"vehicle_id" gorm:"index;not null"`
	Title                string         `json:"title" gorm:"type:varchar(200);not null"`
	Description          string         `json:"description" gorm:"type:text"`
	Priority             string         `json:"priority" gorm:"type:varchar(10);not null"`
	StatusID             uint           `json:"status_id" gorm:"index"`
	AssignedTechnicianID *uint          `json:"assigned_technician_id,omitempty" gorm:"index"`
	EstimatedHours       *float64       `json:"estimated_hours,omitempty"`
	ActualHours          *float64       `json:"actual_hours,omitempty"`
	ScheduledStartDate   *time.Time     `json:"scheduled_start_date,omitempty"`
	ScheduledEndDate     *time.Time     `json:"scheduled_end_date,omitempty"`
	ActualStartDate      *time.Time     `json:"actual_start_date,omitempty"`
	ActualEndDate        *time.Time     `json:"actual_end_date,omitempty"`
	EstimatedCompletion  *time.Time     `json:"estimated_completion,omitempty"`
	CompletedAt          *time.Time     `json:"completed_at,omitempty"`
	InternalNotes        string         `json:"internal_notes" gorm:"type:text"`
	QuoteApproved        bool           `json:"quote_approved"`
	QuoteApprovedAt      *time.Time     `json:"quote_approved_at,omitempty"`
	WorkAuthorized       bool           `json:"work_authorized"`
	WorkAuthorizedAt     *time.Time     `json:"work_authorized_at,omitempty"`
	WorkAuthorizedBy     *uint          `json:"work_authorized_by,omitempty"`
	CreatedBy            uint           `json:"created_by"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
	DeletedAt            gorm.DeletedAt `json:"-" gorm:"index"`

	Client      *Client              `json:"client,omitempty" gorm:"foreignKey:ClientID"`
	Vehicle     *Vehicle             `json:"vehicle,omitempty" gorm:"foreignKey:VehicleID"`
	Status      *JobStatus           `json:"status,omitempty" gorm:"foreignKey:StatusID"`
	Technician  *User                `json:"technician,omitempty" gorm:"foreignKey:AssignedTechnicianID"`
	Allocations []JobPartsAllocation `json:"allocations,omitempty" gorm:"foreignKey:JobID"`
}
