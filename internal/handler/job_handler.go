package handler

import (
	"net/http"

	"fleetshop/internal/service"

	"github.com/labstack/echo/v4"
)

// JobHandler serves the job workflow and the parts booked against jobs
type JobHandler struct {
	jobs      *service.JobService
	inventory *service.InventoryService
}

// NewJobHandler creates a job handler
func NewJobHandler(jobs *service.JobService, inventory *service.InventoryService) *JobHandler {
	return &JobHandler{jobs: jobs, inventory: inventory}
}

// CreateJob opens a job for a client's vehicle
func (h *JobHandler) CreateJob(c echo.Context) error {
	var req service.CreateJobInput
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	job, err := h.jobs.CreateJob(actorFrom(c), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, job)
}

// ListJobs lists jobs filtered by status_id, technician_id, client_id and priority
func (h *JobHandler) ListJobs(c echo.Context) error {
	var statusID, technicianID, clientID uint64
	f := service.JobFilter{PageRequest: pageRequest(c)}
	if err := echo.QueryParamsBinder(c).
		Uint64("status_id", &statusID).
		Uint64("technician_id", &technicianID).
		Uint64("client_id", &clientID).
		String("priority", &f.Priority).
		BindError(); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid query parameters"})
	}
	f.StatusID, f.TechnicianID, f.ClientID = uint(statusID), uint(technicianID), uint(clientID)

	jobs, page, err := h.jobs.ListJobs(actorFrom(c), f)
	if err != nil {
		return respondError(c, err)
	}
	return paginated(c, jobs, page)
}

// GetJob returns one job with its relations
func (h *JobHandler) GetJob(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	job, err := h.jobs.GetJob(actorFrom(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, job)
}

// ListStatuses returns the tenant's job workflow
func (h *JobHandler) ListStatuses(c echo.Context) error {
	statuses, err := h.jobs.ListStatuses(actorFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": statuses})
}

type jobStatusRequest struct {
	StatusID uint `json:"status_id" validate:"required"`
}

// UpdateJobStatus moves a job to another status
func (h *JobHandler) UpdateJobStatus(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req jobStatusRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	job, err := h.jobs.UpdateJobStatus(actorFrom(c), id, req.StatusID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, job)
}

type assignRequest struct {
	TechnicianID uint `json:"technician_id" validate:"required"`
}

// AssignTechnician sets the job's technician
func (h *JobHandler) AssignTechnician(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req assignRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	job, err := h.jobs.AssignTechnician(actorFrom(c), id, req.TechnicianID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, job)
}

// UpdateJobProgress records hours, notes and actual dates
func (h *JobHandler) UpdateJobProgress(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req service.ProgressInput
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	job, err := h.jobs.UpdateJobProgress(actorFrom(c), id, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, job)
}

// ApproveJobWork authorizes work on a job
func (h *JobHandler) ApproveJobWork(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	job, err := h.jobs.ApproveJobWork(actorFrom(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, job)
}

// GetJobParts lists the parts allocated to a job
func (h *JobHandler) GetJobParts(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	allocations, err := h.inventory.GetJobPartsAllocation(actorFrom(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": allocations})
}

type allocateRequest struct {
	Parts []service.PartQuantity `json:"parts" validate:"required,min=1,dive"`
}

// AllocateParts reserves stock for a job
func (h *JobHandler) AllocateParts(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req allocateRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	allocations, err := h.inventory.AllocatePartsToJob(actorFrom(c), id, req.Parts)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": allocations})
}

type usageRequest struct {
	Parts []service.PartUsage `json:"parts" validate:"required,min=1,dive"`
}

// RecordPartsUsage books used parts against a job
func (h *JobHandler) RecordPartsUsage(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req usageRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	allocations, err := h.inventory.RecordPartsUsage(actorFrom(c), id, req.Parts)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": allocations})
}
