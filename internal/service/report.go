package service

import (
	"fmt"
	"sort"
	"time"

	"fleetshop/internal/apperr"
	"fleetshop/internal/model"
	"fleetshop/internal/reportcache"
	"fleetshop/prometheus"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

// ReportService computes tenant dashboards and reports. Results are cached
// per tenant until a change in that tenant invalidates them.
type ReportService struct {
	db    *gorm.DB
	log   *zap.Logger
	cache *reportcache.Cache
}

// NewReportService creates a report service; cache may be nil
func NewReportService(db *gorm.DB, log *zap.Logger, cache *reportcache.Cache) *ReportService {
	return &ReportService{db: db, log: log, cache: cache}
}

// DateRange is an inclusive range of calendar days
type DateRange struct {
	Start time.Time
	End   time.Time
}

func (r DateRange) normalize() (from, to time.Time, err error) {
	if r.Start.IsZero() || r.End.IsZero() {
		return from, to, apperr.Validation("start and end dates are required")
	}
	from, to = truncateDay(r.Start), truncateDay(r.End).AddDate(0, 0, 1)
	if !from.Before(to) {
		return from, to, apperr.Validation("end date must not be before start date")
	}
	return from, to, nil
}

func (r DateRange) key() string {
	return truncateDay(r.Start).Format(dateLayout) + ".." + truncateDay(r.End).Format(dateLayout)
}

func monthStart(t time.Time) time.Time {
	y, m, _ := t.UTC().Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

// finalStatusIDs selects the ids of a tenant's final job statuses
func finalStatusIDs(db *gorm.DB, tenantID uint) *gorm.DB {
	return db.Model(&model.JobStatus{}).Select("id").Where("tenant_id = ? AND is_final = ?", tenantID, true)
}

// DashboardMetrics are the headline numbers on the staff dashboard
type DashboardMetrics struct {
	CurrentMonthRevenue  decimal.Decimal `json:"current_month_revenue"`
	ActiveJobsCount      int64           `json:"active_jobs_count"`
	CompletedJobsCount   int64           `json:"completed_jobs_count"`
	OverdueJobsCount     int64           `json:"overdue_jobs_count"`
	OverduePaymentsCount int64           `json:"overdue_payments_count"`
}

// DashboardMetrics summarises the current month for the actor's tenant
func (s *ReportService) DashboardMetrics(actor Actor) (*DashboardMetrics, error) {
	at := now()
	key := reportcache.Key(actor.TenantID, "dashboard", at.Format(dateLayout))
	return reportcache.Load(s.cache, key, func() (*DashboardMetrics, error) {
		defer prometheus.TrackDBOperation("report_dashboard")(time.Now())
		return s.dashboardMetrics(actor.TenantID, at)
	})
}

func (s *ReportService) dashboardMetrics(tenantID uint, at time.Time) (*DashboardMetrics, error) {
	var m DashboardMetrics
	start := monthStart(at)

	var paid []model.Invoice
	if err := s.db.Select("id", "total_amount").
		Where("tenant_id = ? AND status = ? AND paid_date >= ?", tenantID, model.InvoiceStatusPaid, start).
		Find(&paid).Error; err != nil {
		return nil, fmt.Errorf("load paid invoices: %w", err)
	}
	m.CurrentMonthRevenue = decimal.Zero
	for _, inv := range paid {
		m.CurrentMonthRevenue = m.CurrentMonthRevenue.Add(inv.TotalAmount)
	}

	activeIDs := s.db.Model(&model.JobStatus{}).Select("id").
		Where("tenant_id = ? AND code IN ?", tenantID, model.ActiveStatusCodes)
	if err := s.db.Model(&model.Job{}).
		Where("tenant_id = ? AND status_id IN (?)", tenantID, activeIDs).
		Count(&m.ActiveJobsCount).Error; err != nil {
		return nil, fmt.Errorf("count active jobs: %w", err)
	}

	if err := s.db.Model(&model.Job{}).
		Where("tenant_id = ? AND completed_at >= ?", tenantID, start).
		Count(&m.CompletedJobsCount).Error; err != nil {
		return nil, fmt.Errorf("count completed jobs: %w", err)
	}

	if err := s.overdueJobs(tenantID, at).Count(&m.OverdueJobsCount).Error; err != nil {
		return nil, fmt.Errorf("count overdue jobs: %w", err)
	}
	if err := s.overduePayments(tenantID, at).Count(&m.OverduePaymentsCount).Error; err != nil {
		return nil, fmt.Errorf("count overdue payments: %w", err)
	}
	return &m, nil
}

func (s *ReportService) overdueJobs(tenantID uint, at time.Time) *gorm.DB {
	return s.db.Model(&model.Job{}).
		Where("tenant_id = ? AND estimated_completion < ? AND status_id NOT IN (?)", tenantID, at, finalStatusIDs(s.db, tenantID))
}

func (s *ReportService) overduePayments(tenantID uint, at time.Time) *gorm.DB {
	return s.db.Model(&model.Invoice{}).
		Where("tenant_id = ? AND due_date < ? AND status NOT IN ?", tenantID, truncateDay(at),
			[]string{model.InvoiceStatusPaid, model.InvoiceStatusCancelled})
}

// RevenueRow is one invoice in the revenue report
type RevenueRow struct {
	InvoiceID     uint            `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	JobNumber     string          `json:"job_number"`
	ClientName    string          `json:"client_name"`
	Status        string          `json:"status"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	IssueDate     time.Time       `json:"issue_date"`
}

// RevenuePoint totals one day of the revenue report
type RevenuePoint struct {
	Date     string          `json:"date"`
	Invoiced decimal.Decimal `json:"invoiced"`
	Paid     decimal.Decimal `json:"paid"`
}

// RevenueReport lists invoices issued in a range with daily totals
type RevenueReport struct {
	Invoices      []RevenueRow    `json:"invoices"`
	Daily         []RevenuePoint  `json:"daily"`
	TotalInvoiced decimal.Decimal `json:"total_invoiced"`
	TotalPaid     decimal.Decimal `json:"total_paid"`
}

// RevenueData reports the invoices issued in r; cancelled invoices are left out
func (s *ReportService) RevenueData(actor Actor, r DateRange) (*RevenueReport, error) {
	from, to, err := r.normalize()
	if err != nil {
		return nil, err
	}
	key := reportcache.Key(actor.TenantID, "revenue", r.key())
	return reportcache.Load(s.cache, key, func() (*RevenueReport, error) {
		defer prometheus.TrackDBOperation("report_revenue")(time.Now())

		var invoices []model.Invoice
		if err := s.db.Preload("Job").Preload("Client").
			Where("tenant_id = ? AND issue_date >= ? AND issue_date < ? AND status <> ?",
				actor.TenantID, from, to, model.InvoiceStatusCancelled).
			Order("issue_date, id").Find(&invoices).Error; err != nil {
			return nil, fmt.Errorf("load invoices: %w", err)
		}
		return buildRevenueReport(invoices), nil
	})
}

func buildRevenueReport(invoices []model.Invoice) *RevenueReport {
	report := &RevenueReport{
		Invoices:      make([]RevenueRow, 0, len(invoices)),
		Daily:         []RevenuePoint{},
		TotalInvoiced: decimal.Zero,
		TotalPaid:     decimal.Zero,
	}
	byDay := map[string]*RevenuePoint{}

	for _, inv := range invoices {
		row := RevenueRow{
			InvoiceID:     inv.ID,
			InvoiceNumber: inv.InvoiceNumber,
			Status:        inv.Status,
			TotalAmount:   inv.TotalAmount,
			AmountPaid:    inv.AmountPaid,
			IssueDate:     inv.IssueDate,
		}
		if inv.Job != nil {
			row.JobNumber = inv.Job.JobNumber
		}
		if inv.Client != nil {
			row.ClientName = inv.Client.DisplayName()
		}
		report.Invoices = append(report.Invoices, row)

		day := inv.IssueDate.UTC().Format(dateLayout)
		point, ok := byDay[day]
		if !ok {
			point = &RevenuePoint{Date: day, Invoiced: decimal.Zero, Paid: decimal.Zero}
			byDay[day] = point
		}
		point.Invoiced = point.Invoiced.Add(inv.TotalAmount)
		point.Paid = point.Paid.Add(inv.AmountPaid)
		report.TotalInvoiced = report.TotalInvoiced.Add(inv.TotalAmount)
		report.TotalPaid = report.TotalPaid.Add(inv.AmountPaid)
	}

	for _, p := range byDay {
		report.Daily = append(report.Daily, *p)
	}
	sort.Slice(report.Daily, func(i, j int) bool { return report.Daily[i].Date < report.Daily[j].Date })
	return report
}

// JobMetricsReport summarises the jobs opened in a range
type JobMetricsReport struct {
	TotalJobs              int              `json:"total_jobs"`
	ByStatus               map[string]int   `json:"by_status"`
	ByPriority             map[string]int   `json:"by_priority"`
	CompletedJobs          int              `json:"completed_jobs"`
	CompletedOnTime        int              `json:"completed_on_time"`
	CompletedLate          int              `json:"completed_late"`
	AverageCompletionHours float64          `json:"average_completion_hours"`
	Jobs                   []JobMetricsItem `json:"jobs"`
}

// JobMetricsItem is one job in the metrics report
type JobMetricsItem struct {
	ID                  uint       `json:"id"`
	JobNumber           string     `json:"job_number"`
	Status              string     `json:"status"`
	TechnicianName      string     `json:"technician_name,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	CompletedAt         *time.Time `json:"completed_at,omitempty"`
	EstimatedCompletion *time.Time `json:"estimated_completion,omitempty"`
}

// JobMetrics reports the jobs created in r
func (s *ReportService) JobMetrics(actor Actor, r DateRange) (*JobMetricsReport, error) {
	from, to, err := r.normalize()
	if err != nil {
		return nil, err
	}
	key := reportcache.Key(actor.TenantID, "jobs", r.key())
	return reportcache.Load(s.cache, key, func() (*JobMetricsReport, error) {
		defer prometheus.TrackDBOperation("report_jobs")(time.Now())

		jobs, err := s.jobsCreatedIn(actor.TenantID, from, to, false)
		if err != nil {
			return nil, err
		}
		return buildJobMetrics(jobs), nil
	})
}

func (s *ReportService) jobsCreatedIn(tenantID uint, from, to time.Time, assignedOnly bool) ([]model.Job, error) {
	query := s.db.Preload("Status").Preload("Technician").
		Where("tenant_id = ? AND created_at >= ? AND created_at < ?", tenantID, from, to)
	if assignedOnly {
		query = query.Where("assigned_technician_id IS NOT NULL")
	}
	var jobs []model.Job
	if err := query.Order("created_at, id").Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("load jobs: %w", err)
	}
	return jobs, nil
}

func buildJobMetrics(jobs []model.Job) *JobMetricsReport {
	report := &JobMetricsReport{
		TotalJobs:  len(jobs),
		ByStatus:   map[string]int{},
		ByPriority: map[string]int{},
		Jobs:       make([]JobMetricsItem, 0, len(jobs)),
	}

	var completionHours float64
	for _, job := range jobs {
		status := ""
		if job.Status != nil {
			status = job.Status.Code
		}
		report.ByStatus[status]++
		report.ByPriority[job.Priority]++

		item := JobMetricsItem{
			ID:                  job.ID,
			JobNumber:           job.JobNumber,
			Status:              status,
			CreatedAt:           job.CreatedAt,
			CompletedAt:         job.CompletedAt,
			EstimatedCompletion: job.EstimatedCompletion,
		}
		if job.Technician != nil {
			item.TechnicianName = job.Technician.FullName()
		}
		report.Jobs = append(report.Jobs, item)

		if job.CompletedAt == nil {
			continue
		}
		report.CompletedJobs++
		completionHours += job.CompletedAt.Sub(job.CreatedAt).Hours()
		if job.EstimatedCompletion == nil || !job.CompletedAt.After(*job.EstimatedCompletion) {
			report.CompletedOnTime++
		} else {
			report.CompletedLate++
		}
	}

	if report.CompletedJobs > 0 {
		report.AverageCompletionHours = roundTo(completionHours/float64(report.CompletedJobs), 2)
	}
	return report
}

// TechnicianStats is one technician's share of the jobs in a range
type TechnicianStats struct {
	TechnicianID   uint    `json:"technician_id"`
	Name           string  `json:"name"`
	AssignedJobs   int     `json:"assigned_jobs"`
	CompletedJobs  int     `json:"completed_jobs"`
	CompletionRate float64 `json:"completion_rate"`
	ActualHours    float64 `json:"actual_hours"`
}

// TechnicianProductivity reports assigned and completed jobs per technician for jobs created in r
func (s *ReportService) TechnicianProductivity(actor Actor, r DateRange) ([]TechnicianStats, error) {
	from, to, err := r.normalize()
	if err != nil {
		return nil, err
	}
	key := reportcache.Key(actor.TenantID, "technicians", r.key())
	return reportcache.Load(s.cache, key, func() ([]TechnicianStats, error) {
		defer prometheus.TrackDBOperation("report_technicians")(time.Now())

		jobs, err := s.jobsCreatedIn(actor.TenantID, from, to, true)
		if err != nil {
			return nil, err
		}
		return buildTechnicianStats(jobs), nil
	})
}

func buildTechnicianStats(jobs []model.Job) []TechnicianStats {
	byTech := map[uint]*TechnicianStats{}
	for _, job := range jobs {
		if job.AssignedTechnicianID == nil {
			continue
		}
		id := *job.AssignedTechnicianID
		stats, ok := byTech[id]
		if !ok {
			stats = &TechnicianStats{TechnicianID: id}
			if job.Technician != nil {
				stats.Name = job.Technician.FullName()
			}
			byTech[id] = stats
		}
		stats.AssignedJobs++
		if job.CompletedAt != nil {
			stats.CompletedJobs++
		}
		if job.ActualHours != nil {
			stats.ActualHours += *job.ActualHours
		}
	}

	out := make([]TechnicianStats, 0, len(byTech))
	for _, stats := range byTech {
		stats.CompletionRate = roundTo(float64(stats.CompletedJobs)/float64(stats.AssignedJobs)*100, 2)
		stats.ActualHours = roundTo(stats.ActualHours, 2)
		out = append(out, *stats)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CompletedJobs != out[j].CompletedJobs {
			return out[i].CompletedJobs > out[j].CompletedJobs
		}
		return out[i].TechnicianID < out[j].TechnicianID
	})
	return out
}

func roundTo(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

// OverdueJob is a job past its estimated completion
type OverdueJob struct {
	ID                  uint       `json:"id"`
	JobNumber           string     `json:"job_number"`
	Status              string     `json:"status"`
	EstimatedCompletion *time.Time `json:"estimated_completion"`
	ClientName          string     `json:"client_name"`
	Vehicle             string     `json:"vehicle"`
}

// OverduePayment is an unpaid invoice past its due date
type OverduePayment struct {
	ID            uint            `json:"id"`
	InvoiceNumber string          `json:"invoice_number"`
	Status        string          `json:"status"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	AmountDue     decimal.Decimal `json:"amount_due"`
	DueDate       time.Time       `json:"due_date"`
	JobNumber     string          `json:"job_number"`
	ClientName    string          `json:"client_name"`
}

// OverdueReport lists everything running late
type OverdueReport struct {
	OverdueJobs     []OverdueJob     `json:"overdue_jobs"`
	OverduePayments []OverduePayment `json:"overdue_payments"`
}

// OverdueData lists late jobs and unpaid invoices past due
func (s *ReportService) OverdueData(actor Actor) (*OverdueReport, error) {
	at := now()
	key := reportcache.Key(actor.TenantID, "overdue", at.Format(dateLayout))
	return reportcache.Load(s.cache, key, func() (*OverdueReport, error) {
		defer prometheus.TrackDBOperation("report_overdue")(time.Now())

		report := &OverdueReport{OverdueJobs: []OverdueJob{}, OverduePayments: []OverduePayment{}}

		var jobs []model.Job
		if err := s.overdueJobs(actor.TenantID, at).
			Preload("Status").Preload("Client").Preload("Vehicle").
			Order("estimated_completion, id").Find(&jobs).Error; err != nil {
			return nil, fmt.Errorf("load overdue jobs: %w", err)
		}
		for _, job := range jobs {
			row := OverdueJob{ID: job.ID, JobNumber: job.JobNumber, EstimatedCompletion: job.EstimatedCompletion}
			if job.Status != nil {
				row.Status = job.Status.Code
			}
			if job.Client != nil {
				row.ClientName = job.Client.DisplayName()
			}
			if job.Vehicle != nil {
				row.Vehicle = fmt.Sprintf("%s %s (%s)", job.Vehicle.Make, job.Vehicle.Model, job.Vehicle.Registration)
			}
			report.OverdueJobs = append(report.OverdueJobs, row)
		}

		var invoices []model.Invoice
		if err := s.overduePayments(actor.TenantID, at).
			Preload("Job").Preload("Client").
			Order("due_date, id").Find(&invoices).Error; err != nil {
			return nil, fmt.Errorf("load overdue invoices: %w", err)
		}
		for _, inv := range invoices {
			row := OverduePayment{
				ID:            inv.ID,
				InvoiceNumber: inv.InvoiceNumber,
				Status:        inv.Status,
				TotalAmount:   inv.TotalAmount,
				AmountDue:     inv.AmountDue,
				DueDate:       inv.DueDate,
			}
			if inv.Job != nil {
				row.JobNumber = inv.Job.JobNumber
			}
			if inv.Client != nil {
				row.ClientName = inv.Client.DisplayName()
			}
			report.OverduePayments = append(report.OverduePayments, row)
		}
		return report, nil
	})
}
