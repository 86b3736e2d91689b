package service

import (
	"testing"
	"time"

	"fleetshop/internal/apperr"
	"fleetshop/internal/model"
	"fleetshop/internal/permission"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateRangeNormalize(t *testing.T) {
	day := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

	from, to, err := DateRange{Start: day, End: day}.normalize()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), to)

	_, _, err = DateRange{Start: day}.normalize()
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, _, err = DateRange{Start: day, End: day.AddDate(0, 0, -1)}.normalize()
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestBuildJobMetrics(t *testing.T) {
	created := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	onTime := created.Add(10 * time.Hour)
	late := created.Add(30 * time.Hour)
	estimate := created.Add(24 * time.Hour)
	done := &model.JobStatus{Code: model.StatusCompleted}
	open := &model.JobStatus{Code: model.StatusInProgress}

	report := buildJobMetrics([]model.Job{
		{Priority: model.PriorityHigh, Status: done, CreatedAt: created, CompletedAt: &onTime, EstimatedCompletion: &estimate},
		{Priority: model.PriorityHigh, Status: done, CreatedAt: created, CompletedAt: &late, EstimatedCompletion: &estimate},
		{Priority: model.PriorityLow, Status: open, CreatedAt: created},
	})

	assert.Equal(t, 3, report.TotalJobs)
	assert.Equal(t, map[string]int{model.StatusCompleted: 2, model.StatusInProgress: 1}, report.ByStatus)
	assert.Equal(t, map[string]int{model.PriorityHigh: 2, model.PriorityLow: 1}, report.ByPriority)
	assert.Equal(t, 2, report.CompletedJobs)
	assert.Equal(t, 1, report.CompletedOnTime)
	assert.Equal(t, 1, report.CompletedLate)
	assert.Equal(t, 20.0, report.AverageCompletionHours)
	assert.Len(t, report.Jobs, 3)

	empty := buildJobMetrics(nil)
	assert.Zero(t, empty.AverageCompletionHours)
	assert.NotNil(t, empty.Jobs)
}

func TestBuildTechnicianStats(t *testing.T) {
	completed := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	ann := &model.User{ID: 1, FirstName: "Ann", LastName: "Tech"}
	bob := &model.User{ID: 2, FirstName: "Bob", LastName: "Tech"}
	h1, h2 := 2.25, 1.5

	stats := buildTechnicianStats([]model.Job{
		{AssignedTechnicianID: uintPtr(1), Technician: ann},
		{AssignedTechnicianID: uintPtr(1), Technician: ann, CompletedAt: &completed, ActualHours: &h1},
		{AssignedTechnicianID: uintPtr(1), Technician: ann},
		{AssignedTechnicianID: uintPtr(2), Technician: bob, CompletedAt: &completed, ActualHours: &h2},
		{AssignedTechnicianID: uintPtr(2), Technician: bob, CompletedAt: &completed},
		{},
	})

	require.Len(t, stats, 2)
	assert.Equal(t, TechnicianStats{TechnicianID: 2, Name: "Bob Tech", AssignedJobs: 2, CompletedJobs: 2, CompletionRate: 100, ActualHours: 1.5}, stats[0])
	assert.Equal(t, TechnicianStats{TechnicianID: 1, Name: "Ann Tech", AssignedJobs: 3, CompletedJobs: 1, CompletionRate: 33.33, ActualHours: 2.25}, stats[1])
}

func TestDashboardMetrics(t *testing.T) {
	f := newFixture(t)
	freezeClock(t, time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC))
	admin := f.tenant(t, "Fleet Works")

	active := f.job(t, admin)
	_, err := f.jobs.UpdateJobStatus(admin, active.ID, statusByCode(t, f, admin, model.StatusInProgress).ID)
	require.NoError(t, err)

	finished := f.job(t, admin)
	_, err = f.jobs.UpdateJobStatus(admin, finished.ID, statusByCode(t, f, admin, model.StatusCompleted).ID)
	require.NoError(t, err)

	client, vehicle := f.clientWithVehicle(t, admin)
	estimate := time.Date(2026, 3, 19, 17, 0, 0, 0, time.UTC)
	_, err = f.jobs.CreateJob(admin, CreateJobInput{ClientID: client.ID, VehicleID: vehicle.ID, Title: "Late service", Description: "Brakes", EstimatedCompletion: &estimate})
	require.NoError(t, err)

	paid, err := f.invoices.CreateInvoiceFromQuote(admin, approvedQuote(t, f, admin).ID)
	require.NoError(t, err)
	_, err = f.invoices.RecordPayment(admin, paid.ID, PaymentInput{Amount: dec("1312.15")})
	require.NoError(t, err)

	unpaid, err := f.invoices.CreateInvoiceFromQuote(admin, approvedQuote(t, f, admin).ID)
	require.NoError(t, err)
	require.NoError(t, f.db.Model(&model.Invoice{}).Where("id = ?", unpaid.ID).
		Update("due_date", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)).Error)

	metrics, err := f.reports.DashboardMetrics(admin)
	require.NoError(t, err)
	assert.Equal(t, "1312.15", metrics.CurrentMonthRevenue.StringFixed(2))
	assert.Equal(t, int64(1), metrics.ActiveJobsCount)
	assert.Equal(t, int64(1), metrics.CompletedJobsCount)
	assert.Equal(t, int64(1), metrics.OverdueJobsCount)
	assert.Equal(t, int64(1), metrics.OverduePaymentsCount)

	other := f.tenant(t, "Other Shop")
	empty, err := f.reports.DashboardMetrics(other)
	require.NoError(t, err)
	assert.True(t, empty.CurrentMonthRevenue.IsZero())
	assert.Zero(t, empty.ActiveJobsCount)
}

func TestReportsAreCachedUntilTenantChanges(t *testing.T) {
	f := newFixture(t)
	freezeClock(t, time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC))
	admin := f.tenant(t, "Fleet Works")
	job := f.job(t, admin)
	inProgress := statusByCode(t, f, admin, model.StatusInProgress)

	first, err := f.reports.DashboardMetrics(admin)
	require.NoError(t, err)
	assert.Zero(t, first.ActiveJobsCount)

	// a write that bypasses the services publishes nothing
	require.NoError(t, f.db.Model(&model.Job{}).Where("id = ?", job.ID).Update("status_id", inProgress.ID).Error)
	cached, err := f.reports.DashboardMetrics(admin)
	require.NoError(t, err)
	assert.Zero(t, cached.ActiveJobsCount)

	_, err = f.jobs.UpdateJobStatus(admin, job.ID, inProgress.ID)
	require.NoError(t, err)
	fresh, err := f.reports.DashboardMetrics(admin)
	require.NoError(t, err)
	assert.Equal(t, int64(1), fresh.ActiveJobsCount)
}

func TestRevenueData(t *testing.T) {
	f := newFixture(t)
	freezeClock(t, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	admin := f.tenant(t, "Fleet Works")

	paid, err := f.invoices.CreateInvoiceFromQuote(admin, approvedQuote(t, f, admin).ID)
	require.NoError(t, err)
	_, err = f.invoices.RecordPayment(admin, paid.ID, PaymentInput{Amount: dec("1312.15")})
	require.NoError(t, err)

	_, err = f.invoices.CreateInvoiceFromQuote(admin, approvedQuote(t, f, admin).ID)
	require.NoError(t, err)

	cancelled, err := f.invoices.CreateInvoiceFromQuote(admin, approvedQuote(t, f, admin).ID)
	require.NoError(t, err)
	_, err = f.invoices.CancelInvoice(admin, cancelled.ID)
	require.NoError(t, err)

	march := DateRange{Start: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)}
	report, err := f.reports.RevenueData(admin, march)
	require.NoError(t, err)
	require.Len(t, report.Invoices, 2)
	assert.Equal(t, "2624.30", report.TotalInvoiced.StringFixed(2))
	assert.Equal(t, "1312.15", report.TotalPaid.StringFixed(2))
	require.Len(t, report.Daily, 1)
	assert.Equal(t, "2026-03-10", report.Daily[0].Date)
	assert.Equal(t, "Carla Client", report.Invoices[0].ClientName)
	assert.Regexp(t, `^JOB-\d+$`, report.Invoices[0].JobNumber)

	april := DateRange{Start: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC)}
	empty, err := f.reports.RevenueData(admin, april)
	require.NoError(t, err)
	assert.Empty(t, empty.Invoices)
	assert.True(t, empty.TotalInvoiced.IsZero())

	_, err = f.reports.RevenueData(admin, DateRange{})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestJobMetricsAndTechnicianProductivity(t *testing.T) {
	f := newFixture(t)
	admin := f.tenant(t, "Fleet Works")
	tech := f.staff(t, admin, permission.RoleTechnician)

	assigned := f.job(t, admin)
	_, err := f.jobs.AssignTechnician(admin, assigned.ID, tech.UserID)
	require.NoError(t, err)
	_, err = f.jobs.UpdateJobStatus(admin, assigned.ID, statusByCode(t, f, admin, model.StatusCompleted).ID)
	require.NoError(t, err)
	f.job(t, admin)

	around := DateRange{Start: time.Now().AddDate(0, 0, -1), End: time.Now().AddDate(0, 0, 1)}
	metrics, err := f.reports.JobMetrics(admin, around)
	require.NoError(t, err)
	assert.Equal(t, 2, metrics.TotalJobs)
	assert.Equal(t, 1, metrics.ByStatus[model.StatusCompleted])
	assert.Equal(t, 1, metrics.ByStatus[model.StatusRequestReceived])
	assert.Equal(t, 1, metrics.CompletedJobs)

	stats, err := f.reports.TechnicianProductivity(admin, around)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, tech.UserID, stats[0].TechnicianID)
	assert.Equal(t, 1, stats[0].AssignedJobs)
	assert.Equal(t, 1, stats[0].CompletedJobs)
	assert.Equal(t, 100.0, stats[0].CompletionRate)
}

func TestOverdueData(t *testing.T) {
	f := newFixture(t)
	freezeClock(t, time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC))
	admin := f.tenant(t, "Fleet Works")

	client, vehicle := f.clientWithVehicle(t, admin)
	past := time.Date(2026, 3, 18, 17, 0, 0, 0, time.UTC)
	future := time.Date(2026, 3, 25, 17, 0, 0, 0, time.UTC)
	late, err := f.jobs.CreateJob(admin, CreateJobInput{ClientID: client.ID, VehicleID: vehicle.ID, Title: "Late", Description: "Brakes", EstimatedCompletion: &past})
	require.NoError(t, err)
	_, err = f.jobs.CreateJob(admin, CreateJobInput{ClientID: client.ID, VehicleID: vehicle.ID, Title: "On track", Description: "Service", EstimatedCompletion: &future})
	require.NoError(t, err)
	done, err := f.jobs.CreateJob(admin, CreateJobInput{ClientID: client.ID, VehicleID: vehicle.ID, Title: "Done", Description: "Tyres", EstimatedCompletion: &past})
	require.NoError(t, err)
	_, err = f.jobs.UpdateJobStatus(admin, done.ID, statusByCode(t, f, admin, model.StatusCollected).ID)
	require.NoError(t, err)

	invoice, err := f.invoices.CreateInvoiceFromQuote(admin, approvedQuote(t, f, admin).ID)
	require.NoError(t, err)
	_, err = f.invoices.SendInvoice(admin, invoice.ID)
	require.NoError(t, err)
	require.NoError(t, f.db.Model(&model.Invoice{}).Where("id = ?", invoice.ID).
		Update("due_date", time.Date(2026, 3, 19, 0, 0, 0, 0, time.UTC)).Error)

	report, err := f.reports.OverdueData(admin)
	require.NoError(t, err)
	require.Len(t, report.OverdueJobs, 1)
	assert.Equal(t, late.ID, report.OverdueJobs[0].ID)
	assert.Equal(t, "Toyota Hilux (CA 123-456)", report.OverdueJobs[0].Vehicle)
	assert.Equal(t, "Carla Client", report.OverdueJobs[0].ClientName)
	require.Len(t, report.OverduePayments, 1)
	assert.Equal(t, invoice.ID, report.OverduePayments[0].ID)
	assert.Equal(t, "1312.15", report.OverduePayments[0].AmountDue.StringFixed(2))
}
