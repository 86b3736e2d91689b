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

func at(hour int) time.Time {
	return time.Date(2026, 3, 12, hour, 0, 0, 0, time.UTC)
}

func TestCreateEventValidation(t *testing.T) {
	f := newFixture(t)
	admin := f.tenant(t, "Fleet Works")

	tests := []struct {
		name string
		in   EventInput
	}{
		{"missing title", EventInput{StartTime: at(9), EndTime: at(10)}},
		{"missing start", EventInput{Title: "Inspection", EndTime: at(10)}},
		{"end before start", EventInput{Title: "Inspection", StartTime: at(10), EndTime: at(9)}},
		{"unknown type", EventInput{Title: "Inspection", StartTime: at(9), EndTime: at(10), EventType: "party"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.calendar.CreateEvent(admin, tt.in)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestCreateEvent(t *testing.T) {
	f := newFixture(t)
	admin := f.tenant(t, "Fleet Works")
	tech := f.staff(t, admin, permission.RoleTechnician)

	event, err := f.calendar.CreateEvent(admin, EventInput{
		Title:          " Drop-off ",
		StartTime:      at(9),
		EndTime:        at(9),
		AssignedUserID: uintPtr(tech.UserID),
	})
	require.NoError(t, err)
	assert.Equal(t, "Drop-off", event.Title)
	assert.Equal(t, model.EventTypeAppointment, event.EventType)
	assert.Equal(t, EventStatusScheduled, event.Status)

	other := f.tenant(t, "Other Shop")
	_, err = f.calendar.CreateEvent(other, EventInput{Title: "Steal", StartTime: at(9), EndTime: at(10), AssignedUserID: uintPtr(tech.UserID)})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestJobEventSchedulesJob(t *testing.T) {
	f := newFixture(t)
	admin := f.tenant(t, "Fleet Works")
	job := f.job(t, admin)

	_, err := f.calendar.CreateEvent(admin, EventInput{Title: "Brakes", StartTime: at(8), EndTime: at(12), EventType: model.EventTypeJob, JobID: uintPtr(job.ID)})
	require.NoError(t, err)

	var scheduled model.Job
	require.NoError(t, f.db.First(&scheduled, job.ID).Error)
	require.NotNil(t, scheduled.ScheduledStartDate)
	require.NotNil(t, scheduled.ScheduledEndDate)
	assert.True(t, scheduled.ScheduledStartDate.Equal(at(8)))
	assert.True(t, scheduled.ScheduledEndDate.Equal(at(12)))

	_, err = f.calendar.CreateEvent(admin, EventInput{Title: "Call back", StartTime: at(14), EndTime: at(15), EventType: model.EventTypeReminder, JobID: uintPtr(job.ID)})
	require.NoError(t, err)
	require.NoError(t, f.db.First(&scheduled, job.ID).Error)
	assert.True(t, scheduled.ScheduledStartDate.Equal(at(8)), "only job events move the schedule")
}

func TestUpdateAndDeleteEvent(t *testing.T) {
	f := newFixture(t)
	admin := f.tenant(t, "Fleet Works")
	event, err := f.calendar.CreateEvent(admin, EventInput{Title: "Drop-off", StartTime: at(9), EndTime: at(10)})
	require.NoError(t, err)

	_, err = f.calendar.UpdateEvent(admin, event.ID, EventUpdate{Title: "Drop-off", StartTime: at(9), EndTime: at(10), Status: "lost"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	updated, err := f.calendar.UpdateEvent(admin, event.ID, EventUpdate{Title: "Late drop-off", StartTime: at(11), EndTime: at(12), Status: EventStatusCompleted})
	require.NoError(t, err)
	assert.Equal(t, "Late drop-off", updated.Title)
	assert.Equal(t, EventStatusCompleted, updated.Status)
	assert.True(t, updated.StartTime.Equal(at(11)))

	kept, err := f.calendar.UpdateEvent(admin, event.ID, EventUpdate{Title: "Late drop-off", StartTime: at(11), EndTime: at(12)})
	require.NoError(t, err)
	assert.Equal(t, EventStatusCompleted, kept.Status)

	other := f.tenant(t, "Other Shop")
	assert.ErrorIs(t, f.calendar.DeleteEvent(other, event.ID), apperr.ErrNotFound)
	require.NoError(t, f.calendar.DeleteEvent(admin, event.ID))
	assert.ErrorIs(t, f.calendar.DeleteEvent(admin, event.ID), apperr.ErrNotFound)
}

func TestListEvents(t *testing.T) {
	f := newFixture(t)
	admin := f.tenant(t, "Fleet Works")
	tech := f.staff(t, admin, permission.RoleTechnician)

	for _, in := range []EventInput{
		{Title: "Early", StartTime: at(7), EndTime: at(8)},
		{Title: "Morning", StartTime: at(9), EndTime: at(11), AssignedUserID: uintPtr(tech.UserID)},
		{Title: "Afternoon", StartTime: at(13), EndTime: at(15)},
	} {
		_, err := f.calendar.CreateEvent(admin, in)
		require.NoError(t, err)
	}
	other := f.tenant(t, "Other Shop")
	_, err := f.calendar.CreateEvent(other, EventInput{Title: "Elsewhere", StartTime: at(10), EndTime: at(11)})
	require.NoError(t, err)

	events, err := f.calendar.ListEvents(admin, EventRange{From: at(10), To: at(14)})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Morning", events[0].Title)
	assert.Equal(t, "Afternoon", events[1].Title)

	mine, err := f.calendar.ListEvents(admin, EventRange{AssignedUserID: uintPtr(tech.UserID)})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Morning", mine[0].Title)

	all, err := f.calendar.ListEvents(admin, EventRange{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = f.calendar.ListEvents(admin, EventRange{From: at(14), To: at(10)})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
