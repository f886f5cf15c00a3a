package reactions

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LPredmore/lh-ehr/pkg/config"
	"github.com/LPredmore/lh-ehr/pkg/logger"
	"github.com/LPredmore/lh-ehr/pkg/types"
)

func TestCompletionCreatesNoteStub(t *testing.T) {
	tests := []struct {
		name string
		prev types.AppointmentStatus
		next types.AppointmentStatus
		want bool
	}{
		{"scheduled to completed", types.StatusScheduled, types.StatusCompleted, true},
		{"confirmed to completed", types.StatusConfirmed, types.StatusCompleted, true},
		{"completed resaved", types.StatusCompleted, types.StatusCompleted, false},
		{"scheduled to cancelled", types.StatusScheduled, types.StatusCancelled, false},
		{"completed to cancelled", types.StatusCompleted, types.StatusCancelled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CompletionCreatesNoteStub(tt.prev, tt.next))
		})
	}
}

func TestNoteStubForAppointment(t *testing.T) {
	appt := &types.Appointment{
		ID:         "appt-1",
		PatientID:  "pat-1",
		ProviderID: "u-prov",
		Status:     types.StatusCompleted,
	}

	stub := NoteStubForAppointment(appt)
	assert.Equal(t, "pat-1", stub.PatientID)
	assert.Equal(t, "appt-1", stub.AppointmentID)
	assert.Equal(t, "u-prov", stub.ProviderID)
	assert.Equal(t, types.NoteTypeProgress, stub.NoteType)
	assert.False(t, stub.IsSigned)
	assert.False(t, stub.IsLocked)
	assert.Empty(t, stub.Subjective)
}

func TestFollowUpAppointment(t *testing.T) {
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	src := &types.Appointment{
		ID:           "appt-1",
		PatientID:    "pat-1",
		ProviderID:   "u-prov",
		StartTime:    start,
		EndTime:      start.Add(50 * time.Minute),
		Type:         types.AppointmentTherapy,
		Status:       types.StatusCompleted,
		IsTelehealth: true,
		Location:     "Suite 4",
	}

	followUp := FollowUpAppointment(src, 14)
	assert.Equal(t, start.AddDate(0, 0, 14), followUp.StartTime)
	assert.Equal(t, 50*time.Minute, followUp.EndTime.Sub(followUp.StartTime))
	assert.Equal(t, types.AppointmentFollowUp, followUp.Type)
	assert.Equal(t, types.StatusScheduled, followUp.Status)
	assert.True(t, followUp.IsTelehealth)
	assert.Equal(t, "Suite 4", followUp.Location)
	assert.Empty(t, followUp.ID)
}

func TestFollowUpAppointmentDefaultOffset(t *testing.T) {
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	src := &types.Appointment{StartTime: start, EndTime: start.Add(time.Hour)}

	followUp := FollowUpAppointment(src, 0)
	assert.Equal(t, start.AddDate(0, 0, types.DefaultFollowUpDays), followUp.StartTime)
}

func TestIsHighRisk(t *testing.T) {
	tests := []struct {
		name           string
		assessmentType string
		score          int
		want           bool
	}{
		{"PHQ-9 at threshold", types.AssessmentPHQ9, 15, true},
		{"PHQ-9 above threshold", types.AssessmentPHQ9, 22, true},
		{"PHQ-9 below threshold", types.AssessmentPHQ9, 14, false},
		{"GAD-7 at threshold", types.AssessmentGAD7, 15, true},
		{"GAD-7 below threshold", types.AssessmentGAD7, 10, false},
		{"other instrument high score", "AUDIT-C", 20, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &types.Assessment{AssessmentType: tt.assessmentType, Score: tt.score}
			assert.Equal(t, tt.want, IsHighRisk(a))
		})
	}
}

type capturePublisher struct {
	mu       sync.Mutex
	topics   []string
	payloads []interface{}
}

func (c *capturePublisher) Publish(ctx context.Context, topic string, payload interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.topics = append(c.topics, topic)
	c.payloads = append(c.payloads, payload)
	return nil
}

func TestEmitHighRiskPublishesAlert(t *testing.T) {
	pub := &capturePublisher{}
	n := NewNotifier(pub, "clinical.high-risk-assessment", logger.New("error"))

	n.EmitHighRisk(&types.Assessment{
		PatientID:      "pat-1",
		AssessmentType: types.AssessmentPHQ9,
		Score:          16,
	}, "dr.smith@example.com")
	n.Wait()

	require.Len(t, pub.payloads, 1)
	assert.Equal(t, "clinical.high-risk-assessment", pub.topics[0])
	alert := pub.payloads[0].(HighRiskAlert)
	assert.Equal(t, "pat-1", alert.PatientID)
	assert.Equal(t, types.AssessmentPHQ9, alert.AssessmentType)
	assert.Equal(t, 16, alert.Score)
	assert.Equal(t, "dr.smith@example.com", alert.ProviderContact)
}

type fakeLocker struct {
	locked int
	cutoff time.Time
}

func (f *fakeLocker) LockOverdueNotes(ctx context.Context, signedBefore time.Time) (int, error) {
	f.cutoff = signedBefore
	return f.locked, nil
}

func TestLockSweepRunOnce(t *testing.T) {
	locker := &fakeLocker{locked: 3}
	sweeper := NewLockSweeper(&config.LockSweepConfig{
		Schedule:      "0 * * * *",
		LockAfterDays: 7,
	}, locker, logger.New("error"))

	locked, err := sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, locked)

	// Cutoff sits seven days in the past.
	expected := time.Now().AddDate(0, 0, -7)
	assert.WithinDuration(t, expected, locker.cutoff, time.Minute)
}
