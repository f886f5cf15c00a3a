package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/LPredmore/lh-ehr/pkg/types"
)

var volatileFields = []string{"created_at", "updated_at"}

func TestForUpdateCapturesOnlyChangedFields(t *testing.T) {
	r := NewRecorder(volatileFields)

	prev := map[string]interface{}{
		"phone":      "555-0100",
		"email":      "old@example.com",
		"city":       "Springfield",
		"updated_at": time.Now().Add(-time.Hour),
	}
	next := map[string]interface{}{
		"phone":      "555-0199",
		"email":      "old@example.com",
		"city":       "Springfield",
		"updated_at": time.Now(),
	}

	rec := r.ForUpdate("patients", "pat-1", prev, next, Actor{ID: "u-staff"})
	require.NotNil(t, rec)
	assert.Equal(t, types.AuditUpdate, rec.Action)
	assert.Equal(t, map[string]interface{}{"phone": "555-0199"}, rec.ChangedFields)
	assert.Equal(t, map[string]interface{}{"phone": "555-0100"}, rec.PreviousFields)
	assert.Equal(t, "u-staff", rec.ActorID)
}

func TestForUpdateNoChangeProducesNoRecord(t *testing.T) {
	r := NewRecorder(volatileFields)

	fields := map[string]interface{}{
		"phone": "555-0100",
		"email": "same@example.com",
	}
	assert.Nil(t, r.ForUpdate("patients", "pat-1", fields, fields, Actor{ID: "u-staff"}))
}

func TestForUpdateVolatileOnlyChangeProducesNoRecord(t *testing.T) {
	r := NewRecorder(volatileFields)

	prev := map[string]interface{}{
		"phone":      "555-0100",
		"updated_at": time.Now().Add(-time.Hour),
	}
	next := map[string]interface{}{
		"phone":      "555-0100",
		"updated_at": time.Now(),
	}
	assert.Nil(t, r.ForUpdate("patients", "pat-1", prev, next, Actor{ID: "u-staff"}))
}

func TestForUpdateTimeComparisonIgnoresMonotonicClock(t *testing.T) {
	r := NewRecorder(volatileFields)

	signed := time.Now()
	prev := map[string]interface{}{"signed_at": signed}
	next := map[string]interface{}{"signed_at": signed.Round(0)}

	assert.Nil(t, r.ForUpdate("clinical_notes", "note-1", prev, next, Actor{}))
}

func TestForInsertMarksAllFieldsChanged(t *testing.T) {
	r := NewRecorder(volatileFields)

	rec := r.ForInsert("medications", "med-1", map[string]interface{}{
		"name":       "Sertraline",
		"dosage":     "50mg",
		"created_at": time.Now(),
	}, Actor{ID: "u-prov", IPAddress: "10.0.0.1", UserAgent: "curl/8"})

	require.NotNil(t, rec)
	assert.Equal(t, types.AuditInsert, rec.Action)
	assert.Nil(t, rec.PreviousFields)
	assert.Equal(t, map[string]interface{}{"name": "Sertraline", "dosage": "50mg"}, rec.ChangedFields)
	assert.Equal(t, "10.0.0.1", rec.IPAddress)
	assert.Equal(t, "curl/8", rec.UserAgent)
}

func TestForDeletePreservesFullState(t *testing.T) {
	r := NewRecorder(volatileFields)

	rec := r.ForDelete("appointments", "appt-1", map[string]interface{}{
		"patient_id": "pat-1",
		"status":     "cancelled",
		"updated_at": time.Now(),
	}, Actor{ID: "u-admin"})

	require.NotNil(t, rec)
	assert.Equal(t, types.AuditDelete, rec.Action)
	assert.Nil(t, rec.ChangedFields)
	assert.Equal(t, map[string]interface{}{"patient_id": "pat-1", "status": "cancelled"}, rec.PreviousFields)
}

func TestSystemActorLeavesAttributionEmpty(t *testing.T) {
	r := NewRecorder(volatileFields)

	rec := r.ForUpdate("clinical_notes", "note-1",
		map[string]interface{}{"is_locked": false},
		map[string]interface{}{"is_locked": true},
		Actor{})

	require.NotNil(t, rec)
	assert.Empty(t, rec.ActorID)
	assert.Empty(t, rec.IPAddress)
	assert.Empty(t, rec.UserAgent)
}

type mockSink struct {
	mock.Mock
}

func (m *mockSink) InsertAuditRecord(ctx context.Context, rec *types.AuditRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func TestRecordWritesThroughSink(t *testing.T) {
	r := NewRecorder(volatileFields)
	sink := new(mockSink)

	rec := r.ForInsert("users", "u-1", map[string]interface{}{"email": "a@b.c"}, Actor{ID: "u-admin"})
	sink.On("InsertAuditRecord", mock.Anything, rec).Return(nil)

	require.NoError(t, r.Record(context.Background(), sink, rec))
	sink.AssertExpectations(t)
}

func TestRecordSkipsNilRecord(t *testing.T) {
	r := NewRecorder(volatileFields)
	sink := new(mockSink)

	require.NoError(t, r.Record(context.Background(), sink, nil))
	sink.AssertNotCalled(t, "InsertAuditRecord", mock.Anything, mock.Anything)
}
