package records

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LPredmore/lh-ehr/pkg/database"
	"github.com/LPredmore/lh-ehr/pkg/logger"
	"github.com/LPredmore/lh-ehr/pkg/types"
)

func newMockStore(t *testing.T) (Store, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	store := NewStore(&database.DB{DB: sqlDB}, logger.New("panic"))
	return store, mock
}

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "auth_ref", "role", "first_name", "last_name", "email", "phone",
		"specialty", "license_number", "is_active", "created_at", "updated_at",
	})
}

func TestFindUserByAuthRef(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT id, auth_ref, role`).
		WithArgs("auth-dr1").
		WillReturnRows(userRows().AddRow(
			"dr-1", "auth-dr1", "provider", "Dana", "Reyes",
			"dreyes@clinic.test", "", "Psychiatry", "LIC-100", true, now, now))

	user, err := store.FindUserByAuthRef(ctx, "auth-dr1")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "dr-1", user.ID)
	assert.Equal(t, types.RoleProvider, user.Role)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindUserByAuthRefAbsent(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT id, auth_ref, role`).
		WithArgs("auth-nobody").
		WillReturnError(sql.ErrNoRows)

	user, err := store.FindUserByAuthRef(ctx, "auth-nobody")
	require.NoError(t, err)
	assert.Nil(t, user)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPatientAbsentReturnsNil(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, mrn, auth_ref`).
		WithArgs("no-such-id").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectCommit()

	err := store.Transact(ctx, func(tx Tx) error {
		patient, err := tx.GetPatient(ctx, "no-such-id")
		require.NoError(t, err)
		assert.Nil(t, patient)
		return nil
	})
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHasSharedCare(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("dr-2", "pat-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectCommit()

	err := store.Transact(ctx, func(tx Tx) error {
		shared, err := tx.HasSharedCare(ctx, "dr-2", "pat-1")
		require.NoError(t, err)
		assert.True(t, shared)
		return nil
	})
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateUserMissingRowIsNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE users`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := store.Transact(ctx, func(tx Tx) error {
		return tx.UpdateUser(ctx, &types.User{ID: "ghost"})
	})
	require.Error(t, err)
	assert.Equal(t, types.ErrorKindNotFound, types.KindOf(err))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactRollsBackOnError(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := store.Transact(ctx, func(tx Tx) error { return boom })
	assert.ErrorIs(t, err, boom)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockOverdueNotes(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()
	cutoff := time.Now().Add(-7 * 24 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE clinical_notes`).
		WithArgs(sqlmock.AnyArg(), cutoff).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).
			AddRow("note-1").
			AddRow("note-2"))
	// One system-attributed audit record per locked note.
	mock.ExpectExec(`INSERT INTO audit_records`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO audit_records`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	count, err := store.LockOverdueNotes(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockOverdueNotesNothingDue(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()
	cutoff := time.Now().Add(-7 * 24 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE clinical_notes`).
		WithArgs(sqlmock.AnyArg(), cutoff).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectCommit()

	count, err := store.LockOverdueNotes(ctx, cutoff)
	require.NoError(t, err)
	assert.Zero(t, count)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertAuditRecordSerializesFields(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO audit_records`).
		WithArgs(sqlmock.AnyArg(), "patients", "pat-1", types.AuditUpdate,
			[]byte(`{"phone":"555-0100"}`), []byte(`{"phone":""}`),
			nullString("admin-1"), "10.0.0.1", "go-test", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.Transact(ctx, func(tx Tx) error {
		return tx.InsertAuditRecord(ctx, &types.AuditRecord{
			TableName:      "patients",
			RecordID:       "pat-1",
			Action:         types.AuditUpdate,
			ChangedFields:  map[string]interface{}{"phone": "555-0100"},
			PreviousFields: map[string]interface{}{"phone": ""},
			ActorID:        "admin-1",
			IPAddress:      "10.0.0.1",
			UserAgent:      "go-test",
		})
	})
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListAppointmentsAppliesFilters(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	cols := []string{"id", "patient_id", "provider_id", "start_time", "end_time",
		"type", "status", "is_telehealth", "billing_status", "location", "notes",
		"created_at", "updated_at"}
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, patient_id, provider_id`).
		WithArgs("dr-1", types.StatusScheduled).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			"appt-1", "pat-1", "dr-1", now, now.Add(time.Hour), "therapy",
			"scheduled", false, "", "Room 2", "", now, now))
	mock.ExpectCommit()

	err := store.Transact(ctx, func(tx Tx) error {
		appts, err := tx.ListAppointments(ctx, &types.AppointmentFilters{
			ProviderID: "dr-1",
			Status:     types.StatusScheduled,
		})
		require.NoError(t, err)
		require.Len(t, appts, 1)
		assert.Equal(t, "appt-1", appts[0].ID)
		return nil
	})
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}
