package audit

import (
	"context"
	"reflect"
	"time"

	"github.com/LPredmore/lh-ehr/pkg/monitoring"
	"github.com/LPredmore/lh-ehr/pkg/types"
)

// Sink persists audit records. The records store's transaction implements it,
// which keeps every audit write inside the same transaction as the mutation
// it describes.
type Sink interface {
	InsertAuditRecord(ctx context.Context, rec *types.AuditRecord) error
}

// Actor is the attribution stamped onto each record. A zero Actor marks a
// system-initiated change.
type Actor struct {
	ID        string
	IPAddress string
	UserAgent string
}

// Recorder builds audit records from row state. It never writes on its own;
// callers pass the built record to a Sink inside their transaction.
type Recorder struct {
	excluded map[string]bool
}

// NewRecorder creates a recorder. excludedFields are volatile bookkeeping
// columns whose changes never count toward a diff.
func NewRecorder(excludedFields []string) *Recorder {
	excluded := make(map[string]bool, len(excludedFields))
	for _, f := range excludedFields {
		excluded[f] = true
	}
	return &Recorder{excluded: excluded}
}

// ForInsert builds the record for a row creation: every non-volatile field
// counts as changed and there is no previous state.
func (r *Recorder) ForInsert(table, recordID string, fields map[string]interface{}, actor Actor) *types.AuditRecord {
	changed := make(map[string]interface{}, len(fields))
	for name, value := range fields {
		if r.excluded[name] {
			continue
		}
		changed[name] = value
	}
	return r.build(table, recordID, types.AuditInsert, changed, nil, actor)
}

// ForUpdate builds the record for a row update. Only fields whose values
// actually differ are captured, with their prior values alongside. Returns nil
// when nothing non-volatile changed; a no-op update produces no audit record.
func (r *Recorder) ForUpdate(table, recordID string, prev, next map[string]interface{}, actor Actor) *types.AuditRecord {
	changed := make(map[string]interface{})
	previous := make(map[string]interface{})

	for name, nextValue := range next {
		if r.excluded[name] {
			continue
		}
		prevValue, existed := prev[name]
		if existed && fieldsEqual(prevValue, nextValue) {
			continue
		}
		changed[name] = nextValue
		if existed {
			previous[name] = prevValue
		}
	}

	if len(changed) == 0 {
		return nil
	}
	return r.build(table, recordID, types.AuditUpdate, changed, previous, actor)
}

// ForDelete builds the record for a row deletion, preserving the full previous
// state so the row remains reconstructible from the trail.
func (r *Recorder) ForDelete(table, recordID string, fields map[string]interface{}, actor Actor) *types.AuditRecord {
	previous := make(map[string]interface{}, len(fields))
	for name, value := range fields {
		if r.excluded[name] {
			continue
		}
		previous[name] = value
	}
	return r.build(table, recordID, types.AuditDelete, nil, previous, actor)
}

func (r *Recorder) build(table, recordID string, action types.AuditAction, changed, previous map[string]interface{}, actor Actor) *types.AuditRecord {
	return &types.AuditRecord{
		TableName:      table,
		RecordID:       recordID,
		Action:         action,
		ChangedFields:  changed,
		PreviousFields: previous,
		ActorID:        actor.ID,
		IPAddress:      actor.IPAddress,
		UserAgent:      actor.UserAgent,
		CreatedAt:      time.Now().UTC(),
	}
}

// Record writes a built record through the sink. A nil record is a no-op so
// callers can pass ForUpdate's result straight through.
func (r *Recorder) Record(ctx context.Context, sink Sink, rec *types.AuditRecord) error {
	if rec == nil {
		return nil
	}
	if err := sink.InsertAuditRecord(ctx, rec); err != nil {
		return err
	}
	monitoring.RecordAuditWrite(rec.TableName, string(rec.Action))
	return nil
}

// fieldsEqual compares field values. time.Time needs Equal to ignore the
// monotonic clock reading; everything else goes through DeepEqual.
func fieldsEqual(a, b interface{}) bool {
	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			return at.Equal(bt)
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}
