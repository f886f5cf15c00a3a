package types

import "time"

// AuditAction represents the kind of mutation an audit record captures
type AuditAction string

const (
	AuditInsert AuditAction = "INSERT"
	AuditUpdate AuditAction = "UPDATE"
	AuditDelete AuditAction = "DELETE"
)

// AuditRecord captures the before/after state of a committed mutation.
// Records are append-only: no application path updates or deletes them, and
// no role - admin included - carries a write or delete permission for them.
// ActorID is empty for system-initiated changes such as the note lock sweep.
type AuditRecord struct {
	ID             string                 `json:"id" db:"id"`
	TableName      string                 `json:"table_name" db:"table_name"`
	RecordID       string                 `json:"record_id" db:"record_id"`
	Action         AuditAction            `json:"action" db:"action"`
	ChangedFields  map[string]interface{} `json:"changed_fields,omitempty" db:"changed_fields"`
	PreviousFields map[string]interface{} `json:"previous_fields,omitempty" db:"previous_fields"`
	ActorID        string                 `json:"actor_id,omitempty" db:"actor_id"`
	IPAddress      string                 `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent      string                 `json:"user_agent,omitempty" db:"user_agent"`
	CreatedAt      time.Time              `json:"created_at" db:"created_at"`
}

// AuditFilter represents filters for audit record queries.
type AuditFilter struct {
	TableName     string      `json:"table_name,omitempty"`
	RecordID      string      `json:"record_id,omitempty"`
	ActorID       string      `json:"actor_id,omitempty"`
	Action        AuditAction `json:"action,omitempty"`
	CreatedAfter  time.Time   `json:"created_after,omitempty"`
	CreatedBefore time.Time   `json:"created_before,omitempty"`
	Limit         int         `json:"limit,omitempty"`
	Offset        int         `json:"offset,omitempty"`
}
