package session

import "context"

// schemaVersion is stamped into every serialized checkpoint so the status
// enum and state fields can evolve without breaking old rows.
const schemaVersion = 1

// Checkpointer is the durable backend behind the in-memory Manager. The
// in-memory map stays authoritative during a process lifetime; the
// checkpoint exists so sessions survive restarts.
type Checkpointer interface {
	Save(ctx context.Context, s *State) error
	Load(ctx context.Context, id string) (*State, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// checkpointEnvelope wraps the serialized state with its schema version.
type checkpointEnvelope struct {
	SchemaVersion int    `json:"schema_version"`
	State         *State `json:"state"`
}
