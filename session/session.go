package session

import (
	"encoding/json"
	"time"

	"github.com/louisbranch/recordstore/storage"
)

// Session is one web session: an identifier, its key/value state, and an
// expiry deadline.
type Session struct {
	ID        string
	Values    map[string]string
	ExpiresAt time.Time
}

// Expired reports whether the session's deadline has passed.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

var sessionFields = []storage.Field{
	{Name: "id", Kind: storage.KindString},
	{Name: "payload", Kind: storage.KindBytes},
	{Name: "expires_at", Kind: storage.KindInt},
}

// Spec maps sessions onto an (id, payload, expires_at) column set. The
// payload column holds the JSON-encoded values; expiry is stored as unix
// milliseconds.
type Spec struct{}

// Fields returns the session column set.
func (Spec) Fields() []storage.Field { return sessionFields }

// KeyField names the session-id column.
func (Spec) KeyField() string { return "id" }

// SerializeKey wraps a session ID.
func (Spec) SerializeKey(id string) storage.Value { return storage.StringValue(id) }

// DeserializeKey unwraps a session ID.
func (Spec) DeserializeKey(v storage.Value) (string, bool) { return v.AsString() }

// SerializeData encodes the session values as JSON. The id column is
// supplied by the adapter from the key.
func (Spec) SerializeData(s Session) (map[string]storage.Value, bool) {
	values := s.Values
	if values == nil {
		values = map[string]string{}
	}
	payload, err := json.Marshal(values)
	if err != nil {
		return nil, false
	}
	// Sessions without a deadline store zero so expiry pruning skips them.
	var expiresAt int64
	if !s.ExpiresAt.IsZero() {
		expiresAt = s.ExpiresAt.UTC().UnixMilli()
	}
	return map[string]storage.Value{
		"payload":    storage.BytesValue(payload),
		"expires_at": storage.IntValue(expiresAt),
	}, true
}

// DeserializeData rebuilds a session from a stored row.
func (Spec) DeserializeData(row map[string]storage.Value) (Session, bool) {
	id, ok := row["id"].AsString()
	if !ok {
		return Session{}, false
	}
	payload, ok := row["payload"].AsBytes()
	if !ok {
		return Session{}, false
	}
	expiresAt, ok := row["expires_at"].AsInt()
	if !ok {
		return Session{}, false
	}

	var values map[string]string
	if err := json.Unmarshal(payload, &values); err != nil {
		return Session{}, false
	}
	out := Session{ID: id, Values: values}
	if expiresAt != 0 {
		out.ExpiresAt = time.UnixMilli(expiresAt).UTC()
	}
	return out, true
}

var _ storage.Spec[string, Session] = Spec{}
