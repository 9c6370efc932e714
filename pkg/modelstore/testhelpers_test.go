package modelstore

import (
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/koba/modelstore/pkg/schema"
)

// newTestLogger returns a logger writing to t.Log, visible on failure or
// with -v.
func newTestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(string(p))
	return len(p), nil
}

// captureSink records published changes for deterministic assertions.
type captureSink struct {
	mu      sync.Mutex
	changes []Change
}

func (s *captureSink) Publish(c Change) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.changes = append(s.changes, c)
}

func (s *captureSink) all() []Change {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Change, len(s.changes))
	copy(out, s.changes)
	return out
}

func (s *captureSink) forTable(table string) []Change {
	var out []Change
	for _, c := range s.all() {
		if c.Table == table {
			out = append(out, c)
		}
	}
	return out
}

// createTestDB opens a fresh on-disk sqlite handle with a capturing sink.
func createTestDB(t *testing.T) (*DB, *captureSink) {
	t.Helper()
	sink := &captureSink{}
	db, err := Open(filepath.Join(t.TempDir(), "test.db"),
		WithLogger(newTestLogger(t)), WithChangeSink(sink))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, sink
}

func usersTable() *schema.Descriptor {
	return &schema.Descriptor{
		Table: "users",
		Columns: []schema.Column{
			{Name: "id", Type: schema.TypeText},
			{Name: "name", Type: schema.TypeText, Nullable: true},
			{Name: "age", Type: schema.TypeInteger, Nullable: true},
		},
		PrimaryKey: []string{"id"},
		Indexes: []schema.Index{
			{Name: "idx_users_name", Columns: []string{"name"}},
		},
	}
}

func userRecord(id, name string, age int64) *Record {
	return NewRecord(usersTable(), schema.Row{"id": id, "name": name, "age": age})
}

// membersTable has a composite primary key; keyed reads are invalid on it.
func membersTable() *schema.Descriptor {
	return &schema.Descriptor{
		Table: "members",
		Columns: []schema.Column{
			{Name: "group_id", Type: schema.TypeText},
			{Name: "user_id", Type: schema.TypeText},
			{Name: "role", Type: schema.TypeText, Nullable: true},
		},
		PrimaryKey: []string{"group_id", "user_id"},
	}
}
