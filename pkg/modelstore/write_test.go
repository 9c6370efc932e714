package modelstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koba/modelstore/pkg/schema"
)

func TestWrite_UpsertReplacesByKey(t *testing.T) {
	db, _ := createTestDB(t)
	desc := usersTable()

	// Two writes to one key in submission order: the read must
	// deterministically see the second.
	var w1Err, w2Err error
	done := make(chan struct{})
	db.Write(userRecord("u1", "a", 1), func(err error) { w1Err = err })
	db.Write(userRecord("u1", "b", 2), func(err error) {
		w2Err = err
		close(done)
	})
	<-done
	require.NoError(t, w1Err)
	require.NoError(t, w2Err)

	rec, err := db.ReadByKeySync(desc, "u1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "b", rec.Get("name"))

	recs, err := db.ReadWhereSync(desc, "id = ?", []any{"u1"})
	require.NoError(t, err)
	assert.Len(t, recs, 1, "upsert must replace, not duplicate")
}

func TestWrite_PublishesChange(t *testing.T) {
	db, sink := createTestDB(t)

	require.NoError(t, db.WriteSync(userRecord("u1", "Alice", 30)))

	changes := sink.forTable("users")
	require.Len(t, changes, 1)
	assert.Equal(t, []any{"u1"}, changes[0].Keys)
}

func TestWrite_MissingKeyIsMisuse(t *testing.T) {
	db, sink := createTestDB(t)

	rec := NewRecord(usersTable(), schema.Row{"name": "Alice"})
	err := db.WriteSync(rec)
	require.Error(t, err)
	assert.True(t, IsMisuseError(err))
	assert.Empty(t, sink.all())
}

func TestWrite_ConstraintViolationNoChangeEvent(t *testing.T) {
	db, sink := createTestDB(t)
	desc := &schema.Descriptor{
		Table: "strict",
		Columns: []schema.Column{
			{Name: "id", Type: schema.TypeText},
			{Name: "required", Type: schema.TypeText},
		},
		PrimaryKey: []string{"id"},
	}

	// NOT NULL column left unset: the engine rejects the row and the
	// rolled-back write must publish nothing.
	rec := NewRecord(desc, schema.Row{"id": "x1"})
	err := db.WriteSync(rec)
	require.Error(t, err)
	assert.True(t, IsQueryError(err), "got %v", err)
	assert.Empty(t, sink.forTable("strict"))
}

func TestWrite_CompositeKeyChangeTuple(t *testing.T) {
	db, sink := createTestDB(t)

	rec := NewRecord(membersTable(), schema.Row{"group_id": "g1", "user_id": "u1", "role": "admin"})
	require.NoError(t, db.WriteSync(rec))

	changes := sink.forTable("members")
	require.Len(t, changes, 1)
	require.Len(t, changes[0].Keys, 1)
	assert.Equal(t, []any{"g1", "u1"}, changes[0].Keys[0])
}

func TestDelete_RemovesRow(t *testing.T) {
	db, sink := createTestDB(t)
	desc := usersTable()

	require.NoError(t, db.WriteSync(userRecord("u1", "Alice", 30)))
	require.NoError(t, db.DeleteSync(userRecord("u1", "Alice", 30)))

	rec, err := db.ReadByKeySync(desc, "u1")
	require.NoError(t, err)
	assert.Nil(t, rec)

	changes := sink.forTable("users")
	require.Len(t, changes, 2, "one write event, one delete event")
	assert.Equal(t, []any{"u1"}, changes[1].Keys)
}

func TestDelete_MissingRowIsNoOp(t *testing.T) {
	db, sink := createTestDB(t)

	rec := NewRecord(usersTable(), schema.Row{"id": "nope"})
	require.NoError(t, db.DeleteSync(rec))

	// Success, and no events attributed to any other table.
	for _, c := range sink.all() {
		assert.Equal(t, "users", c.Table)
	}
}

func TestEndToEnd_SpecExample(t *testing.T) {
	db, sink := createTestDB(t)
	desc := &schema.Descriptor{
		Table: "users",
		Columns: []schema.Column{
			{Name: "id", Type: schema.TypeText},
			{Name: "name", Type: schema.TypeText, Nullable: true},
		},
		PrimaryKey: []string{"id"},
	}

	require.NoError(t, db.WriteSync(NewRecord(desc, schema.Row{"id": "u1", "name": "Alice"})))
	changes := sink.forTable("users")
	require.Len(t, changes, 1)
	assert.Equal(t, Change{Table: "users", Keys: []any{"u1"}}, changes[0])

	rec, err := db.ReadByKeySync(desc, "u1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "Alice", rec.Get("name"))

	recs, err := db.ReadWhereSync(desc, "name = ?", []any{"Alice"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "u1", recs[0].Get("id"))

	require.NoError(t, db.DeleteSync(NewRecord(desc, schema.Row{"id": "u1"})))
	require.Len(t, sink.forTable("users"), 2)

	rec, err = db.ReadByKeySync(desc, "u1")
	require.NoError(t, err)
	assert.Nil(t, rec)
}
