package modelstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koba/modelstore/pkg/schema"
)

func TestReadByKey_RoundTrip(t *testing.T) {
	db, _ := createTestDB(t)
	desc := usersTable()

	require.NoError(t, db.WriteSync(userRecord("u1", "Alice", 30)))

	rec, err := db.ReadByKeySync(desc, "u1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "u1", rec.Get("id"))
	assert.Equal(t, "Alice", rec.Get("name"))
	assert.Equal(t, int64(30), rec.Get("age"))
}

func TestReadByKey_Missing(t *testing.T) {
	db, _ := createTestDB(t)

	rec, err := db.ReadByKeySync(usersTable(), "nope")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestReadByKey_CompositeKeyIsMisuse(t *testing.T) {
	db, _ := createTestDB(t)

	_, err := db.ReadByKeySync(membersTable(), "g1")
	require.Error(t, err)
	assert.True(t, IsMisuseError(err))

	// Misuse is rejected before submission: the table was never resolved.
	tables, err := db.ListTablesSync()
	require.NoError(t, err)
	assert.NotContains(t, tables, "members")
}

func TestReadByKey_NilID(t *testing.T) {
	db, _ := createTestDB(t)

	_, err := db.ReadByKeySync(usersTable(), nil)
	require.Error(t, err)
	assert.True(t, IsMisuseError(err))
}

func TestReadWhere_Matches(t *testing.T) {
	db, _ := createTestDB(t)
	desc := usersTable()

	require.NoError(t, db.WriteSync(userRecord("u1", "Alice", 30)))
	require.NoError(t, db.WriteSync(userRecord("u2", "Bob", 25)))
	require.NoError(t, db.WriteSync(userRecord("u3", "Alice", 41)))

	recs, err := db.ReadWhereSync(desc, "name = ? ORDER BY id", []any{"Alice"})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "u1", recs[0].Get("id"))
	assert.Equal(t, "u3", recs[1].Get("id"))
}

func TestReadWhere_NoMatchesIsEmptyNotError(t *testing.T) {
	db, _ := createTestDB(t)

	recs, err := db.ReadWhereSync(usersTable(), "name = ?", []any{"Nobody"})
	require.NoError(t, err)
	require.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestReadWhere_MalformedFragment(t *testing.T) {
	db, _ := createTestDB(t)

	_, err := db.ReadWhereSync(usersTable(), "name LIKE (", nil)
	require.Error(t, err)
	assert.True(t, IsQueryError(err), "got %v", err)
}

func TestReadWhere_EmptyFragmentIsMisuse(t *testing.T) {
	db, _ := createTestDB(t)

	_, err := db.ReadWhereSync(usersTable(), "", nil)
	require.Error(t, err)
	assert.True(t, IsMisuseError(err))
}

func TestReadWhere_CompositeKeyTable(t *testing.T) {
	db, _ := createTestDB(t)
	desc := membersTable()

	rec := NewRecord(desc, schema.Row{"group_id": "g1", "user_id": "u1", "role": "admin"})
	require.NoError(t, db.WriteSync(rec))

	recs, err := db.ReadWhereSync(desc, "group_id = ?", []any{"g1"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "admin", recs[0].Get("role"))
}

func TestRead_TypeDecoding(t *testing.T) {
	db, _ := createTestDB(t)
	desc := &schema.Descriptor{
		Table: "samples",
		Columns: []schema.Column{
			{Name: "id", Type: schema.TypeText},
			{Name: "ratio", Type: schema.TypeReal, Nullable: true},
			{Name: "payload", Type: schema.TypeBlob, Nullable: true},
			{Name: "count", Type: schema.TypeInteger, Nullable: true},
		},
		PrimaryKey: []string{"id"},
	}

	rec := NewRecord(desc, schema.Row{
		"id":      "s1",
		"ratio":   0.5,
		"payload": []byte{0x01, 0x02},
		"count":   int64(7),
	})
	require.NoError(t, db.WriteSync(rec))

	got, err := db.ReadByKeySync(desc, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 0.5, got.Get("ratio"))
	assert.Equal(t, []byte{0x01, 0x02}, got.Get("payload"))
	assert.Equal(t, int64(7), got.Get("count"))

	// Absent nullable columns decode to nil.
	rec2 := NewRecord(desc, schema.Row{"id": "s2"})
	require.NoError(t, db.WriteSync(rec2))
	got2, err := db.ReadByKeySync(desc, "s2")
	require.NoError(t, err)
	require.NotNil(t, got2)
	assert.Nil(t, got2.Get("ratio"))
	assert.Nil(t, got2.Get("payload"))
}
