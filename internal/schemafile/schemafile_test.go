package schemafile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koba/modelstore/pkg/schema"
)

const usersYAML = `
tables:
  - table: users
    columns:
      - name: id
        type: TEXT
      - name: name
        type: text
        nullable: true
      - name: age
        type: integer
        nullable: true
    primary_key: [id]
    indexes:
      - name: idx_users_name
        columns: [name]
  - table: members
    columns:
      - name: group_id
        type: TEXT
      - name: user_id
        type: TEXT
    primary_key: [group_id, user_id]
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(usersYAML), 0644))

	descs, err := Load(path)
	require.NoError(t, err)
	require.Len(t, descs, 2)

	users := descs[0]
	assert.Equal(t, "users", users.Table)
	assert.Equal(t, []string{"id", "name", "age"}, users.ColumnNames())
	assert.Equal(t, schema.TypeText, users.Column("name").Type, "lowercase types are normalized")
	assert.Equal(t, schema.TypeInteger, users.Column("age").Type)
	assert.True(t, users.Column("name").Nullable)
	require.Len(t, users.Indexes, 1)
	assert.Equal(t, "idx_users_name", users.Indexes[0].Name)

	assert.Equal(t, []string{"group_id", "user_id"}, descs[1].PrimaryKey)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read")
}

func TestParse_Rejections(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "not yaml",
			yaml: "tables: [",
			want: "failed to parse",
		},
		{
			name: "no tables",
			yaml: "tables: []",
			want: "no tables",
		},
		{
			name: "unknown field",
			yaml: "tables:\n  - table: users\n    colums:\n      - name: id\n        type: TEXT",
			want: "failed to parse",
		},
		{
			name: "invalid descriptor",
			yaml: "tables:\n  - table: users\n    columns:\n      - name: id\n        type: TEXT",
			want: "no primary key",
		},
		{
			name: "unsupported type",
			yaml: "tables:\n  - table: users\n    columns:\n      - name: id\n        type: GEOMETRY\n    primary_key: [id]",
			want: "unsupported type",
		},
		{
			name: "duplicate table",
			yaml: usersYAML + "  - table: users\n    columns:\n      - name: id\n        type: TEXT\n    primary_key: [id]\n",
			want: "twice",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
