// Package schemafile loads declarative table definitions from YAML files.
// The command-line tool uses these files to migrate databases without a
// compiled-in model type for every table.
package schemafile

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/koba/modelstore/pkg/schema"
)

// File is the top-level structure of a table-definition file.
type File struct {
	Tables []*schema.Descriptor `yaml:"tables"`
}

// Load reads and validates a table-definition file. Column types are
// case-insensitive in the file; they are normalized before validation.
func Load(path string) ([]*schema.Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML table definitions and validates each descriptor.
func Parse(data []byte) ([]*schema.Descriptor, error) {
	var file File
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse schema file: %w", err)
	}
	if len(file.Tables) == 0 {
		return nil, fmt.Errorf("schema file declares no tables")
	}

	seen := make(map[string]bool, len(file.Tables))
	for _, desc := range file.Tables {
		for i := range desc.Columns {
			desc.Columns[i].Type = schema.NormalizeType(string(desc.Columns[i].Type))
		}
		if err := desc.Validate(); err != nil {
			return nil, fmt.Errorf("invalid table definition: %w", err)
		}
		if seen[desc.Table] {
			return nil, fmt.Errorf("schema file declares table %s twice", desc.Table)
		}
		seen[desc.Table] = true
	}

	return file.Tables, nil
}
