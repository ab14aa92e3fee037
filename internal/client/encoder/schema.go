package encoder

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/dmitrijs2005/fieldreport/internal/client/models"
	"gopkg.in/yaml.v3"
)

// Base columns present in every record, in sheet order.
var BaseColumns = []string{
	"id",
	"timestamp",
	"category",
	"subcategory",
	"location_mode",
	"latitude",
	"longitude",
	"accuracy_m",
	"place_id",
	"tags",
	"notes",
	"photo_count",
}

//go:embed schema.yaml
var defaultSchema []byte

// Schema is the ordered set of canonical columns the remote endpoint expects.
type Schema struct {
	Fields []string `yaml:"fields"`
	Tables []string `yaml:"tables"`

	columns []string
	tables  map[string]struct{}
}

// ParseSchema decodes a YAML schema and checks that column names are unique
// and do not collide with the record's attachments key.
func ParseSchema(b []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}

	seen := make(map[string]struct{}, len(BaseColumns)+len(s.Fields)+len(s.Tables))
	s.tables = make(map[string]struct{}, len(s.Tables))
	s.columns = make([]string, 0, len(BaseColumns)+len(s.Fields)+len(s.Tables))

	add := func(name string) error {
		if name == "" {
			return errors.New("schema: empty column name")
		}
		if name == models.KeyAttachments {
			return fmt.Errorf("schema: column name %q is reserved", name)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("schema: duplicate column %q", name)
		}
		seen[name] = struct{}{}
		s.columns = append(s.columns, name)
		return nil
	}

	for _, group := range [][]string{BaseColumns, s.Fields, s.Tables} {
		for _, name := range group {
			if err := add(name); err != nil {
				return nil, err
			}
		}
	}
	for _, name := range s.Tables {
		s.tables[name] = struct{}{}
	}
	return &s, nil
}

// LoadSchemaFile reads a schema from path.
func LoadSchemaFile(path string) (*Schema, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSchema(b)
}

// DefaultSchema returns the built-in schema.
func DefaultSchema() *Schema {
	s, err := ParseSchema(defaultSchema)
	if err != nil {
		panic(err)
	}
	return s
}

// Columns returns all canonical column names in order.
func (s *Schema) Columns() []string {
	return append([]string(nil), s.columns...)
}

// IsTable reports whether name is a table-shaped column.
func (s *Schema) IsTable(name string) bool {
	_, ok := s.tables[name]
	return ok
}
