package table

// Schema describes the declared field set of a table and which single
// field carries the unique index. Both are fixed at table creation.
type Schema struct {
	Fields       []string // declared order
	IndexedField string

	fieldSet map[string]struct{}
}

// NewSchema validates the declared fields and the choice of indexed field.
func NewSchema(table string, fields []string, indexedField string) (*Schema, error) {
	if len(fields) == 0 {
		return nil, &SchemaError{Table: table, Reason: "a table needs at least one declared field"}
	}
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if f == "" {
			return nil, &SchemaError{Table: table, Reason: "empty field name"}
		}
		if _, dup := set[f]; dup {
			return nil, &SchemaError{Table: table, Field: f, Reason: "field declared twice"}
		}
		set[f] = struct{}{}
	}
	if _, ok := set[indexedField]; !ok {
		return nil, &SchemaError{Table: table, Field: indexedField, Reason: "indexed field is not a declared field"}
	}
	declared := make([]string, len(fields))
	copy(declared, fields)
	return &Schema{Fields: declared, IndexedField: indexedField, fieldSet: set}, nil
}

// Has reports whether field is part of the declared field set.
func (s *Schema) Has(field string) bool {
	_, ok := s.fieldSet[field]
	return ok
}

// Validate checks that the record's field set exactly matches the declared
// schema: no missing fields, no extra fields.
func (s *Schema) Validate(table string, rec Record) error {
	for _, f := range s.Fields {
		if _, ok := rec[f]; !ok {
			return &SchemaError{Table: table, Field: f, Reason: "missing required field"}
		}
	}
	if len(rec) != len(s.Fields) {
		for f := range rec {
			if !s.Has(f) {
				return &SchemaError{Table: table, Field: f, Reason: "field not declared in schema"}
			}
		}
	}
	return nil
}
