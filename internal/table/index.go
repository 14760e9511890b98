package table

// Index is the in-memory unique index on the table's indexed field.
// It maps each current value of that field to the identity of the record
// holding it, never to the record's content, and is kept bijective on live
// values by the owning table: entry added on insert, rekeyed when an update
// changes the indexed value, removed on delete.
type Index struct {
	Table string
	Field string

	refs map[string]string // indexed value → record id
}

// NewIndex creates an empty index on the given field.
func NewIndex(table, field string) *Index {
	return &Index{
		Table: table,
		Field: field,
		refs:  make(map[string]string),
	}
}

// Get returns the id of the record holding value, if any.
func (idx *Index) Get(value string) (string, bool) {
	id, ok := idx.refs[value]
	return id, ok
}

// Put maps value to the record id. It fails when value already maps to a
// different record.
func (idx *Index) Put(value, id string) error {
	if existing, ok := idx.refs[value]; ok && existing != id {
		return &DuplicateKeyError{Table: idx.Table, Field: idx.Field, Value: value}
	}
	idx.refs[value] = id
	return nil
}

// Remove drops the entry for value. Removing an absent value is a no-op.
func (idx *Index) Remove(value string) {
	delete(idx.refs, value)
}

// Len returns the number of indexed values.
func (idx *Index) Len() int {
	return len(idx.refs)
}
