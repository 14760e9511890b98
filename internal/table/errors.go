package table

import "fmt"

// SchemaError reports a record or operation that does not match the table's
// declared field set. It is always surfaced to the caller, never silently
// corrected.
type SchemaError struct {
	Table  string
	Field  string // offending field (empty if the whole field set is wrong)
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("schema violation in %s: %s", e.Table, e.Reason)
	}
	return fmt.Sprintf("schema violation in %s.%s: %s", e.Table, e.Field, e.Reason)
}

// DuplicateKeyError reports an insert or indexed-field update whose value
// collides with an existing record. The operation is fully rolled back.
type DuplicateKeyError struct {
	Table string
	Field string
	Value string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate key in %s.%s: value=%q", e.Table, e.Field, e.Value)
}

// NotFoundError reports an update or delete whose target record is absent.
// No partial mutation occurs.
type NotFoundError struct {
	Table string
	Field string
	Value string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no record in %s with %s=%q", e.Table, e.Field, e.Value)
}
