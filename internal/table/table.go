package table

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zoreu/tabledb/internal/cache"
)

// Table owns the record collection, the unique index on the indexed field,
// and the bounded lookup cache. It is the only component callers touch.
//
// Every public operation takes the table lock for its full duration: index,
// record and cache mutations are not independently safe to interleave, so
// the critical section is the whole operation. When an operation returns,
// index and cache are consistent with the record collection.
type Table struct {
	mu     sync.Mutex
	name   string
	schema *Schema

	rows  map[string]Record // record id → record (owned, never aliased out)
	order []string          // record ids in insertion order

	index *Index
	cache *cache.ResultCache[Record]

	observers []Observer
}

// New creates a table with the declared field set, the field to keep
// unique and indexed, and the lookup cache capacity.
func New(name string, fields []string, indexedField string, cacheCapacity int) (*Table, error) {
	if name == "" {
		return nil, fmt.Errorf("table name must not be empty")
	}
	schema, err := NewSchema(name, fields, indexedField)
	if err != nil {
		return nil, err
	}
	c, err := cache.New[Record](cacheCapacity)
	if err != nil {
		return nil, fmt.Errorf("table %s: %w", name, err)
	}
	return &Table{
		name:   name,
		schema: schema,
		rows:   make(map[string]Record),
		index:  NewIndex(name, indexedField),
		cache:  c,
	}, nil
}

// Name returns the table name.
func (t *Table) Name() string {
	return t.name
}

// Fields returns the declared field names in declaration order.
func (t *Table) Fields() []string {
	out := make([]string, len(t.schema.Fields))
	copy(out, t.schema.Fields)
	return out
}

// IndexedField returns the name of the indexed field.
func (t *Table) IndexedField() string {
	return t.schema.IndexedField
}

// Len returns the number of live records.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.order)
}

// Insert adds a record. The record's field set must exactly match the
// declared schema and the indexed field's value must be unused.
func (t *Table) Insert(rec Record) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	opID := uuid.NewString()

	if err := t.schema.Validate(t.name, rec); err != nil {
		t.notify(Event{Type: EventInsert, OpID: opID, Table: t.name, Err: err.Error()})
		return err
	}
	key, err := t.indexedValue(rec)
	if err != nil {
		t.notify(Event{Type: EventInsert, OpID: opID, Table: t.name, Err: err.Error()})
		return err
	}
	if _, taken := t.index.Get(key); taken {
		err := &DuplicateKeyError{Table: t.name, Field: t.schema.IndexedField, Value: key}
		t.notify(Event{Type: EventInsert, OpID: opID, Table: t.name, Field: t.schema.IndexedField, Value: key, Err: err.Error()})
		return err
	}

	// The table owns its rows: store a deep copy so later caller-side
	// mutation cannot bypass the index and cache invariants.
	id := uuid.NewString()
	t.rows[id] = rec.Clone()
	t.order = append(t.order, id)
	if err := t.index.Put(key, id); err != nil {
		// Unreachable after the collision check above; undo the append
		// so the index stays consistent with the rows either way.
		delete(t.rows, id)
		t.order = t.order[:len(t.order)-1]
		t.notify(Event{Type: EventInsert, OpID: opID, Table: t.name, Field: t.schema.IndexedField, Value: key, Err: err.Error()})
		return err
	}

	// A cached "no match" for this value is now stale. Writes clear the
	// whole cache instead of reasoning about which entries survive.
	t.cache.Clear()

	t.notify(Event{Type: EventInsert, OpID: opID, Table: t.name, Field: t.schema.IndexedField, Value: key})
	return nil
}

// Search looks up a single record by (field, value) and returns a deep copy.
//
// The indexed field is the fast path: the cache is consulted first, and
// both found and confirmed-absent results are memoized. Any other declared
// field degenerates to a linear scan over scalar values and is never
// cached, since its staleness rules differ from point lookups. An
// undeclared field matches nothing.
func (t *Table) Search(field, value string) (Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	opID := uuid.NewString()

	if !t.schema.Has(field) {
		t.notify(Event{Type: EventSearch, OpID: opID, Table: t.name, Field: field, Value: value, Err: "unknown field"})
		return nil, false
	}

	if field != t.schema.IndexedField {
		rec, ok := t.scanEqual(field, value)
		t.notify(Event{Type: EventSearch, OpID: opID, Table: t.name, Field: field, Value: value})
		return rec, ok
	}

	key := cache.Key{Field: field, Value: value}
	if rec, positive, ok := t.cache.Get(key); ok {
		t.notify(Event{Type: EventCacheHit, OpID: opID, Table: t.name, Field: field, Value: value})
		if !positive {
			return nil, false
		}
		return rec.Clone(), true
	}
	t.notify(Event{Type: EventCacheMiss, OpID: opID, Table: t.name, Field: field, Value: value})

	id, found := t.index.Get(value)
	if !found {
		t.cache.PutNegative(key)
		return nil, false
	}

	// The cache keeps its own copy; the caller gets another one, so
	// neither can reach into the stored row.
	rec := t.rows[id].Clone()
	t.cache.Put(key, rec)
	return rec.Clone(), true
}

// Update applies changes to the record addressed by (field, value).
// field must be the indexed field. changes may rekey the indexed field
// itself, which collision-checks the new value before any mutation.
// List-valued fields merge by appending; scalars are replaced.
func (t *Table) Update(field, value string, changes Record) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	opID := uuid.NewString()

	if err := t.requireIndexedField(field, "updates address records by the indexed field"); err != nil {
		t.notify(Event{Type: EventUpdate, OpID: opID, Table: t.name, Field: field, Value: value, Err: err.Error()})
		return err
	}
	for f := range changes {
		if !t.schema.Has(f) {
			err := &SchemaError{Table: t.name, Field: f, Reason: "field not declared in schema"}
			t.notify(Event{Type: EventUpdate, OpID: opID, Table: t.name, Field: field, Value: value, Err: err.Error()})
			return err
		}
	}

	id, found := t.index.Get(value)
	if !found {
		err := &NotFoundError{Table: t.name, Field: field, Value: value}
		t.notify(Event{Type: EventUpdate, OpID: opID, Table: t.name, Field: field, Value: value, Err: err.Error()})
		return err
	}

	// Apply changes to a private copy first so any failure below leaves
	// the stored record untouched.
	next := t.rows[id].Clone()
	for f, v := range changes {
		next[f] = mergeValue(next[f], v)
	}

	newKey := value
	if _, rekeys := changes[t.schema.IndexedField]; rekeys {
		nk, err := t.indexedValue(next)
		if err != nil {
			t.notify(Event{Type: EventUpdate, OpID: opID, Table: t.name, Field: field, Value: value, Err: err.Error()})
			return err
		}
		newKey = nk
		if newKey != value {
			if other, taken := t.index.Get(newKey); taken && other != id {
				err := &DuplicateKeyError{Table: t.name, Field: t.schema.IndexedField, Value: newKey}
				t.notify(Event{Type: EventUpdate, OpID: opID, Table: t.name, Field: field, Value: value, Err: err.Error()})
				return err
			}
			t.index.Remove(value)
			if err := t.index.Put(newKey, id); err != nil {
				_ = t.index.Put(value, id) // restore; unreachable after the check above
				t.notify(Event{Type: EventUpdate, OpID: opID, Table: t.name, Field: field, Value: value, Err: err.Error()})
				return err
			}
		}
	}

	t.rows[id] = next

	t.cache.Invalidate(cache.Key{Field: t.schema.IndexedField, Value: value})
	if newKey != value {
		t.cache.Invalidate(cache.Key{Field: t.schema.IndexedField, Value: newKey})
	}

	t.notify(Event{Type: EventUpdate, OpID: opID, Table: t.name, Field: field, Value: value})
	return nil
}

// Delete removes the record addressed by (field, value).
// field must be the indexed field.
func (t *Table) Delete(field, value string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	opID := uuid.NewString()

	if err := t.requireIndexedField(field, "deletes address records by the indexed field"); err != nil {
		t.notify(Event{Type: EventDelete, OpID: opID, Table: t.name, Field: field, Value: value, Err: err.Error()})
		return err
	}

	id, found := t.index.Get(value)
	if !found {
		err := &NotFoundError{Table: t.name, Field: field, Value: value}
		t.notify(Event{Type: EventDelete, OpID: opID, Table: t.name, Field: field, Value: value, Err: err.Error()})
		return err
	}

	delete(t.rows, id)
	for i, rid := range t.order {
		if rid == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	t.index.Remove(value)
	t.cache.Invalidate(cache.Key{Field: field, Value: value})

	t.notify(Event{Type: EventDelete, OpID: opID, Table: t.name, Field: field, Value: value})
	return nil
}

// List returns one page of record copies in insertion order plus the total
// record count. Pages are never cached; the lookup cache memoizes indexed
// point lookups only.
func (t *Table) List(page, perPage int) ([]Record, int, error) {
	if page < 1 || perPage < 1 {
		return nil, 0, fmt.Errorf("page and per_page must be positive, got page=%d per_page=%d", page, perPage)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	total := len(t.order)
	start := (page - 1) * perPage
	if start >= total {
		return nil, total, nil
	}
	end := start + perPage
	if end > total {
		end = total
	}
	out := make([]Record, 0, end-start)
	for _, id := range t.order[start:end] {
		out = append(out, t.rows[id].Clone())
	}
	return out, total, nil
}

// Match returns the page of records whose scalar value at field contains
// substr, case-insensitively, in insertion order, plus the total number of
// matches. Always a linear scan, never cached.
func (t *Table) Match(field, substr string, page, perPage int) ([]Record, int, error) {
	if page < 1 || perPage < 1 {
		return nil, 0, fmt.Errorf("page and per_page must be positive, got page=%d per_page=%d", page, perPage)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.schema.Has(field) {
		return nil, 0, &SchemaError{Table: t.name, Field: field, Reason: "field not declared in schema"}
	}

	needle := strings.ToLower(substr)
	var matched []string
	for _, id := range t.order {
		v, ok := t.rows[id][field]
		if !ok || v.Kind != KindScalar {
			continue
		}
		if strings.Contains(strings.ToLower(v.Str), needle) {
			matched = append(matched, id)
		}
	}

	total := len(matched)
	start := (page - 1) * perPage
	if start >= total {
		return nil, total, nil
	}
	end := start + perPage
	if end > total {
		end = total
	}
	out := make([]Record, 0, end-start)
	for _, id := range matched[start:end] {
		out = append(out, t.rows[id].Clone())
	}
	return out, total, nil
}

// CacheStats returns the lookup cache counters, used by tests and the REPL.
func (t *Table) CacheStats() cache.Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cache.Stats()
}

// CacheLen returns the number of entries currently cached.
func (t *Table) CacheLen() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cache.Len()
}

// AddObserver registers an observer to receive operation events.
func (t *Table) AddObserver(observer Observer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observers = append(t.observers, observer)
}

// RemoveObserver unregisters an observer.
func (t *Table) RemoveObserver(observer Observer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, o := range t.observers {
		if o == observer {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

// notify sends an event to all registered observers.
// Must be called while holding the table lock.
func (t *Table) notify(event Event) {
	event.Timestamp = time.Now()
	for _, observer := range t.observers {
		observer.OnEvent(event)
	}
}

// indexedValue extracts the scalar value of the indexed field.
func (t *Table) indexedValue(rec Record) (string, error) {
	v, ok := rec[t.schema.IndexedField]
	if !ok {
		return "", &SchemaError{Table: t.name, Field: t.schema.IndexedField, Reason: "missing required field"}
	}
	if v.Kind != KindScalar {
		return "", &SchemaError{Table: t.name, Field: t.schema.IndexedField, Reason: "indexed field must hold a scalar value"}
	}
	return v.Str, nil
}

func (t *Table) requireIndexedField(field, reason string) error {
	if field != t.schema.IndexedField {
		return &SchemaError{Table: t.name, Field: field, Reason: reason}
	}
	return nil
}

// scanEqual is the uncached fallback for non-indexed fields: a linear scan
// comparing scalar values for exact equality.
func (t *Table) scanEqual(field, value string) (Record, bool) {
	for _, id := range t.order {
		v, ok := t.rows[id][field]
		if ok && v.Kind == KindScalar && v.Str == value {
			return t.rows[id].Clone(), true
		}
	}
	return nil, false
}
