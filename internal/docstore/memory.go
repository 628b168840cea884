package docstore

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryCollection is an in-memory Collection used by tests and as a
// fallback when no database is configured. Not durable.
type MemoryCollection struct {
	mu   sync.RWMutex
	docs map[string]Document
}

func NewMemoryCollection() *MemoryCollection {
	return &MemoryCollection{docs: map[string]Document{}}
}

func (m *MemoryCollection) Get(ctx context.Context, id string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return withID(cloneDoc(d)), nil
}

func (m *MemoryCollection) Create(ctx context.Context, doc Document) (string, error) {
	id, _ := doc["_id"].(string)
	if id == "" {
		id = uuid.NewString()
	}
	stored := cloneDoc(doc)
	stored["_id"] = id
	delete(stored, "id")
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[id] = stored
	return id, nil
}

func (m *MemoryCollection) Set(ctx context.Context, id string, doc Document) error {
	stored := cloneDoc(doc)
	stored["_id"] = id
	delete(stored, "id")
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[id] = stored
	return nil
}

func (m *MemoryCollection) Update(ctx context.Context, id string, fields Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return ErrNotFound
	}
	for k, v := range fields {
		if k == "_id" || k == "id" {
			continue
		}
		d[k] = v
	}
	return nil
}

func (m *MemoryCollection) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return ErrNotFound
	}
	delete(m.docs, id)
	return nil
}

func (m *MemoryCollection) Query(ctx context.Context, opts Options) ([]Document, string, error) {
	m.mu.RLock()
	matched := []Document{}
	for _, d := range m.docs {
		ok, err := matches(d, opts.Filters)
		if err != nil {
			m.mu.RUnlock()
			return nil, "", err
		}
		if ok {
			matched = append(matched, cloneDoc(d))
		}
	}
	m.mu.RUnlock()

	orderKey := opts.OrderBy
	if orderKey == "" {
		orderKey = "_id"
	}
	sort.Slice(matched, func(i, j int) bool {
		c := docCompare(matched[i], matched[j], orderKey)
		if opts.Desc {
			return c > 0
		}
		return c < 0
	})

	startAfter, err := DecodeCursor(opts.StartAfter)
	if err != nil {
		return nil, "", fmt.Errorf("invalid cursor: %w", err)
	}
	if startAfter != "" {
		idx := -1
		for i, d := range matched {
			if d["_id"] == startAfter {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, "", fmt.Errorf("invalid cursor: %w", ErrNotFound)
		}
		matched = matched[idx+1:]
	}

	next := ""
	if opts.Limit > 0 && len(matched) > opts.Limit {
		matched = matched[:opts.Limit]
		next = EncodeCursor(matched[opts.Limit-1]["_id"].(string))
	}
	for i := range matched {
		matched[i] = withID(matched[i])
	}
	return matched, next, nil
}

func (m *MemoryCollection) Count(ctx context.Context, filters []Filter) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, d := range m.docs {
		ok, err := matches(d, filters)
		if err != nil {
			return 0, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}

func (m *MemoryCollection) BatchWrite(ctx context.Context, ops []WriteOp) error {
	for _, op := range ops {
		var err error
		switch op.Kind {
		case WriteSet:
			err = m.Set(ctx, op.ID, op.Doc)
		case WriteUpdate:
			err = m.Update(ctx, op.ID, op.Doc)
		case WriteDelete:
			err = m.Delete(ctx, op.ID)
		default:
			err = fmt.Errorf("unsupported write kind %d", op.Kind)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// RunTransaction runs fn directly; the memory store offers no isolation and
// exists so transactional code paths stay testable without a replica set.
func (m *MemoryCollection) RunTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func matches(d Document, filters []Filter) (bool, error) {
	for _, f := range filters {
		v := d[f.Field]
		switch f.Op {
		case OpEq:
			if !looseEqual(v, f.Value) {
				return false, nil
			}
		case OpArrayContains:
			if !arrayContains(v, f.Value) {
				return false, nil
			}
		case OpLt, OpLte, OpGt, OpGte:
			c, ok := compareValues(v, f.Value)
			if !ok {
				return false, nil
			}
			switch f.Op {
			case OpLt:
				if c >= 0 {
					return false, nil
				}
			case OpLte:
				if c > 0 {
					return false, nil
				}
			case OpGt:
				if c <= 0 {
					return false, nil
				}
			case OpGte:
				if c < 0 {
					return false, nil
				}
			}
		default:
			return false, fmt.Errorf("unsupported filter op %q", f.Op)
		}
	}
	return true, nil
}

func arrayContains(v, want interface{}) bool {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return false
	}
	for i := 0; i < rv.Len(); i++ {
		if looseEqual(rv.Index(i).Interface(), want) {
			return true
		}
	}
	return false
}

func looseEqual(a, b interface{}) bool {
	if c, ok := compareValues(a, b); ok {
		return c == 0
	}
	return reflect.DeepEqual(a, b)
}

// compareValues orders two field values of compatible type; bson decoding may
// widen numerics, so all numeric kinds compare through float64.
func compareValues(a, b interface{}) (int, bool) {
	if af, ok := toFloat(a); ok {
		if bf, ok2 := toFloat(b); ok2 {
			switch {
			case af < bf:
				return -1, true
			case af > bf:
				return 1, true
			default:
				return 0, true
			}
		}
		return 0, false
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		switch {
		case av < bv:
			return -1, true
		case av > bv:
			return 1, true
		default:
			return 0, true
		}
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case av == bv:
			return 0, true
		case !av:
			return -1, true
		default:
			return 1, true
		}
	case time.Time:
		bv, ok := toTime(b)
		if !ok {
			return 0, false
		}
		switch {
		case av.Before(bv):
			return -1, true
		case av.After(bv):
			return 1, true
		default:
			return 0, true
		}
	case primitive.DateTime:
		bv, ok := toTime(b)
		if !ok {
			return 0, false
		}
		at := av.Time()
		switch {
		case at.Before(bv):
			return -1, true
		case at.After(bv):
			return 1, true
		default:
			return 0, true
		}
	}
	return 0, false
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func toTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case primitive.DateTime:
		return t.Time(), true
	}
	return time.Time{}, false
}

// docCompare orders documents by the sort key with an _id tiebreak.
func docCompare(a, b Document, key string) int {
	if c, ok := compareValues(a[key], b[key]); ok && c != 0 {
		return c
	}
	ai, _ := a["_id"].(string)
	bi, _ := b["_id"].(string)
	switch {
	case ai < bi:
		return -1
	case ai > bi:
		return 1
	default:
		return 0
	}
}
