// Package recordstore defines the persistence contract the reapers consume.
//
// A [Collection] holds one record type. Reapers only need three operations:
// find by predicate, delete by ID, and count by predicate. Predicates are a
// [Filter]: an AND of field comparisons.
//
//	due, err := accounts.Find(ctx, recordstore.And(
//	    recordstore.Eq(model.AccountFieldDeletionScheduled, true),
//	    recordstore.Lte(model.AccountFieldDeletionScheduledAt, now),
//	))
package recordstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned by DeleteByID when no record has the ID.
	ErrNotFound = errors.New("recordstore: record not found")

	// ErrStoreClosed is returned after Close.
	ErrStoreClosed = errors.New("recordstore: store closed")

	// ErrUnsupportedFilter is returned for a filter the store cannot evaluate.
	ErrUnsupportedFilter = errors.New("recordstore: unsupported filter")
)

// RecordError wraps a store error with the operation, collection and ID.
type RecordError struct {
	Op         string
	Collection string
	ID         string
	Err        error
}

func (e *RecordError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("recordstore: %s %s: %v", e.Op, e.Collection, e.Err)
	}
	return fmt.Sprintf("recordstore: %s %s %q: %v", e.Op, e.Collection, e.ID, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// Record is implemented by every stored type.
type Record interface {
	// RecordID returns the primary key.
	RecordID() string
	// Field returns a filterable column's value. ok is false when the
	// column is unknown or null.
	Field(name string) (value any, ok bool)
}

// Collection is the record store contract for one record type.
//
// Implementations must be safe for concurrent use.
type Collection[T Record] interface {
	// Find returns every record matching filter, in a stable order.
	Find(ctx context.Context, filter Filter) ([]T, error)

	// DeleteByID removes a single record. It returns ErrNotFound (possibly
	// wrapped) when the record does not exist.
	DeleteByID(ctx context.Context, id string) error

	// Count returns the number of records matching filter.
	Count(ctx context.Context, filter Filter) (int64, error)
}

// Op is a comparison operator.
type Op int

const (
	OpEq Op = iota
	OpLt
	OpLte
)

func (o Op) String() string {
	switch o {
	case OpEq:
		return "="
	case OpLt:
		return "<"
	case OpLte:
		return "<="
	default:
		return "?"
	}
}

// Condition compares one field with a value.
type Condition struct {
	Field string
	Op    Op
	Value any
}

// Eq matches records whose field equals value.
func Eq(field string, value any) Condition { return Condition{Field: field, Op: OpEq, Value: value} }

// Lt matches records whose field is strictly less than value.
func Lt(field string, value any) Condition { return Condition{Field: field, Op: OpLt, Value: value} }

// Lte matches records whose field is less than or equal to value.
func Lte(field string, value any) Condition { return Condition{Field: field, Op: OpLte, Value: value} }

// Filter is a conjunction of conditions. An empty filter matches everything.
type Filter []Condition

// And combines conditions into a Filter.
func And(conds ...Condition) Filter { return Filter(conds) }

func (f Filter) String() string {
	if len(f) == 0 {
		return "<all>"
	}
	parts := make([]string, len(f))
	for i, c := range f {
		parts[i] = fmt.Sprintf("%s %s %v", c.Field, c.Op, c.Value)
	}
	return strings.Join(parts, " AND ")
}

// Matches evaluates the filter against r in memory.
func (f Filter) Matches(r Record) (bool, error) {
	for _, c := range f {
		ok, err := c.Matches(r)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// Matches evaluates a single condition against r. Missing or null fields
// never match.
func (c Condition) Matches(r Record) (bool, error) {
	v, ok := r.Field(c.Field)
	if !ok {
		return false, nil
	}
	cmp, err := compare(v, c.Value)
	if err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrUnsupportedFilter, c.Field, err)
	}
	switch c.Op {
	case OpEq:
		return cmp == 0, nil
	case OpLt:
		return cmp < 0, nil
	case OpLte:
		return cmp <= 0, nil
	default:
		return false, fmt.Errorf("%w: operator %d", ErrUnsupportedFilter, c.Op)
	}
}

// compare orders a against b. Booleans only support equality and report
// false < true.
func compare(a, b any) (int, error) {
	switch av := a.(type) {
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 0, fmt.Errorf("cannot compare time with %T", b)
		}
		return av.Compare(bv), nil
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, fmt.Errorf("cannot compare string with %T", b)
		}
		return strings.Compare(av, bv), nil
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, fmt.Errorf("cannot compare bool with %T", b)
		}
		switch {
		case av == bv:
			return 0, nil
		case !av:
			return -1, nil
		default:
			return 1, nil
		}
	case int, int32, int64, float64:
		af, _ := toFloat(a)
		bf, ok := toFloat(b)
		if !ok {
			return 0, fmt.Errorf("cannot compare number with %T", b)
		}
		switch {
		case af < bf:
			return -1, nil
		case af > bf:
			return 1, nil
		default:
			return 0, nil
		}
	}
	return 0, fmt.Errorf("unsupported field type %T", a)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
