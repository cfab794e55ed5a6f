package postgres

import (
	"context"
	"fmt"
	"regexp"

	sq "github.com/Masterminds/squirrel"
	"github.com/makwanagautam41/SnapLink-sub001/internal/recordstore"
	"gorm.io/gorm"
)

var columnName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Collection is a recordstore.Collection backed by one table. The table
// comes from T's TableName method.
type Collection[T recordstore.Record] struct {
	db   *gorm.DB
	name string
}

// NewCollection returns a collection over T's table.
func NewCollection[T recordstore.Record](db *DB, name string) *Collection[T] {
	return &Collection[T]{db: db.gorm, name: name}
}

// Find returns matching rows ordered by primary key.
func (c *Collection[T]) Find(ctx context.Context, filter recordstore.Filter) ([]T, error) {
	tx, err := c.scoped(ctx, filter)
	if err != nil {
		return nil, &recordstore.RecordError{Op: recordstore.OpFind, Collection: c.name, Err: err}
	}
	var out []T
	if err := tx.Order("id").Find(&out).Error; err != nil {
		return nil, &recordstore.RecordError{Op: recordstore.OpFind, Collection: c.name, Err: err}
	}
	return out, nil
}

// DeleteByID deletes one row. Zero affected rows is reported as
// recordstore.ErrNotFound.
func (c *Collection[T]) DeleteByID(ctx context.Context, id string) error {
	res := c.db.WithContext(ctx).Where("id = ?", id).Delete(new(T))
	if res.Error != nil {
		return &recordstore.RecordError{Op: recordstore.OpDelete, Collection: c.name, ID: id, Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return &recordstore.RecordError{Op: recordstore.OpDelete, Collection: c.name, ID: id, Err: recordstore.ErrNotFound}
	}
	return nil
}

// Count returns the number of matching rows.
func (c *Collection[T]) Count(ctx context.Context, filter recordstore.Filter) (int64, error) {
	tx, err := c.scoped(ctx, filter)
	if err != nil {
		return 0, &recordstore.RecordError{Op: recordstore.OpCount, Collection: c.name, Err: err}
	}
	var n int64
	if err := tx.Count(&n).Error; err != nil {
		return 0, &recordstore.RecordError{Op: recordstore.OpCount, Collection: c.name, Err: err}
	}
	return n, nil
}

func (c *Collection[T]) scoped(ctx context.Context, filter recordstore.Filter) (*gorm.DB, error) {
	tx := c.db.WithContext(ctx).Model(new(T))
	if len(filter) == 0 {
		return tx, nil
	}
	query, args, err := whereClause(filter)
	if err != nil {
		return nil, err
	}
	return tx.Where(query, args...), nil
}

// whereClause renders filter as a parenthesised AND with ? placeholders.
func whereClause(filter recordstore.Filter) (string, []any, error) {
	and := make(sq.And, 0, len(filter))
	for _, cond := range filter {
		if !columnName.MatchString(cond.Field) {
			return "", nil, fmt.Errorf("%w: column %q", recordstore.ErrUnsupportedFilter, cond.Field)
		}
		switch cond.Op {
		case recordstore.OpEq:
			and = append(and, sq.Eq{cond.Field: cond.Value})
		case recordstore.OpLt:
			and = append(and, sq.Lt{cond.Field: cond.Value})
		case recordstore.OpLte:
			and = append(and, sq.LtOrEq{cond.Field: cond.Value})
		default:
			return "", nil, fmt.Errorf("%w: operator %s", recordstore.ErrUnsupportedFilter, cond.Op)
		}
	}
	return and.ToSql()
}
