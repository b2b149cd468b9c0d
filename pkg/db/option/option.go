package option

import (
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QueryOption mutates a query before it is executed by a repository.
type QueryOption func(db *gorm.DB) *gorm.DB

func Apply(db *gorm.DB, opts ...QueryOption) *gorm.DB {
	for _, opt := range opts {
		if opt != nil {
			db = opt(db)
		}
	}
	return db
}

const defaultSortBy = "created_at"

type QuerySortBy struct {
	SortBy  string
	OrderBy string
	Allow   map[string]bool
}

// WithSortBy appends an ORDER BY term. Columns outside Allow fall back to
// created_at. Several WithSortBy options compose in the order given.
func WithSortBy(s QuerySortBy) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		column := s.SortBy
		if column == "" || (s.Allow != nil && !s.Allow[column]) {
			column = defaultSortBy
		}

		desc := strings.EqualFold(strings.TrimSpace(s.OrderBy), "desc")
		return db.Order(clause.OrderByColumn{
			Column: clause.Column{Name: column},
			Desc:   desc,
		})
	}
}

type Operator string

const (
	EQ  Operator = "="
	NEQ Operator = "<>"
	GT  Operator = ">"
	GTE Operator = ">="
	LT  Operator = "<"
	LTE Operator = "<="
	IN  Operator = "IN"
)

type Condition struct {
	Field    string
	Operator Operator
	Value    any
}

func (c Condition) expression() clause.Expression {
	column := clause.Column{Name: c.Field}
	switch c.Operator {
	case NEQ:
		return clause.Neq{Column: column, Value: c.Value}
	case GT:
		return clause.Gt{Column: column, Value: c.Value}
	case GTE:
		return clause.Gte{Column: column, Value: c.Value}
	case LT:
		return clause.Lt{Column: column, Value: c.Value}
	case LTE:
		return clause.Lte{Column: column, Value: c.Value}
	case IN:
		values, _ := c.Value.([]any)
		return clause.IN{Column: column, Values: values}
	default:
		return clause.Eq{Column: column, Value: c.Value}
	}
}

func ApplyOperator(conds ...Condition) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		for _, c := range conds {
			db = db.Clauses(clause.Where{Exprs: []clause.Expression{c.expression()}})
		}
		return db
	}
}

// LockingUpdate is a scope adding SELECT ... FOR UPDATE. Dialects without
// row locks (sqlite) drop the clause.
func LockingUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate})
}

func WithLockingUpdate() QueryOption {
	return LockingUpdate
}

func WithLimit(limit int) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		if limit <= 0 {
			return db
		}
		return db.Limit(limit)
	}
}

func WithOffset(offset int) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		if offset <= 0 {
			return db
		}
		return db.Offset(offset)
	}
}
