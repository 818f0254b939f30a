package sqlite

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/zoobzio/embedded"
)

// Raw is a SQL boolean expression with positional arguments.
type Raw struct {
	SQL  string
	Args []any
}

// Expr builds a Raw predicate: Where(sqlite.Expr("price_amount > ?", 10)).
func Expr(sql string, args ...any) Raw {
	return Raw{SQL: sql, Args: args}
}

type orderTerm struct {
	column string
	desc   bool
}

// scope is an immutable SELECT over a table.
type scope[R embedded.Storable] struct {
	table  *Table[R]
	conds  []embedded.Condition
	raws   []Raw
	order  []orderTerm
	limit  int
	offset int
	err    error
}

func (s *scope[R]) clone() *scope[R] {
	c := *s
	c.conds = slices.Clone(s.conds)
	c.raws = slices.Clone(s.raws)
	c.order = slices.Clone(s.order)
	return &c
}

// Where accepts column conditions and Raw expressions.
func (s *scope[R]) Where(pred any) embedded.Scope[R] {
	next := s.clone()
	if next.err != nil {
		return next
	}

	var terms []embedded.Condition
	switch p := pred.(type) {
	case embedded.Conditions:
		terms = p.Terms()
	case map[string]any:
		terms = embedded.Conditions(p).Terms()
	case Raw:
		if strings.TrimSpace(p.SQL) == "" {
			next.err = fmt.Errorf("%w: empty expression on %s", embedded.ErrUnsupportedPredicate, s.table.name)
			return next
		}
		next.raws = append(next.raws, p)
		return next
	default:
		next.err = fmt.Errorf("%w: %T on %s", embedded.ErrUnsupportedPredicate, pred, s.table.name)
		return next
	}

	for _, t := range terms {
		if !s.table.known[t.Column] {
			next.err = fmt.Errorf("%w: unknown column %s on %s", embedded.ErrUnsupportedPredicate, t.Column, s.table.name)
			return next
		}
	}
	next.conds = append(next.conds, terms...)
	return next
}

func (s *scope[R]) Unscoped() embedded.Scope[R] {
	return s.table.All()
}

func (s *scope[R]) Filters() []embedded.Condition {
	return slices.Clone(s.conds)
}

// Order sorts by a comma separated list of "column [asc|desc]" terms.
// Only table columns are accepted.
func (s *scope[R]) Order(expr string) embedded.Scope[R] {
	next := s.clone()
	if next.err != nil {
		return next
	}
	for _, part := range strings.Split(expr, ",") {
		fields := strings.Fields(part)
		if len(fields) == 0 || len(fields) > 2 {
			next.err = fmt.Errorf("sqlite: invalid order %q", expr)
			return next
		}
		if !s.table.known[fields[0]] {
			next.err = fmt.Errorf("sqlite: unknown order column %s on %s", fields[0], s.table.name)
			return next
		}
		term := orderTerm{column: fields[0]}
		if len(fields) == 2 {
			switch strings.ToLower(fields[1]) {
			case "asc":
			case "desc":
				term.desc = true
			default:
				next.err = fmt.Errorf("sqlite: invalid order direction %q", fields[1])
				return next
			}
		}
		next.order = append(next.order, term)
	}
	return next
}

func (s *scope[R]) Limit(n int) embedded.Scope[R] {
	next := s.clone()
	next.limit = n
	return next
}

func (s *scope[R]) Offset(n int) embedded.Scope[R] {
	next := s.clone()
	next.offset = n
	return next
}

func (s *scope[R]) First(ctx context.Context) (R, error) {
	var zero R
	records, err := s.Limit(1).(*scope[R]).Find(ctx)
	if err != nil {
		return zero, err
	}
	if len(records) == 0 {
		return zero, fmt.Errorf("%w: %s", embedded.ErrNotFound, s.table.name)
	}
	return records[0], nil
}

func (s *scope[R]) Find(ctx context.Context) ([]R, error) {
	if s.err != nil {
		return nil, s.err
	}
	query, args := s.selectSQL()

	start := time.Now()
	rows, err := s.table.db.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		err = fmt.Errorf("query %s: %w", s.table.name, err)
		embedded.EmitStoreQuery(ctx, s.table.name, query, time.Since(start), err)
		return nil, err
	}
	defer rows.Close()

	records, err := s.table.scanRows(rows)
	if err != nil {
		err = fmt.Errorf("scan %s: %w", s.table.name, err)
	}
	embedded.EmitStoreQuery(ctx, s.table.name, query, time.Since(start), err)
	return records, err
}

func (s *scope[R]) Count(ctx context.Context) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	where, args := s.whereSQL()
	query := "SELECT COUNT(*) FROM " + quoteIdentifier(s.table.name) + where

	start := time.Now()
	var n int
	err := s.table.db.sqlDB.QueryRowContext(ctx, query, args...).Scan(&n)
	if err != nil {
		err = fmt.Errorf("count %s: %w", s.table.name, err)
	}
	embedded.EmitStoreQuery(ctx, s.table.name, query, time.Since(start), err)
	return n, err
}

func (s *scope[R]) Err() error {
	return s.err
}

func (s *scope[R]) selectSQL() (string, []any) {
	cols := make([]string, len(s.table.columns))
	for i, c := range s.table.columns {
		cols[i] = quoteIdentifier(c)
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(cols, ", "))
	b.WriteString(" FROM ")
	b.WriteString(quoteIdentifier(s.table.name))

	where, args := s.whereSQL()
	b.WriteString(where)

	b.WriteString(" ORDER BY ")
	for _, o := range s.order {
		b.WriteString(quoteIdentifier(o.column))
		if o.desc {
			b.WriteString(" DESC")
		}
		b.WriteString(", ")
	}
	b.WriteString(quoteIdentifier(IDColumn))

	if s.limit >= 0 || s.offset > 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, s.limit)
		if s.offset > 0 {
			b.WriteString(" OFFSET ?")
			args = append(args, s.offset)
		}
	}
	return b.String(), args
}

func (s *scope[R]) whereSQL() (string, []any) {
	var (
		clauses []string
		args    []any
	)
	for _, c := range s.conds {
		if c.Value == nil {
			clauses = append(clauses, quoteIdentifier(c.Column)+" IS NULL")
			continue
		}
		clauses = append(clauses, quoteIdentifier(c.Column)+" = ?")
		args = append(args, c.Value)
	}
	for _, r := range s.raws {
		clauses = append(clauses, "("+r.SQL+")")
		args = append(args, r.Args...)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
