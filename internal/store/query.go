package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/roach88/tapdance/internal/ir"
)

// Predicate is a condition on trace entry columns.
//
// Predicates are sealed: only Equals and And implement it. Values are
// always bound as parameters, never interpolated into SQL.
type Predicate interface {
	predicateNode()
}

// Equals matches entries whose field equals a literal.
//
// Field is a filter field name (see FilterFields), not a column name.
// Value must be a string, int64 or bool.
type Equals struct {
	Field string
	Value any
}

func (Equals) predicateNode() {}

// And matches entries satisfying every predicate. An empty And matches
// everything.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// TraceQuery selects entries of one session.
type TraceQuery struct {
	SessionID string
	Filter    Predicate // nil matches every entry
}

type filterField struct {
	column string
	parse  func(string) (any, error)
}

var filterFields = map[string]filterField{
	"kind":        {column: "kind", parse: parseKind},
	"dance":       {column: "dance_name", parse: parseText},
	"category":    {column: "category", parse: parseCategory},
	"phase":       {column: "phase", parse: parsePhase},
	"effect":      {column: "effect", parse: parseEffect},
	"count":       {column: "tap_count", parse: parseInt},
	"pressed":     {column: "pressed", parse: parseBool},
	"interrupted": {column: "interrupted", parse: parseBool},
}

// FilterFields returns the field names accepted by ParseFilter, sorted.
func FilterFields() []string {
	names := make([]string, 0, len(filterFields))
	for name := range filterFields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseFilter builds a conjunction from field=value expressions such as
// "dance=ESC" or "category=SINGLE_HOLD". Values are checked and
// normalized for their field, so "category=single_hold" and
// "effect=down ESC" match what the store recorded.
func ParseFilter(exprs []string) (Predicate, error) {
	if len(exprs) == 0 {
		return nil, nil
	}
	and := And{Predicates: make([]Predicate, 0, len(exprs))}
	for _, expr := range exprs {
		name, raw, ok := strings.Cut(expr, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("filter %q: want field=value", expr)
		}
		field, known := filterFields[name]
		if !known {
			return nil, fmt.Errorf("filter %q: unknown field %q (want one of %s)", expr, name, strings.Join(FilterFields(), ", "))
		}
		v, err := field.parse(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("filter %q: %w", expr, err)
		}
		and.Predicates = append(and.Predicates, Equals{Field: name, Value: v})
	}
	return and, nil
}

// QueryTrace returns the entries of a session matching q.Filter,
// ordered by seq ASC, id COLLATE BINARY ASC.
func (s *Store) QueryTrace(ctx context.Context, q TraceQuery) ([]ir.TraceEntry, error) {
	query, params, err := compileTraceQuery(q)
	if err != nil {
		return nil, fmt.Errorf("compile trace query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query trace: %w", err)
	}
	return scanEntries(rows)
}

// compileTraceQuery renders q as parameterized SQL. Every query is
// scoped to one session and carries the seq order.
func compileTraceQuery(q TraceQuery) (string, []any, error) {
	where, params, err := compilePredicate(q.Filter)
	if err != nil {
		return "", nil, err
	}
	query := selectEntryColumns + "WHERE session_id = ?"
	if where != "" {
		query += " AND " + where
	}
	query += " ORDER BY seq ASC, id COLLATE BINARY ASC"
	return query, append([]any{q.SessionID}, params...), nil
}

// compilePredicate returns "" for a predicate that matches everything.
func compilePredicate(p Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case nil:
		return "", nil, nil
	case Equals:
		return compileEquals(pred)
	case *Equals:
		return compileEquals(*pred)
	case And:
		return compileAnd(pred)
	case *And:
		return compileAnd(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func compileEquals(eq Equals) (string, []any, error) {
	field, ok := filterFields[eq.Field]
	if !ok {
		return "", nil, fmt.Errorf("unknown field %q", eq.Field)
	}
	switch v := eq.Value.(type) {
	case string, int64, bool:
		return field.column + " = ?", []any{v}, nil
	case int:
		return field.column + " = ?", []any{int64(v)}, nil
	default:
		return "", nil, fmt.Errorf("field %s: unsupported value type %T", eq.Field, eq.Value)
	}
}

func compileAnd(and And) (string, []any, error) {
	var parts []string
	var params []any
	for _, pred := range and.Predicates {
		sql, p, err := compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		if sql == "" {
			continue
		}
		parts = append(parts, sql)
		params = append(params, p...)
	}
	if len(parts) == 0 {
		return "", nil, nil
	}
	if len(parts) == 1 {
		return parts[0], params, nil
	}
	return "(" + strings.Join(parts, " AND ") + ")", params, nil
}

func parseText(s string) (any, error) {
	if s == "" {
		return nil, fmt.Errorf("empty value")
	}
	return s, nil
}

func parseKind(s string) (any, error) {
	switch k := ir.TraceKind(s); k {
	case ir.TraceInput, ir.TraceClassify, ir.TraceEffect, ir.TraceReset:
		return string(k), nil
	}
	return nil, fmt.Errorf("invalid kind %q", s)
}

func parseCategory(s string) (any, error) {
	c, err := ir.ParseCategory(strings.ToUpper(s))
	if err != nil {
		return nil, err
	}
	return c.String(), nil
}

func parsePhase(s string) (any, error) {
	switch p := ir.Phase(s); p {
	case ir.PhaseBegin, ir.PhaseEnd:
		return string(p), nil
	}
	return nil, fmt.Errorf("invalid phase %q", s)
}

func parseEffect(s string) (any, error) {
	eff, err := ir.ParseEffect(s)
	if err != nil {
		return nil, err
	}
	return eff.String(), nil
}

func parseInt(s string) (any, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid count %q", s)
	}
	return n, nil
}

func parseBool(s string) (any, error) {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil, fmt.Errorf("invalid bool %q", s)
	}
	return b, nil
}
