package storage

import "strings"

// Op is a comparison operator in a filter predicate.
type Op int

const (
	OpEq Op = iota
	OpGte
	OpLte
	OpContains
)

// Predicate compares a column against a bound value. Column names always come
// from code, never from request input.
type Predicate struct {
	Column string
	Op     Op
	Value  any
}

// Filter is an ordered list of predicates joined with AND.
type Filter struct {
	preds []Predicate
}

// Where starts a filter with the given predicates.
func Where(preds ...Predicate) *Filter {
	return &Filter{preds: preds}
}

func (f *Filter) add(p Predicate) *Filter {
	f.preds = append(f.preds, p)
	return f
}

func (f *Filter) Eq(column string, value any) *Filter {
	return f.add(Predicate{Column: column, Op: OpEq, Value: value})
}

func (f *Filter) Gte(column string, value any) *Filter {
	return f.add(Predicate{Column: column, Op: OpGte, Value: value})
}

func (f *Filter) Lte(column string, value any) *Filter {
	return f.add(Predicate{Column: column, Op: OpLte, Value: value})
}

// Contains matches rows whose column contains s, ignoring case.
func (f *Filter) Contains(column, s string) *Filter {
	return f.add(Predicate{Column: column, Op: OpContains, Value: s})
}

// Len returns the number of predicates.
func (f *Filter) Len() int {
	return len(f.preds)
}

// Build renders the filter as a WHERE clause with ? placeholders and the
// matching argument list. An empty filter renders as an empty string.
func (f *Filter) Build(d Dialect) (string, []any) {
	if len(f.preds) == 0 {
		return "", nil
	}
	conds := make([]string, 0, len(f.preds))
	args := make([]any, 0, len(f.preds))
	for _, p := range f.preds {
		switch p.Op {
		case OpEq:
			conds = append(conds, p.Column+" = ?")
			args = append(args, p.Value)
		case OpGte:
			conds = append(conds, p.Column+" >= ?")
			args = append(args, p.Value)
		case OpLte:
			conds = append(conds, p.Column+" <= ?")
			args = append(args, p.Value)
		case OpContains:
			conds = append(conds, p.Column+" "+d.CaseInsensitiveLike()+` ? ESCAPE '\'`)
			args = append(args, "%"+escapeLike(p.Value.(string))+"%")
		}
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
