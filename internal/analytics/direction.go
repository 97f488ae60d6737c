// Package analytics derives summaries, breakdowns, trends and budget reports
// from transactions fetched through the storage layer. Every aggregate is
// computed in memory and classified by transaction type, with amounts taken
// as absolute values.
package analytics

import "pocketbook/internal/core"

// Direction selects which side of the ledger a report covers.
type Direction string

const (
	Expenses Direction = "expense"
	Income   Direction = "income"
)

// Type is the transaction type a direction aggregates.
func (d Direction) Type() core.TransactionType {
	if d == Income {
		return core.Income
	}
	return core.Expense
}

// Matches reports whether t belongs to the direction.
func (d Direction) Matches(t core.Transaction) bool {
	return t.Type == d.Type()
}

func (d Direction) String() string { return string(d) }

func filter(txs []core.Transaction, d Direction) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, t := range txs {
		if d.Matches(t) {
			out = append(out, t)
		}
	}
	return out
}
