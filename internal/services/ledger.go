package services

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Debt is one directed debt between two users, detached from storage.
type Debt struct {
	FromUserID int
	ToUserID   int
	Amount     decimal.Decimal
}

// Ledger accumulates the netted pairwise debts of one group. It enforces
// the single-direction rule: for any pair of users at most one of A→B or
// B→A is held at a time, and every entry is strictly positive. The ledger
// is plain in-memory state; callers replay expenses through PostDebt and
// flush the result to the balances table in one transaction.
type Ledger struct {
	entries map[[2]int]decimal.Decimal
}

func NewLedger() *Ledger {
	return &Ledger{entries: make(map[[2]int]decimal.Decimal)}
}

// PostDebt records that from owes to an additional amount, netting against
// any existing opposite-direction entry first. Non-positive amounts and
// self-debts are ignored.
func (l *Ledger) PostDebt(from, to int, amount decimal.Decimal) {
	if from == to || amount.LessThanOrEqual(decimal.Zero) {
		return
	}

	reverse := [2]int{to, from}
	if r, ok := l.entries[reverse]; ok {
		if r.GreaterThanOrEqual(amount) {
			remaining := r.Sub(amount)
			if remaining.IsZero() {
				delete(l.entries, reverse)
			} else {
				l.entries[reverse] = remaining
			}
			return
		}
		// Opposite debt is smaller: it is consumed entirely and the
		// remainder flips direction.
		amount = amount.Sub(r)
		delete(l.entries, reverse)
	}

	forward := [2]int{from, to}
	if existing, ok := l.entries[forward]; ok {
		l.entries[forward] = existing.Add(amount)
	} else {
		l.entries[forward] = amount
	}
}

// Debts returns the current entries in a deterministic order.
func (l *Ledger) Debts() []Debt {
	debts := make([]Debt, 0, len(l.entries))
	for pair, amount := range l.entries {
		debts = append(debts, Debt{FromUserID: pair[0], ToUserID: pair[1], Amount: amount})
	}
	sort.Slice(debts, func(i, j int) bool {
		if debts[i].FromUserID != debts[j].FromUserID {
			return debts[i].FromUserID < debts[j].FromUserID
		}
		return debts[i].ToUserID < debts[j].ToUserID
	})
	return debts
}

// NetPositions computes each user's net position over a set of debts:
// total owed to them minus total they owe. Positions of users that net to
// zero are omitted.
func NetPositions(debts []Debt) map[int]decimal.Decimal {
	positions := make(map[int]decimal.Decimal)
	for _, d := range debts {
		positions[d.FromUserID] = positions[d.FromUserID].Sub(d.Amount)
		positions[d.ToUserID] = positions[d.ToUserID].Add(d.Amount)
	}
	for id, net := range positions {
		if net.IsZero() {
			delete(positions, id)
		}
	}
	return positions
}

// SimplifyDebts reduces a set of pairwise debts to a minimal transfer list
// by matching the largest debtor against the largest creditor repeatedly.
// The result settles every user's net position using at most N-1 transfers
// for N users with a nonzero position. Chains collapse: A→B and B→C of
// equal size become a single A→C.
func SimplifyDebts(debts []Debt) []Debt {
	positions := NetPositions(debts)

	type position struct {
		userID int
		amount decimal.Decimal
	}

	var creditors, debtors []position
	for id, net := range positions {
		if net.GreaterThan(decimal.Zero) {
			creditors = append(creditors, position{userID: id, amount: net})
		} else {
			debtors = append(debtors, position{userID: id, amount: net.Neg()})
		}
	}

	byAmountDesc := func(p []position) func(i, j int) bool {
		return func(i, j int) bool {
			if !p[i].amount.Equal(p[j].amount) {
				return p[i].amount.GreaterThan(p[j].amount)
			}
			return p[i].userID < p[j].userID
		}
	}
	sort.Slice(creditors, byAmountDesc(creditors))
	sort.Slice(debtors, byAmountDesc(debtors))

	var transfers []Debt
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := debtors[i].amount
		if creditors[j].amount.LessThan(amount) {
			amount = creditors[j].amount
		}

		transfers = append(transfers, Debt{
			FromUserID: debtors[i].userID,
			ToUserID:   creditors[j].userID,
			Amount:     amount,
		})

		debtors[i].amount = debtors[i].amount.Sub(amount)
		creditors[j].amount = creditors[j].amount.Sub(amount)

		if debtors[i].amount.IsZero() {
			i++
		}
		if creditors[j].amount.IsZero() {
			j++
		}
	}

	return transfers
}
