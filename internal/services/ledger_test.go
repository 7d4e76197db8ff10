package services

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestPostDebtAccumulatesSameDirection(t *testing.T) {
	l := NewLedger()
	l.PostDebt(1, 2, d("30"))
	l.PostDebt(1, 2, d("12.50"))

	debts := l.Debts()
	if len(debts) != 1 {
		t.Fatalf("expected 1 debt, got %d", len(debts))
	}
	if debts[0].FromUserID != 1 || debts[0].ToUserID != 2 {
		t.Errorf("expected direction 1->2, got %d->%d", debts[0].FromUserID, debts[0].ToUserID)
	}
	if !debts[0].Amount.Equal(d("42.50")) {
		t.Errorf("expected amount 42.50, got %s", debts[0].Amount)
	}
}

func TestPostDebtNetsOppositeDirection(t *testing.T) {
	tests := []struct {
		name       string
		existing   Debt
		from, to   int
		amount     decimal.Decimal
		wantFrom   int
		wantTo     int
		wantAmount decimal.Decimal
		wantEmpty  bool
	}{
		{
			name:       "opposite debt larger, direction kept",
			existing:   Debt{FromUserID: 2, ToUserID: 1, Amount: d("50")},
			from:       1,
			to:         2,
			amount:     d("40"),
			wantFrom:   2,
			wantTo:     1,
			wantAmount: d("10"),
		},
		{
			name:       "opposite debt smaller, remainder flips",
			existing:   Debt{FromUserID: 1, ToUserID: 2, Amount: d("20")},
			from:       2,
			to:         1,
			amount:     d("25"),
			wantFrom:   2,
			wantTo:     1,
			wantAmount: d("5"),
		},
		{
			name:       "partial offset leaves reduced entry",
			existing:   Debt{FromUserID: 1, ToUserID: 2, Amount: d("20")},
			from:       2,
			to:         1,
			amount:     d("5"),
			wantFrom:   1,
			wantTo:     2,
			wantAmount: d("15"),
		},
		{
			name:      "exact offset cancels the pair",
			existing:  Debt{FromUserID: 1, ToUserID: 2, Amount: d("20")},
			from:      2,
			to:        1,
			amount:    d("20"),
			wantEmpty: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLedger()
			l.PostDebt(tt.existing.FromUserID, tt.existing.ToUserID, tt.existing.Amount)
			l.PostDebt(tt.from, tt.to, tt.amount)

			debts := l.Debts()
			if tt.wantEmpty {
				if len(debts) != 0 {
					t.Fatalf("expected no debts, got %v", debts)
				}
				return
			}
			if len(debts) != 1 {
				t.Fatalf("expected 1 debt, got %d", len(debts))
			}
			got := debts[0]
			if got.FromUserID != tt.wantFrom || got.ToUserID != tt.wantTo {
				t.Errorf("expected direction %d->%d, got %d->%d", tt.wantFrom, tt.wantTo, got.FromUserID, got.ToUserID)
			}
			if !got.Amount.Equal(tt.wantAmount) {
				t.Errorf("expected amount %s, got %s", tt.wantAmount, got.Amount)
			}
		})
	}
}

func TestPostDebtIgnoresInvalidEntries(t *testing.T) {
	l := NewLedger()
	l.PostDebt(1, 1, d("10"))
	l.PostDebt(1, 2, decimal.Zero)
	l.PostDebt(1, 2, d("-5"))

	if debts := l.Debts(); len(debts) != 0 {
		t.Errorf("expected no debts, got %v", debts)
	}
}

func TestLedgerSingleDirectionInvariant(t *testing.T) {
	l := NewLedger()
	// Interleave postings in both directions between several pairs.
	l.PostDebt(1, 2, d("30"))
	l.PostDebt(2, 1, d("12"))
	l.PostDebt(3, 1, d("7.25"))
	l.PostDebt(1, 3, d("7.25"))
	l.PostDebt(2, 3, d("40"))
	l.PostDebt(3, 2, d("55"))

	seen := make(map[[2]int]bool)
	for _, debt := range l.Debts() {
		if debt.Amount.LessThanOrEqual(decimal.Zero) {
			t.Errorf("non-positive entry %d->%d: %s", debt.FromUserID, debt.ToUserID, debt.Amount)
		}
		if seen[[2]int{debt.ToUserID, debt.FromUserID}] {
			t.Errorf("both directions held for pair %d/%d", debt.FromUserID, debt.ToUserID)
		}
		seen[[2]int{debt.FromUserID, debt.ToUserID}] = true
	}
}

func TestLedgerSharedDinnerScenario(t *testing.T) {
	// User 1 pays 90 for dinner split equally three ways.
	l := NewLedger()
	l.PostDebt(2, 1, d("30"))
	l.PostDebt(3, 1, d("30"))

	debts := l.Debts()
	if len(debts) != 2 {
		t.Fatalf("expected 2 debts, got %d", len(debts))
	}
	for _, debt := range debts {
		if debt.ToUserID != 1 {
			t.Errorf("expected creditor 1, got %d", debt.ToUserID)
		}
		if !debt.Amount.Equal(d("30")) {
			t.Errorf("expected 30, got %s", debt.Amount)
		}
	}
}

func TestDebtsDeterministicOrder(t *testing.T) {
	l := NewLedger()
	l.PostDebt(3, 1, d("5"))
	l.PostDebt(2, 4, d("5"))
	l.PostDebt(2, 1, d("5"))

	debts := l.Debts()
	for i := 1; i < len(debts); i++ {
		prev, cur := debts[i-1], debts[i]
		if prev.FromUserID > cur.FromUserID ||
			(prev.FromUserID == cur.FromUserID && prev.ToUserID > cur.ToUserID) {
			t.Errorf("debts out of order at %d: %v then %v", i, prev, cur)
		}
	}
}

func TestLedgerConservesNonPayerConsumption(t *testing.T) {
	// Replay a mixed set of expenses and check that the netted ledger
	// carries exactly the net position each user accumulated: total debt
	// created equals total non-payer consumption, and netting only moves
	// value between directions, never loses it.
	type expense struct {
		payer  int
		shares []ShareInput
	}
	expenses := []expense{
		{payer: 1, shares: []ShareInput{{1, d("30")}, {2, d("30")}, {3, d("30")}}},
		{payer: 2, shares: []ShareInput{{1, d("40")}, {2, d("40")}}},
		{payer: 3, shares: []ShareInput{{2, d("12.75")}, {3, d("12.75")}}},
	}

	expected := make(map[int]decimal.Decimal)
	l := NewLedger()
	for _, e := range expenses {
		for _, s := range e.shares {
			if s.UserID == e.payer {
				continue
			}
			l.PostDebt(s.UserID, e.payer, s.Share)
			expected[s.UserID] = expected[s.UserID].Sub(s.Share)
			expected[e.payer] = expected[e.payer].Add(s.Share)
		}
	}
	for id, net := range expected {
		if net.IsZero() {
			delete(expected, id)
		}
	}

	got := NetPositions(l.Debts())
	if len(got) != len(expected) {
		t.Fatalf("position sets differ: expected %v, got %v", expected, got)
	}
	for id, net := range expected {
		if !got[id].Equal(net) {
			t.Errorf("user %d: expected net %s, got %s", id, net, got[id])
		}
	}

	// Total debt held by the ledger never exceeds total non-payer
	// consumption; netting can only shrink it.
	consumption := d("30").Add(d("30")).Add(d("40")).Add(d("12.75"))
	ledgerTotal := decimal.Zero
	for _, debt := range l.Debts() {
		ledgerTotal = ledgerTotal.Add(debt.Amount)
	}
	if ledgerTotal.GreaterThan(consumption) {
		t.Errorf("ledger total %s exceeds non-payer consumption %s", ledgerTotal, consumption)
	}
}

func TestLedgerReplayIsDeterministic(t *testing.T) {
	postings := []Debt{
		{FromUserID: 2, ToUserID: 1, Amount: d("30")},
		{FromUserID: 3, ToUserID: 1, Amount: d("30")},
		{FromUserID: 1, ToUserID: 2, Amount: d("40")},
		{FromUserID: 3, ToUserID: 2, Amount: d("26.67")},
	}

	replay := func(order []int) []Debt {
		l := NewLedger()
		for _, i := range order {
			p := postings[i]
			l.PostDebt(p.FromUserID, p.ToUserID, p.Amount)
		}
		return l.Debts()
	}

	first := replay([]int{0, 1, 2, 3})
	second := replay([]int{0, 1, 2, 3})
	reordered := replay([]int{3, 1, 0, 2})

	assertSameDebts := func(a, b []Debt, label string) {
		if len(a) != len(b) {
			t.Fatalf("%s: ledger sizes differ: %v vs %v", label, a, b)
		}
		for i := range a {
			if a[i].FromUserID != b[i].FromUserID || a[i].ToUserID != b[i].ToUserID || !a[i].Amount.Equal(b[i].Amount) {
				t.Errorf("%s: entry %d differs: %v vs %v", label, i, a[i], b[i])
			}
		}
	}

	assertSameDebts(first, second, "repeated replay")
	assertSameDebts(first, reordered, "reordered replay")
}

func TestNetPositions(t *testing.T) {
	debts := []Debt{
		{FromUserID: 2, ToUserID: 1, Amount: d("30")},
		{FromUserID: 3, ToUserID: 1, Amount: d("30")},
		{FromUserID: 1, ToUserID: 3, Amount: d("10")},
	}

	positions := NetPositions(debts)

	if got := positions[1]; !got.Equal(d("50")) {
		t.Errorf("user 1 position: expected 50, got %s", got)
	}
	if got := positions[2]; !got.Equal(d("-30")) {
		t.Errorf("user 2 position: expected -30, got %s", got)
	}
	if got := positions[3]; !got.Equal(d("-20")) {
		t.Errorf("user 3 position: expected -20, got %s", got)
	}

	sum := decimal.Zero
	for _, net := range positions {
		sum = sum.Add(net)
	}
	if !sum.IsZero() {
		t.Errorf("positions do not sum to zero: %s", sum)
	}
}

func TestNetPositionsOmitsSettledUsers(t *testing.T) {
	debts := []Debt{
		{FromUserID: 1, ToUserID: 2, Amount: d("15")},
		{FromUserID: 2, ToUserID: 3, Amount: d("15")},
	}

	positions := NetPositions(debts)
	if _, ok := positions[2]; ok {
		t.Errorf("user 2 nets to zero and should be omitted, got %v", positions)
	}
}

func TestSimplifyDebtsCollapsesChain(t *testing.T) {
	debts := []Debt{
		{FromUserID: 1, ToUserID: 2, Amount: d("10")},
		{FromUserID: 2, ToUserID: 3, Amount: d("10")},
	}

	transfers := SimplifyDebts(debts)
	if len(transfers) != 1 {
		t.Fatalf("expected 1 transfer, got %d: %v", len(transfers), transfers)
	}
	got := transfers[0]
	if got.FromUserID != 1 || got.ToUserID != 3 || !got.Amount.Equal(d("10")) {
		t.Errorf("expected 1->3 for 10, got %d->%d for %s", got.FromUserID, got.ToUserID, got.Amount)
	}
}

func TestSimplifyDebtsPreservesNetPositions(t *testing.T) {
	debts := []Debt{
		{FromUserID: 2, ToUserID: 1, Amount: d("45.50")},
		{FromUserID: 3, ToUserID: 1, Amount: d("20")},
		{FromUserID: 3, ToUserID: 2, Amount: d("12.75")},
		{FromUserID: 4, ToUserID: 3, Amount: d("8")},
		{FromUserID: 1, ToUserID: 4, Amount: d("5")},
	}

	transfers := SimplifyDebts(debts)

	before := NetPositions(debts)
	after := NetPositions(transfers)

	if len(before) != len(after) {
		t.Fatalf("position sets differ: before %v, after %v", before, after)
	}
	for id, net := range before {
		if !after[id].Equal(net) {
			t.Errorf("user %d: expected net %s, got %s", id, net, after[id])
		}
	}

	// At most N-1 transfers for N users with a nonzero position.
	if len(transfers) > len(before)-1 {
		t.Errorf("expected at most %d transfers, got %d", len(before)-1, len(transfers))
	}
}

func TestSimplifyDebtsEmptyInput(t *testing.T) {
	if transfers := SimplifyDebts(nil); len(transfers) != 0 {
		t.Errorf("expected no transfers, got %v", transfers)
	}

	// A fully balanced cycle simplifies to nothing.
	cycle := []Debt{
		{FromUserID: 1, ToUserID: 2, Amount: d("10")},
		{FromUserID: 2, ToUserID: 3, Amount: d("10")},
		{FromUserID: 3, ToUserID: 1, Amount: d("10")},
	}
	if transfers := SimplifyDebts(cycle); len(transfers) != 0 {
		t.Errorf("expected balanced cycle to simplify away, got %v", transfers)
	}
}
