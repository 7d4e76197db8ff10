package services

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestResolveSettlement(t *testing.T) {
	tests := []struct {
		name        string
		outstanding decimal.Decimal
		requested   decimal.Decimal
		want        settleAction
		wantErr     error
	}{
		{
			name:        "full payoff clears the row",
			outstanding: d("30"),
			requested:   d("30"),
			want:        settleDeleteRow,
		},
		{
			name:        "partial payoff reduces the row",
			outstanding: d("30"),
			requested:   d("12.50"),
			want:        settleReduceRow,
		},
		{
			name:        "amount above outstanding rejected",
			outstanding: d("30"),
			requested:   d("30.01"),
			wantErr:     ErrExceedsOutstandingDebt,
		},
		{
			name:        "zero amount rejected",
			outstanding: d("30"),
			requested:   d("0"),
			wantErr:     ErrInvalidAmount,
		},
		{
			name:        "negative amount rejected",
			outstanding: d("30"),
			requested:   d("-5"),
			wantErr:     ErrInvalidAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveSettlement(tt.outstanding, tt.requested)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected action %v, got %v", tt.want, got)
			}
		})
	}
}
