package services

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestEqualShares(t *testing.T) {
	tests := []struct {
		name         string
		amount       decimal.Decimal
		participants []int
		wantShare    decimal.Decimal
	}{
		{
			name:         "even split",
			amount:       d("90"),
			participants: []int{1, 2, 3},
			wantShare:    d("30"),
		},
		{
			name:         "rounded split",
			amount:       d("100"),
			participants: []int{1, 2, 3},
			wantShare:    d("33.33"),
		},
		{
			name:         "single participant",
			amount:       d("42.50"),
			participants: []int{7},
			wantShare:    d("42.50"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shares := EqualShares(tt.amount, tt.participants)
			if len(shares) != len(tt.participants) {
				t.Fatalf("expected %d shares, got %d", len(tt.participants), len(shares))
			}
			for i, s := range shares {
				if s.UserID != tt.participants[i] {
					t.Errorf("share %d: expected user %d, got %d", i, tt.participants[i], s.UserID)
				}
				if !s.Share.Equal(tt.wantShare) {
					t.Errorf("share %d: expected %s, got %s", i, tt.wantShare, s.Share)
				}
			}
		})
	}

	if shares := EqualShares(d("50"), nil); shares != nil {
		t.Errorf("expected nil shares for no participants, got %v", shares)
	}
}

func TestValidateShares(t *testing.T) {
	tests := []struct {
		name    string
		amount  decimal.Decimal
		shares  []ShareInput
		wantErr error
	}{
		{
			name:   "exact sum",
			amount: d("60"),
			shares: []ShareInput{
				{UserID: 1, Share: d("20")},
				{UserID: 2, Share: d("40")},
			},
		},
		{
			name:   "rounding drift within tolerance",
			amount: d("100"),
			shares: []ShareInput{
				{UserID: 1, Share: d("33.33")},
				{UserID: 2, Share: d("33.33")},
				{UserID: 3, Share: d("33.33")},
			},
		},
		{
			name:   "zero share allowed",
			amount: d("25"),
			shares: []ShareInput{
				{UserID: 1, Share: d("25")},
				{UserID: 2, Share: d("0")},
			},
		},
		{
			name:    "no shares",
			amount:  d("10"),
			shares:  nil,
			wantErr: ErrNoParticipants,
		},
		{
			name:   "duplicate participant",
			amount: d("20"),
			shares: []ShareInput{
				{UserID: 1, Share: d("10")},
				{UserID: 1, Share: d("10")},
			},
			wantErr: ErrSharesMismatch,
		},
		{
			name:   "negative share",
			amount: d("10"),
			shares: []ShareInput{
				{UserID: 1, Share: d("15")},
				{UserID: 2, Share: d("-5")},
			},
			wantErr: ErrSharesMismatch,
		},
		{
			name:   "sum too far from amount",
			amount: d("100"),
			shares: []ShareInput{
				{UserID: 1, Share: d("40")},
				{UserID: 2, Share: d("40")},
			},
			wantErr: ErrSharesMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateShares(tt.amount, tt.shares)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestResolveShares(t *testing.T) {
	members := map[int]bool{1: true, 2: true, 3: true}

	t.Run("explicit shares win", func(t *testing.T) {
		explicit := []ShareInput{
			{UserID: 1, Share: d("10")},
			{UserID: 2, Share: d("20")},
		}
		shares, err := resolveShares(d("30"), []int{1, 2, 3}, explicit, members)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(shares) != 2 {
			t.Fatalf("expected 2 shares, got %d", len(shares))
		}
	})

	t.Run("participants get an equal split", func(t *testing.T) {
		shares, err := resolveShares(d("30"), []int{1, 3}, nil, members)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(shares) != 2 {
			t.Fatalf("expected 2 shares, got %d", len(shares))
		}
		for _, s := range shares {
			if !s.Share.Equal(d("15")) {
				t.Errorf("expected share 15 for user %d, got %s", s.UserID, s.Share)
			}
		}
	})

	t.Run("defaults to whole group", func(t *testing.T) {
		shares, err := resolveShares(d("90"), nil, nil, members)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(shares) != 3 {
			t.Fatalf("expected 3 shares, got %d", len(shares))
		}
	})

	t.Run("non-member participant rejected", func(t *testing.T) {
		_, err := resolveShares(d("20"), []int{1, 99}, nil, members)
		if !errors.Is(err, ErrNotGroupMember) {
			t.Errorf("expected ErrNotGroupMember, got %v", err)
		}
	})

	t.Run("empty group rejected", func(t *testing.T) {
		_, err := resolveShares(d("20"), nil, nil, map[int]bool{})
		if !errors.Is(err, ErrNoParticipants) {
			t.Errorf("expected ErrNoParticipants, got %v", err)
		}
	})
}
