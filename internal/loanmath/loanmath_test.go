package loanmath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// EMI
// ==========================

func TestEMI(t *testing.T) {
	tests := []struct {
		name      string
		principal float64
		rate      float64
		tenure    int
		check     func(t *testing.T, emi float64)
	}{
		{
			name:      "standard reducing balance loan",
			principal: 500000,
			rate:      16,
			tenure:    12,
			check: func(t *testing.T, emi float64) {
				assert.InDelta(t, 45365, emi, 10)
			},
		},
		{
			name:      "zero rate degrades to straight line",
			principal: 120000,
			rate:      0,
			tenure:    12,
			check: func(t *testing.T, emi float64) {
				assert.InDelta(t, 10000, emi, 0.01)
			},
		},
		{
			name:      "single month tenure exceeds principal",
			principal: 100000,
			rate:      16,
			tenure:    1,
			check: func(t *testing.T, emi float64) {
				assert.Greater(t, emi, 100000.0)
			},
		},
		{
			name:      "zero tenure",
			principal: 100000,
			rate:      16,
			tenure:    0,
			check: func(t *testing.T, emi float64) {
				assert.Zero(t, emi)
			},
		},
		{
			name:      "zero principal",
			principal: 0,
			rate:      16,
			tenure:    12,
			check: func(t *testing.T, emi float64) {
				assert.Zero(t, emi)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, EMI(tt.principal, tt.rate, tt.tenure))
		})
	}
}

func TestEMI_LongerTenureLowersInstallment(t *testing.T) {
	short := EMI(500000, 16, 12)
	long := EMI(500000, 16, 24)
	assert.Less(t, long, short)
}

// ==========================
// Effective APR
// ==========================

func TestEffectiveAPR(t *testing.T) {
	t.Run("zero fee converges to nominal rate", func(t *testing.T) {
		apr := EffectiveAPR(500000, 16, 0, 12)
		assert.InDelta(t, 16, apr, 0.5)
	})

	t.Run("processing fee raises effective rate above nominal", func(t *testing.T) {
		apr := EffectiveAPR(500000, 16, 10000, 12)
		assert.Greater(t, apr, 16.0)
		assert.Less(t, apr, 25.0)
	})

	t.Run("heavy fee dominates the rate", func(t *testing.T) {
		apr := EffectiveAPR(500000, 16, 50000, 12)
		assert.Greater(t, apr, 21.0)
	})

	t.Run("zero rate with fee still yields positive APR", func(t *testing.T) {
		apr := EffectiveAPR(500000, 0, 10000, 12)
		assert.Greater(t, apr, 0.0)
	})

	t.Run("fee consuming the principal", func(t *testing.T) {
		assert.Zero(t, EffectiveAPR(100000, 16, 100000, 12))
	})

	t.Run("effective rate grows with the fee", func(t *testing.T) {
		low := EffectiveAPR(500000, 16, 5000, 12)
		high := EffectiveAPR(500000, 16, 15000, 12)
		assert.Greater(t, high, low)
	})
}

// ==========================
// Amortization schedule
// ==========================

func TestSchedule(t *testing.T) {
	principal := 500000.0
	rows := Schedule(principal, 16, 12)
	require.Len(t, rows, 12)

	t.Run("interest decreases and principal increases", func(t *testing.T) {
		for i := 1; i < len(rows); i++ {
			assert.Less(t, rows[i].Interest, rows[i-1].Interest, "month %d", rows[i].Month)
			assert.Greater(t, rows[i].Principal, rows[i-1].Principal, "month %d", rows[i].Month)
		}
	})

	t.Run("principal components sum to the loan amount", func(t *testing.T) {
		var sum float64
		for _, row := range rows {
			sum += row.Principal
		}
		assert.InDelta(t, principal, sum, 1)
	})

	t.Run("closing balance reaches zero", func(t *testing.T) {
		assert.InDelta(t, 0, rows[len(rows)-1].Balance, 0.5)
	})

	t.Run("months run 1 through n", func(t *testing.T) {
		for i, row := range rows {
			assert.Equal(t, i+1, row.Month)
		}
	})
}

func TestSchedule_ZeroRate(t *testing.T) {
	rows := Schedule(120000, 0, 12)
	require.Len(t, rows, 12)
	for _, row := range rows {
		assert.Zero(t, row.Interest)
		assert.InDelta(t, 10000, row.Principal, 0.01)
	}
	assert.True(t, math.Abs(rows[11].Balance) < 0.01)
}

func TestSchedule_InvalidInput(t *testing.T) {
	assert.Nil(t, Schedule(0, 16, 12))
	assert.Nil(t, Schedule(100000, 16, 0))
}

func TestTotalRepayment(t *testing.T) {
	total := TotalRepayment(500000, 16, 12)
	assert.Greater(t, total, 500000.0)
	assert.InDelta(t, EMI(500000, 16, 12)*12, total, 0.001)
}
