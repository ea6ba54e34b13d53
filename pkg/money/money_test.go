package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValidateAmount(t *testing.T) {
	t.Run("should accept positive amounts", func(t *testing.T) {
		assert.NoError(t, ValidateAmount(100))
	})

	t.Run("should accept zero", func(t *testing.T) {
		assert.NoError(t, ValidateAmount(0))
	})

	t.Run("should reject negative amounts", func(t *testing.T) {
		err := ValidateAmount(-1)
		assert.ErrorIs(t, err, ErrNegativeAmount)
	})

	t.Run("should reject zero for strictly positive amounts", func(t *testing.T) {
		assert.ErrorIs(t, ValidatePositive(0), ErrZeroAmount)
		assert.ErrorIs(t, ValidatePositive(-5), ErrNegativeAmount)
		assert.NoError(t, ValidatePositive(1))
	})
}

func TestDailyInterest(t *testing.T) {
	t.Run("should round a bond coupon to the nearest penny", func(t *testing.T) {
		// 100,000 * 0.05 / 365 = 13.69... -> 14
		assert.Equal(t, int64(14), DailyInterest(100000, 0.05))
	})

	t.Run("should compute loan interest exactly", func(t *testing.T) {
		// 1,000,000 * 0.05 / 365 = 136.98... -> 137
		assert.Equal(t, int64(137), DailyInterest(1000000, 0.05))
	})

	t.Run("should return zero for zero principal or rate", func(t *testing.T) {
		assert.Equal(t, int64(0), DailyInterest(0, 0.05))
		assert.Equal(t, int64(0), DailyInterest(100000, 0))
	})
}

func TestApplyDiscount(t *testing.T) {
	t.Run("should truncate, never round up", func(t *testing.T) {
		// 50,000 * 0.5 = 25,000 exactly
		assert.Equal(t, int64(25000), ApplyDiscount(50000, 0.5))
		// 101 * 0.5 = 50.5 -> 50
		assert.Equal(t, int64(50), ApplyDiscount(101, 0.5))
	})

	t.Run("should return zero for non-positive inputs", func(t *testing.T) {
		assert.Equal(t, int64(0), ApplyDiscount(-100, 0.5))
		assert.Equal(t, int64(0), ApplyDiscount(100, 0))
	})
}

func TestRoundToPennies(t *testing.T) {
	t.Run("should round half up", func(t *testing.T) {
		assert.Equal(t, int64(14), RoundToPennies(decimal.NewFromFloat(13.5)))
		assert.Equal(t, int64(13), RoundToPennies(decimal.NewFromFloat(13.4)))
	})
}

func TestUnitPrice(t *testing.T) {
	t.Run("should derive price from authoritative total", func(t *testing.T) {
		assert.InDelta(t, 2.5, UnitPrice(1000, 4), 1e-9)
	})

	t.Run("should not divide by zero quantity", func(t *testing.T) {
		assert.Equal(t, 0.0, UnitPrice(1000, 0))
	})
}
