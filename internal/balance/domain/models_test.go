package domain_test

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tradebook/internal/balance/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplySettlementAndCollection(t *testing.T) {
	at := time.Date(2025, 10, 17, 3, 0, 0, 0, time.UTC)
	b := domain.AccountBalance{
		TotalSettled:   decimal.NewFromInt(100000),
		TotalCollected: decimal.NewFromInt(30000),
		CurrentBalance: decimal.NewFromInt(70000),
	}

	b = domain.ApplySettlement(b, decimal.NewFromInt(20000), at)
	assert.True(t, b.CurrentBalance.Equal(decimal.NewFromInt(90000)))
	require.NotNil(t, b.LastSettlementAt)
	assert.Equal(t, at, *b.LastSettlementAt)

	b = domain.ApplyCollection(b, decimal.NewFromInt(90000), at.Add(time.Hour))
	assert.True(t, b.CurrentBalance.IsZero())
	assert.True(t, b.TotalCollected.Equal(decimal.NewFromInt(120000)))
	require.NotNil(t, b.LastCollectionAt)
	require.NoError(t, b.Verify())
}

func TestVerifyDetectsDrift(t *testing.T) {
	b := domain.AccountBalance{
		TotalSettled:   decimal.NewFromInt(10),
		TotalCollected: decimal.NewFromInt(3),
		CurrentBalance: decimal.NewFromInt(8),
	}
	assert.ErrorIs(t, b.Verify(), domain.ErrInvariantViolated)
}

func TestBalanceInvariantHoldsForAnySequence(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("current equals settled minus collected", prop.ForAll(
		func(amounts []int64, kinds []bool) bool {
			at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
			var b domain.AccountBalance
			for i, raw := range amounts {
				amount := decimal.New(raw, -2)
				if i < len(kinds) && kinds[i] {
					b = domain.ApplyCollection(b, amount, at)
				} else {
					b = domain.ApplySettlement(b, amount, at)
				}
				if b.Verify() != nil {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Int64Range(0, 10_000_000)),
		gen.SliceOf(gen.Bool()),
	))

	properties.TestingRun(t)
}
