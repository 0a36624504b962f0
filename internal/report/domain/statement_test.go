package domain_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	orderdomain "github.com/smallbiznis/tradebook/internal/order/domain"
	"github.com/smallbiznis/tradebook/internal/report/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)

func settlement(number string, at time.Time, amount int64) domain.Entry {
	return domain.Entry{
		Kind:           domain.EntrySettlement,
		DocumentNumber: number,
		OccurredAt:     at,
		Debit:          decimal.NewFromInt(amount),
		Credit:         decimal.Zero,
	}
}

func collection(number string, at time.Time, amount int64) domain.Entry {
	return domain.Entry{
		Kind:           domain.EntryPayment,
		DocumentNumber: number,
		OccurredAt:     at,
		Debit:          decimal.Zero,
		Credit:         decimal.NewFromInt(amount),
	}
}

func TestBuildStatementRunsBalanceAndReverses(t *testing.T) {
	entries := []domain.Entry{
		collection("CL-251003-001", base.Add(48*time.Hour), 30000),
		settlement("SL-251001-001", base, 100000),
		settlement("SL-251005-001", base.Add(96*time.Hour), 20000),
	}

	out, debit, credit, closing := domain.BuildStatement(decimal.NewFromInt(5000), entries)

	require.Len(t, out, 3)
	assert.Equal(t, "SL-251005-001", out[0].DocumentNumber)
	assert.Equal(t, "SL-251001-001", out[2].DocumentNumber)
	assert.True(t, out[2].Balance.Equal(decimal.NewFromInt(105000)))
	assert.True(t, out[1].Balance.Equal(decimal.NewFromInt(75000)))
	assert.True(t, out[0].Balance.Equal(decimal.NewFromInt(95000)))
	assert.True(t, debit.Equal(decimal.NewFromInt(120000)))
	assert.True(t, credit.Equal(decimal.NewFromInt(30000)))
	assert.True(t, closing.Equal(decimal.NewFromInt(95000)))
	// input is left untouched
	assert.Equal(t, "CL-251003-001", entries[0].DocumentNumber)
}

func TestBuildStatementTieBreaksBySequence(t *testing.T) {
	at := base.Add(time.Hour)
	entries := []domain.Entry{
		settlement("SL-251001-010", at, 1),
		collection("CL-251001-002", at, 1),
		settlement("SL-251001-002", at, 1),
		settlement("SL-251001-1000", at, 1),
	}

	out, _, _, _ := domain.BuildStatement(decimal.Zero, entries)

	// newest first, so the ascending order reads bottom-up
	got := []string{out[3].DocumentNumber, out[2].DocumentNumber, out[1].DocumentNumber, out[0].DocumentNumber}
	assert.Equal(t, []string{"CL-251001-002", "SL-251001-002", "SL-251001-010", "SL-251001-1000"}, got)
}

func TestBuildStatementEmpty(t *testing.T) {
	out, debit, credit, closing := domain.BuildStatement(decimal.NewFromInt(42), nil)
	assert.Empty(t, out)
	assert.True(t, debit.IsZero())
	assert.True(t, credit.IsZero())
	assert.True(t, closing.Equal(decimal.NewFromInt(42)))
}

func TestStatementSplitIdentity(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("splitting the range at any point gives the same closing balance", prop.ForAll(
		func(offsets []int64, amounts []int64, split int64, previous int64) bool {
			n := len(offsets)
			if len(amounts) < n {
				n = len(amounts)
			}
			splitAt := base.Add(time.Duration(split) * time.Minute)

			var all, before, after []domain.Entry
			for i := 0; i < n; i++ {
				at := base.Add(time.Duration(offsets[i]) * time.Minute)
				var e domain.Entry
				if amounts[i] >= 0 {
					e = settlement(fmt.Sprintf("SL-251001-%03d", i+1), at, amounts[i])
				} else {
					e = collection(fmt.Sprintf("CL-251001-%03d", i+1), at, -amounts[i])
				}
				all = append(all, e)
				if at.Before(splitAt) {
					before = append(before, e)
				} else {
					after = append(after, e)
				}
			}

			prev := decimal.New(previous, -2)
			_, _, _, whole := domain.BuildStatement(prev, all)
			_, _, _, mid := domain.BuildStatement(prev, before)
			_, _, _, closing := domain.BuildStatement(mid, after)

			_, debit, credit, _ := domain.BuildStatement(decimal.Zero, all)
			return whole.Equal(closing) && whole.Equal(prev.Add(debit).Sub(credit))
		},
		gen.SliceOf(gen.Int64Range(0, 30*24*60-1)),
		gen.SliceOf(gen.Int64Range(-1_000_000, 1_000_000)),
		gen.Int64Range(0, 30*24*60),
		gen.Int64Range(-10_000_000, 10_000_000),
	))

	properties.TestingRun(t)
}

func TestAccumulateBucketsByStoredPhase(t *testing.T) {
	facts := []domain.Fact{
		{Key: "snacks", Label: "snacks", Phase: orderdomain.PhaseRegular, Quantity: decimal.NewFromInt(2), Amount: decimal.NewFromInt(200)},
		{Key: "drinks", Label: "drinks", Phase: orderdomain.PhaseAdditional, Quantity: decimal.NewFromInt(1), Amount: decimal.NewFromInt(50)},
		{Key: "snacks", Label: "snacks", Phase: orderdomain.PhaseAdditional, Quantity: decimal.NewFromInt(3), Amount: decimal.NewFromInt(300)},
	}

	rows, regular, additional, total := domain.Accumulate(facts)

	require.Len(t, rows, 2)
	assert.Equal(t, "drinks", rows[0].Key)
	assert.Equal(t, "snacks", rows[1].Key)
	assert.True(t, rows[1].Regular.Amount.Equal(decimal.NewFromInt(200)))
	assert.True(t, rows[1].Additional.Quantity.Equal(decimal.NewFromInt(3)))
	assert.True(t, rows[1].Total.Amount.Equal(decimal.NewFromInt(500)))
	assert.True(t, regular.Amount.Equal(decimal.NewFromInt(200)))
	assert.True(t, additional.Amount.Equal(decimal.NewFromInt(350)))
	assert.True(t, total.Quantity.Equal(decimal.NewFromInt(6)))
}

func TestRollupRequestValidate(t *testing.T) {
	ok := domain.RollupRequest{Side: orderdomain.SideSales, From: base, To: base.Add(time.Hour)}
	assert.NoError(t, ok.Validate())

	bad := ok
	bad.To = bad.From
	assert.ErrorIs(t, bad.Validate(), domain.ErrInvalidRange)

	bad = ok
	bad.GroupBy = "week"
	assert.ErrorIs(t, bad.Validate(), domain.ErrInvalidGroupBy)

	bad = ok
	bad.Side = "rental"
	assert.ErrorIs(t, bad.Validate(), domain.ErrInvalidSide)
}
