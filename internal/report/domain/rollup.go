package domain

import (
	"sort"

	"github.com/shopspring/decimal"
	orderdomain "github.com/smallbiznis/tradebook/internal/order/domain"
)

// Fact is one line-level observation fed into a rollup.
type Fact struct {
	Key      string
	Label    string
	Phase    orderdomain.Phase
	Quantity decimal.Decimal
	Amount   decimal.Decimal
}

// Accumulate buckets facts by key and by the phase stored on each fact.
// Rows come back sorted by key.
func Accumulate(facts []Fact) ([]RollupRow, Bucket, Bucket, Bucket) {
	index := make(map[string]int)
	rows := make([]RollupRow, 0)
	var regular, additional, total Bucket

	for _, fact := range facts {
		i, ok := index[fact.Key]
		if !ok {
			i = len(rows)
			index[fact.Key] = i
			rows = append(rows, RollupRow{Key: fact.Key, Label: fact.Label})
		}
		row := &rows[i]
		if fact.Phase == orderdomain.PhaseAdditional {
			row.Additional = row.Additional.Add(fact.Quantity, fact.Amount)
			additional = additional.Add(fact.Quantity, fact.Amount)
		} else {
			row.Regular = row.Regular.Add(fact.Quantity, fact.Amount)
			regular = regular.Add(fact.Quantity, fact.Amount)
		}
		row.Total = row.Total.Add(fact.Quantity, fact.Amount)
		total = total.Add(fact.Quantity, fact.Amount)
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })
	return rows, regular, additional, total
}
