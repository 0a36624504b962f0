package service

import (
	"context"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	balancedomain "github.com/smallbiznis/tradebook/internal/balance/domain"
	catalogdomain "github.com/smallbiznis/tradebook/internal/catalog/domain"
	"github.com/smallbiznis/tradebook/internal/clock"
	"github.com/smallbiznis/tradebook/internal/config"
	counterpartydomain "github.com/smallbiznis/tradebook/internal/counterparty/domain"
	"github.com/smallbiznis/tradebook/internal/errs"
	orderdomain "github.com/smallbiznis/tradebook/internal/order/domain"
	paymentdomain "github.com/smallbiznis/tradebook/internal/payment/domain"
	"github.com/smallbiznis/tradebook/internal/report/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Config   config.Config
	Catalog  catalogdomain.Lookup
	Balances balancedomain.Service
	// Directory names supplier and counterparty rows. Without it rows
	// are labeled by id.
	Directory counterpartydomain.Directory   `optional:"true"`
	Policy    *config.SettlementPolicyHolder `optional:"true"`
}

type Engine struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	loc      *time.Location
	catalog  catalogdomain.Lookup
	balances balancedomain.Service
	names    counterpartydomain.Directory
	policy   *config.SettlementPolicyHolder
}

func New(p Params) domain.Engine {
	return &Engine{
		db:       p.DB,
		log:      p.Log.Named("report.service"),
		clock:    p.Clock,
		loc:      p.Config.Location(),
		catalog:  p.Catalog,
		balances: p.Balances,
		names:    p.Directory,
		policy:   p.Policy,
	}
}

type lineFact struct {
	ProductID      snowflake.ID
	ProductCode    string
	Category       string
	SupplierID     *snowflake.ID
	Quantity       decimal.Decimal
	Amount         decimal.Decimal
	Phase          orderdomain.Phase
	CounterpartyID snowflake.ID
	At             time.Time
}

func (e *Engine) RollupLedgers(ctx context.Context, req domain.RollupRequest) (domain.Rollup, error) {
	if err := req.Validate(); err != nil {
		return domain.Rollup{}, err
	}

	stmt := e.db.WithContext(ctx).
		Table("ledger_lines AS ll").
		Select(`ll.product_id, ll.product_code, ll.category, ll.supplier_id,
			ll.quantity, ll.line_total AS amount,
			l.phase, l.counterparty_id, l.settled_at AS at`).
		Joins("JOIN ledgers AS l ON l.id = ll.ledger_id").
		Where("l.side = ? AND l.settled_at >= ? AND l.settled_at < ?", req.Side, req.From.UTC(), req.To.UTC())
	if req.CounterpartyID != nil {
		stmt = stmt.Where("l.counterparty_id = ?", *req.CounterpartyID)
	}
	if req.Category != "" {
		stmt = stmt.Where("ll.category = ?", req.Category)
	}
	if req.SupplierID != nil {
		stmt = stmt.Where("ll.supplier_id = ?", *req.SupplierID)
	}
	if req.ProductID != nil {
		stmt = stmt.Where("ll.product_id = ?", *req.ProductID)
	}

	var facts []lineFact
	if err := stmt.Scan(&facts).Error; err != nil {
		return domain.Rollup{}, err
	}
	return e.rollup(ctx, req, facts)
}

// RollupOrders reports demand as placed, before shipping adjustments.
// Category and supplier come from the current catalog.
func (e *Engine) RollupOrders(ctx context.Context, req domain.RollupRequest) (domain.Rollup, error) {
	if err := req.Validate(); err != nil {
		return domain.Rollup{}, err
	}

	stmt := e.db.WithContext(ctx).
		Table("order_lines AS ol").
		Select(`ol.product_id, ol.quantity, ol.line_total AS amount,
			o.phase, o.counterparty_id, o.placed_at AS at`).
		Joins("JOIN orders AS o ON o.id = ol.order_id").
		Where("o.side = ? AND o.placed_at >= ? AND o.placed_at < ?", req.Side, req.From.UTC(), req.To.UTC()).
		Where("o.status NOT IN ?", []orderdomain.Status{orderdomain.StatusCancelled, orderdomain.StatusRejected})
	if req.CounterpartyID != nil {
		stmt = stmt.Where("o.counterparty_id = ?", *req.CounterpartyID)
	}
	if req.ProductID != nil {
		stmt = stmt.Where("ol.product_id = ?", *req.ProductID)
	}

	var facts []lineFact
	if err := stmt.Scan(&facts).Error; err != nil {
		return domain.Rollup{}, err
	}

	ids := make([]snowflake.ID, 0, len(facts))
	seen := make(map[snowflake.ID]struct{}, len(facts))
	for _, f := range facts {
		if _, ok := seen[f.ProductID]; !ok {
			seen[f.ProductID] = struct{}{}
			ids = append(ids, f.ProductID)
		}
	}
	products, err := e.catalog.FindByIDs(ctx, e.db, ids)
	if err != nil {
		return domain.Rollup{}, err
	}

	uncategorized := e.policy.Get().Settlement.UncategorizedLabel
	filtered := facts[:0]
	for _, f := range facts {
		f.Category = uncategorized
		if product, ok := products[f.ProductID]; ok {
			f.ProductCode = product.Code
			if product.Category != "" {
				f.Category = product.Category
			}
			f.SupplierID = product.SupplierID
		}
		if req.Category != "" && f.Category != req.Category {
			continue
		}
		if req.SupplierID != nil && (f.SupplierID == nil || *f.SupplierID != *req.SupplierID) {
			continue
		}
		filtered = append(filtered, f)
	}
	return e.rollup(ctx, req, filtered)
}

func (e *Engine) rollup(ctx context.Context, req domain.RollupRequest, facts []lineFact) (domain.Rollup, error) {
	groupBy := req.GroupBy
	if groupBy == "" {
		groupBy = domain.GroupByCategory
	}

	names := make(map[snowflake.ID]string)
	out := make([]domain.Fact, 0, len(facts))
	for _, f := range facts {
		key, label := e.groupKey(groupBy, f)
		if id, ok := partyOf(groupBy, f); ok {
			name, err := e.partyName(ctx, names, id)
			if err != nil {
				return domain.Rollup{}, err
			}
			label = name
		}
		out = append(out, domain.Fact{
			Key:      key,
			Label:    label,
			Phase:    f.Phase,
			Quantity: f.Quantity,
			Amount:   f.Amount,
		})
	}
	rows, regular, additional, total := domain.Accumulate(out)
	return domain.Rollup{
		Side:       req.Side,
		GroupBy:    groupBy,
		From:       req.From.UTC(),
		To:         req.To.UTC(),
		Rows:       rows,
		Regular:    regular,
		Additional: additional,
		Total:      total,
	}, nil
}

// partyOf returns the counterparty a row is grouped by, if any.
func partyOf(groupBy domain.GroupBy, f lineFact) (snowflake.ID, bool) {
	switch groupBy {
	case domain.GroupBySupplier:
		if f.SupplierID == nil {
			return 0, false
		}
		return *f.SupplierID, true
	case domain.GroupByCounterparty:
		return f.CounterpartyID, true
	default:
		return 0, false
	}
}

// partyName resolves id through the directory, caching per rollup. A
// counterparty that no longer exists keeps its id as the label.
func (e *Engine) partyName(ctx context.Context, cache map[snowflake.ID]string, id snowflake.ID) (string, error) {
	if name, ok := cache[id]; ok {
		return name, nil
	}
	name := id.String()
	if e.names != nil {
		cp, err := e.names.Lookup(ctx, e.db.WithContext(ctx), id)
		switch {
		case err == nil:
			name = cp.Name
		case !errs.IsNotFound(err):
			return "", err
		}
	}
	cache[id] = name
	return name, nil
}

func (e *Engine) groupKey(groupBy domain.GroupBy, f lineFact) (string, string) {
	switch groupBy {
	case domain.GroupBySupplier:
		if f.SupplierID == nil {
			return "none", "none"
		}
		return f.SupplierID.String(), f.SupplierID.String()
	case domain.GroupByProduct:
		label := f.ProductCode
		if label == "" {
			label = f.ProductID.String()
		}
		return f.ProductID.String(), label
	case domain.GroupByCounterparty:
		return f.CounterpartyID.String(), f.CounterpartyID.String()
	case domain.GroupByDay:
		day := f.At.In(e.loc).Format("2006-01-02")
		return day, day
	default:
		return f.Category, f.Category
	}
}

func (e *Engine) SummarizePayments(ctx context.Context, req domain.PaymentSummaryRequest) (domain.PaymentSummary, error) {
	if !req.Direction.Valid() {
		return domain.PaymentSummary{}, domain.ErrInvalidDirection
	}
	if req.From.IsZero() || req.To.IsZero() || !req.From.Before(req.To) {
		return domain.PaymentSummary{}, domain.ErrInvalidRange
	}

	stmt := e.db.WithContext(ctx).
		Model(&paymentdomain.Payment{}).
		Where("direction = ? AND occurred_at >= ? AND occurred_at < ?", req.Direction, req.From.UTC(), req.To.UTC())
	if req.CounterpartyID != nil {
		stmt = stmt.Where("counterparty_id = ?", *req.CounterpartyID)
	}
	var payments []paymentdomain.Payment
	if err := stmt.Find(&payments).Error; err != nil {
		return domain.PaymentSummary{}, err
	}

	byMethod := make(map[paymentdomain.Method]*domain.MethodTotal)
	summary := domain.PaymentSummary{
		Direction: req.Direction,
		From:      req.From.UTC(),
		To:        req.To.UTC(),
		Total:     decimal.Zero,
	}
	for _, p := range payments {
		mt, ok := byMethod[p.Method]
		if !ok {
			mt = &domain.MethodTotal{Method: p.Method, Amount: decimal.Zero}
			byMethod[p.Method] = mt
		}
		mt.Count++
		mt.Amount = mt.Amount.Add(p.Amount)
		summary.Count++
		summary.Total = summary.Total.Add(p.Amount)
	}
	for _, mt := range byMethod {
		summary.Methods = append(summary.Methods, *mt)
	}
	sort.Slice(summary.Methods, func(i, j int) bool { return summary.Methods[i].Method < summary.Methods[j].Method })
	return summary, nil
}

// Statement reads inside one transaction so the derived and stored
// balances come from the same snapshot.
func (e *Engine) Statement(ctx context.Context, req domain.StatementRequest) (domain.Statement, error) {
	if req.CounterpartyID == 0 {
		return domain.Statement{}, domain.ErrInvalidCounterparty
	}
	if !req.Side.Valid() {
		return domain.Statement{}, domain.ErrInvalidSide
	}
	if req.Start.IsZero() || req.End.IsZero() || !req.Start.Before(req.End) {
		return domain.Statement{}, domain.ErrInvalidRange
	}
	start, end := req.Start.UTC(), req.End.UTC()
	direction := paymentDirection(req.Side)

	stmt := domain.Statement{
		CounterpartyID: req.CounterpartyID,
		Side:           req.Side,
		Start:          start,
		End:            end,
	}
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		settledBefore, err := sumBefore(ctx, tx,
			`SELECT COALESCE(SUM(total_amount), 0) FROM ledgers
			WHERE counterparty_id = ? AND side = ? AND settled_at < ?`,
			req.CounterpartyID, req.Side, start)
		if err != nil {
			return err
		}
		collectedBefore, err := sumBefore(ctx, tx,
			`SELECT COALESCE(SUM(amount), 0) FROM payments
			WHERE counterparty_id = ? AND direction = ? AND occurred_at < ?`,
			req.CounterpartyID, direction, start)
		if err != nil {
			return err
		}
		stmt.PreviousBalance = settledBefore.Sub(collectedBefore)

		var ledgers []struct {
			LedgerNumber string
			TotalAmount  decimal.Decimal
			SettledAt    time.Time
		}
		if err := tx.WithContext(ctx).
			Table("ledgers").
			Select("ledger_number, total_amount, settled_at").
			Where("counterparty_id = ? AND side = ? AND settled_at >= ? AND settled_at < ?",
				req.CounterpartyID, req.Side, start, end).
			Scan(&ledgers).Error; err != nil {
			return err
		}

		var payments []paymentdomain.Payment
		if err := tx.WithContext(ctx).
			Where("counterparty_id = ? AND direction = ? AND occurred_at >= ? AND occurred_at < ?",
				req.CounterpartyID, direction, start, end).
			Find(&payments).Error; err != nil {
			return err
		}

		entries := make([]domain.Entry, 0, len(ledgers)+len(payments))
		for _, l := range ledgers {
			entries = append(entries, domain.Entry{
				Kind:           domain.EntrySettlement,
				DocumentNumber: l.LedgerNumber,
				OccurredAt:     l.SettledAt.UTC(),
				Debit:          l.TotalAmount,
				Credit:         decimal.Zero,
			})
		}
		for _, p := range payments {
			entries = append(entries, domain.Entry{
				Kind:           domain.EntryPayment,
				DocumentNumber: p.DocumentNumber,
				OccurredAt:     p.OccurredAt.UTC(),
				Debit:          decimal.Zero,
				Credit:         p.Amount,
			})
		}
		stmt.Entries, stmt.TotalSettled, stmt.TotalCollected, stmt.ClosingBalance =
			domain.BuildStatement(stmt.PreviousBalance, entries)

		if end.Before(e.clock.Now()) {
			return nil
		}
		stored := decimal.Zero
		balance, err := e.balances.FindTx(ctx, tx, req.CounterpartyID, req.Side.BalanceSide())
		if err != nil {
			return err
		}
		if balance != nil {
			stored = balance.CurrentBalance
		}
		consistent := stmt.ClosingBalance.Equal(stored)
		stmt.StoredBalance = &stored
		stmt.Consistent = &consistent
		return nil
	})
	if err != nil {
		return domain.Statement{}, err
	}

	if stmt.Consistent != nil && !*stmt.Consistent {
		e.log.Warn("statement diverges from stored balance",
			zap.String("counterparty_id", req.CounterpartyID.String()),
			zap.String("side", string(req.Side)),
			zap.String("derived", stmt.ClosingBalance.String()),
			zap.String("stored", stmt.StoredBalance.String()),
		)
	}
	return stmt, nil
}

func sumBefore(ctx context.Context, tx *gorm.DB, query string, args ...any) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	if err := tx.WithContext(ctx).Raw(query, args...).Row().Scan(&total); err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

func paymentDirection(side orderdomain.Side) paymentdomain.Direction {
	if side == orderdomain.SidePurchase {
		return paymentdomain.DirectionPayout
	}
	return paymentdomain.DirectionCollection
}
