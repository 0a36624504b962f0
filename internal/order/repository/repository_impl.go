package repository

import (
	"context"

	"github.com/smallbiznis/tradebook/internal/order/domain"
	"github.com/smallbiznis/tradebook/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	if err := db.WithContext(ctx).Omit(clause.Associations).Create(order).Error; err != nil {
		return err
	}
	if len(order.Lines) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&order.Lines).Error
}

func (r *repo) FindByNumber(ctx context.Context, db *gorm.DB, number string) (*domain.Order, error) {
	var order domain.Order
	err := db.WithContext(ctx).
		Where("order_number = ?", number).
		Limit(1).
		Find(&order).Error
	if err != nil {
		return nil, err
	}
	if order.ID == 0 {
		return nil, nil
	}

	if err := db.WithContext(ctx).
		Where("order_id = ?", order.ID).
		Order("id ASC").
		Find(&order.Lines).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]domain.Order, error) {
	stmt := db.WithContext(ctx).Model(&domain.Order{})
	if filter.Side != "" {
		stmt = stmt.Where("side = ?", filter.Side)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.Phase != "" {
		stmt = stmt.Where("phase = ?", filter.Phase)
	}
	if filter.CounterpartyID != nil {
		stmt = stmt.Where("counterparty_id = ?", *filter.CounterpartyID)
	}
	if filter.PlacedFrom != nil {
		stmt = stmt.Where("placed_at >= ?", *filter.PlacedFrom)
	}
	if filter.PlacedTo != nil {
		stmt = stmt.Where("placed_at < ?", *filter.PlacedTo)
	}
	stmt, err := pagination.Apply(stmt, page, "placed_at")
	if err != nil {
		return nil, err
	}

	var orders []domain.Order
	if err := stmt.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// ApplyStatus never touches the phase column.
func (r *repo) ApplyStatus(ctx context.Context, db *gorm.DB, change domain.StatusChange) (bool, error) {
	updates := map[string]any{
		"status":     change.To,
		"version":    gorm.Expr("version + 1"),
		"updated_at": change.At,
	}
	switch change.To {
	case domain.StatusConfirmed:
		updates["confirmed_at"] = change.At
	case domain.StatusCompleted:
		updates["completed_at"] = change.At
		updates["ledger_id"] = change.LedgerID
		updates["ledger_number"] = change.LedgerNumber
	case domain.StatusRejected, domain.StatusCancelled, domain.StatusPended:
		updates["reason"] = change.Reason
	}

	result := db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("id = ? AND status = ? AND version = ?", change.OrderID, change.From, change.ExpectedVersion).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
