package repository

import (
	"context"

	"github.com/smallbiznis/tradebook/internal/payment/domain"
	"github.com/smallbiznis/tradebook/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertTx(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	return db.WithContext(ctx).Create(payment).Error
}

func (r *repo) FindByNumber(ctx context.Context, db *gorm.DB, number string) (*domain.Payment, error) {
	var payment domain.Payment
	err := db.WithContext(ctx).
		Where("document_number = ?", number).
		Limit(1).
		Find(&payment).Error
	if err != nil {
		return nil, err
	}
	if payment.ID == 0 {
		return nil, nil
	}
	return &payment, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]domain.Payment, error) {
	stmt := db.WithContext(ctx).Model(&domain.Payment{})
	if filter.Direction != "" {
		stmt = stmt.Where("direction = ?", filter.Direction)
	}
	if filter.Method != "" {
		stmt = stmt.Where("method = ?", filter.Method)
	}
	if filter.CounterpartyID != nil {
		stmt = stmt.Where("counterparty_id = ?", *filter.CounterpartyID)
	}
	if filter.OccurredFrom != nil {
		stmt = stmt.Where("occurred_at >= ?", *filter.OccurredFrom)
	}
	if filter.OccurredTo != nil {
		stmt = stmt.Where("occurred_at < ?", *filter.OccurredTo)
	}
	stmt, err := pagination.Apply(stmt, page, "occurred_at")
	if err != nil {
		return nil, err
	}

	var payments []domain.Payment
	if err := stmt.Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}
