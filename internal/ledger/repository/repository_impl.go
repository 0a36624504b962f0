package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tradebook/internal/ledger/domain"
	"github.com/smallbiznis/tradebook/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertTx(ctx context.Context, db *gorm.DB, ledger *domain.Ledger) error {
	if err := db.WithContext(ctx).Omit(clause.Associations).Create(ledger).Error; err != nil {
		return err
	}
	if len(ledger.Lines) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&ledger.Lines).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Ledger, error) {
	return r.findOne(ctx, db, "id = ?", id)
}

func (r *repo) FindByNumber(ctx context.Context, db *gorm.DB, number string) (*domain.Ledger, error) {
	return r.findOne(ctx, db, "ledger_number = ?", number)
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, query string, arg any) (*domain.Ledger, error) {
	var ledger domain.Ledger
	err := db.WithContext(ctx).
		Where(query, arg).
		Limit(1).
		Find(&ledger).Error
	if err != nil {
		return nil, err
	}
	if ledger.ID == 0 {
		return nil, nil
	}
	if err := db.WithContext(ctx).
		Where("ledger_id = ?", ledger.ID).
		Order("id ASC").
		Find(&ledger.Lines).Error; err != nil {
		return nil, err
	}
	return &ledger, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]domain.Ledger, error) {
	stmt := db.WithContext(ctx).Model(&domain.Ledger{})
	if filter.Side != "" {
		stmt = stmt.Where("side = ?", filter.Side)
	}
	if filter.Phase != "" {
		stmt = stmt.Where("phase = ?", filter.Phase)
	}
	if filter.CounterpartyID != nil {
		stmt = stmt.Where("counterparty_id = ?", *filter.CounterpartyID)
	}
	if filter.SettledFrom != nil {
		stmt = stmt.Where("settled_at >= ?", *filter.SettledFrom)
	}
	if filter.SettledTo != nil {
		stmt = stmt.Where("settled_at < ?", *filter.SettledTo)
	}
	stmt, err := pagination.Apply(stmt, page, "settled_at")
	if err != nil {
		return nil, err
	}

	var ledgers []domain.Ledger
	if err := stmt.Find(&ledgers).Error; err != nil {
		return nil, err
	}
	return ledgers, nil
}
