package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tradebook/internal/balance/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindTx(ctx context.Context, db *gorm.DB, counterpartyID snowflake.ID, side domain.Side) (*domain.AccountBalance, error) {
	var balance domain.AccountBalance
	err := db.WithContext(ctx).
		Where("counterparty_id = ? AND side = ?", counterpartyID, side).
		Limit(1).
		Find(&balance).Error
	if err != nil {
		return nil, err
	}
	if balance.ID == 0 {
		return nil, nil
	}
	return &balance, nil
}

func (r *repo) InsertTx(ctx context.Context, db *gorm.DB, balance *domain.AccountBalance) error {
	return db.WithContext(ctx).Create(balance).Error
}

func (r *repo) UpdateTx(ctx context.Context, db *gorm.DB, balance domain.AccountBalance, expectedVersion int64) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE account_balances
		SET total_settled = ?, total_collected = ?, current_balance = ?,
			last_settlement_at = ?, last_collection_at = ?,
			version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		balance.TotalSettled,
		balance.TotalCollected,
		balance.CurrentBalance,
		balance.LastSettlementAt,
		balance.LastCollectionAt,
		balance.UpdatedAt,
		balance.ID,
		expectedVersion,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, side domain.Side) ([]domain.AccountBalance, error) {
	stmt := db.WithContext(ctx).Model(&domain.AccountBalance{})
	if side != "" {
		stmt = stmt.Where("side = ?", side)
	}
	var balances []domain.AccountBalance
	if err := stmt.Order("counterparty_id ASC").Find(&balances).Error; err != nil {
		return nil, err
	}
	return balances, nil
}
