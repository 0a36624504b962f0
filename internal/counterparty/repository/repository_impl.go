package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tradebook/internal/counterparty/domain"
	"github.com/smallbiznis/tradebook/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, counterparty *domain.Counterparty) error {
	return db.WithContext(ctx).Create(counterparty).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Counterparty, error) {
	var counterparty domain.Counterparty
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&counterparty).Error
	if err != nil {
		return nil, err
	}
	if counterparty.ID == 0 {
		return nil, nil
	}
	return &counterparty, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]domain.Counterparty, error) {
	stmt := db.WithContext(ctx).Model(&domain.Counterparty{})
	if filter.Kind != "" {
		stmt = stmt.Where("kind = ?", filter.Kind)
	}
	if filter.Name != "" {
		stmt = stmt.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(filter.Name)+"%")
	}
	if filter.ActiveOnly {
		stmt = stmt.Where("active = ?", true)
	}
	stmt, err := pagination.Apply(stmt, page, "created_at")
	if err != nil {
		return nil, err
	}

	var counterparties []domain.Counterparty
	if err := stmt.Find(&counterparties).Error; err != nil {
		return nil, err
	}
	return counterparties, nil
}

func (r *repo) SetActive(ctx context.Context, db *gorm.DB, id snowflake.ID, active bool, at time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE counterparties SET active = ?, updated_at = ? WHERE id = ?`,
		active,
		at,
		id,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
