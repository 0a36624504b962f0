package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/tradebook/internal/sequence/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, d domain.Domain) (*domain.Counter, error) {
	var counter domain.Counter
	err := db.WithContext(ctx).Raw(
		`SELECT domain, date_key, last_number, version, updated_at
		 FROM sequence_counters WHERE domain = ?`,
		d,
	).Scan(&counter).Error
	if err != nil {
		return nil, err
	}
	if counter.Domain == "" {
		return nil, nil
	}
	return &counter, nil
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, counter domain.Counter) (bool, error) {
	result := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&counter)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) Advance(ctx context.Context, db *gorm.DB, d domain.Domain, dateKey string, lastNumber, expectedVersion int64, at time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE sequence_counters
		 SET date_key = ?, last_number = ?, version = version + 1, updated_at = ?
		 WHERE domain = ? AND version = ?`,
		dateKey,
		lastNumber,
		at,
		d,
		expectedVersion,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]domain.Counter, error) {
	var counters []domain.Counter
	err := db.WithContext(ctx).
		Model(&domain.Counter{}).
		Order("domain asc").
		Find(&counters).Error
	if err != nil {
		return nil, err
	}
	return counters, nil
}
