package repository

import (
	"context"

	"github.com/smallbiznis/tradebook/internal/cutoff/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Find(ctx context.Context, db *gorm.DB) (*domain.Window, error) {
	var window domain.Window
	err := db.WithContext(ctx).Raw(
		`SELECT id, window_start, is_closed, closed_at, closed_by, version, updated_at
		 FROM cutoff_windows WHERE id = ?`,
		domain.WindowID,
	).Scan(&window).Error
	if err != nil {
		return nil, err
	}
	if window.ID == 0 {
		return nil, nil
	}
	return &window, nil
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, window domain.Window) (bool, error) {
	window.ID = domain.WindowID
	result := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&window)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, window domain.Window, expectedVersion int64) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE cutoff_windows
		 SET window_start = ?, is_closed = ?, closed_at = ?, closed_by = ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ?`,
		window.WindowStart,
		window.IsClosed,
		window.ClosedAt,
		window.ClosedBy,
		window.UpdatedAt,
		domain.WindowID,
		expectedVersion,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) InsertEvent(ctx context.Context, db *gorm.DB, event *domain.Event) error {
	return db.WithContext(ctx).Create(event).Error
}

func (r *repo) ListEvents(ctx context.Context, db *gorm.DB, limit int) ([]domain.Event, error) {
	var events []domain.Event
	err := db.WithContext(ctx).
		Model(&domain.Event{}).
		Order("occurred_at desc, id desc").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
