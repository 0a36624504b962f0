package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tradebook/internal/balance/domain"
	"github.com/smallbiznis/tradebook/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("balance.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Get(ctx context.Context, counterpartyID snowflake.ID, side domain.Side) (domain.AccountBalance, error) {
	if !side.Valid() {
		return domain.AccountBalance{}, domain.ErrInvalidSide
	}
	balance, err := s.repo.FindTx(ctx, s.db, counterpartyID, side)
	if err != nil {
		return domain.AccountBalance{}, err
	}
	if balance == nil {
		return domain.AccountBalance{}, domain.ErrBalanceNotFound
	}
	return *balance, nil
}

func (s *Service) List(ctx context.Context, side domain.Side) ([]domain.AccountBalance, error) {
	if side != "" && !side.Valid() {
		return nil, domain.ErrInvalidSide
	}
	return s.repo.List(ctx, s.db, side)
}

func (s *Service) FindTx(ctx context.Context, tx *gorm.DB, counterpartyID snowflake.ID, side domain.Side) (*domain.AccountBalance, error) {
	if !side.Valid() {
		return nil, domain.ErrInvalidSide
	}
	return s.repo.FindTx(ctx, tx, counterpartyID, side)
}

func (s *Service) SaveTx(ctx context.Context, tx *gorm.DB, previous *domain.AccountBalance, next domain.AccountBalance) (domain.AccountBalance, error) {
	if err := next.Verify(); err != nil {
		return domain.AccountBalance{}, err
	}

	if previous == nil {
		if next.ID == 0 {
			next.ID = s.genID.Generate()
		}
		if next.CreatedAt.IsZero() {
			next.CreatedAt = next.UpdatedAt
		}
		next.Version = 1
		if err := s.repo.InsertTx(ctx, tx, &next); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.AccountBalance{}, fmt.Errorf("%w: created concurrently", domain.ErrBalanceConflict)
			}
			return domain.AccountBalance{}, err
		}
		return next, nil
	}

	updated, err := s.repo.UpdateTx(ctx, tx, next, previous.Version)
	if err != nil {
		return domain.AccountBalance{}, err
	}
	if !updated {
		return domain.AccountBalance{}, fmt.Errorf("%w: version %d is stale", domain.ErrBalanceConflict, previous.Version)
	}
	next.Version = previous.Version + 1
	return next, nil
}
