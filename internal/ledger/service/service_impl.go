package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tradebook/internal/ledger/domain"
	"github.com/smallbiznis/tradebook/pkg/db"
	"github.com/smallbiznis/tradebook/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo domain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo domain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("ledger.service"),
		repo: p.Repo,
	}
}

func (s *Service) Get(ctx context.Context, id string) (domain.Ledger, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || parsed == 0 {
		return domain.Ledger{}, domain.ErrInvalidID
	}
	ledger, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return domain.Ledger{}, err
	}
	if ledger == nil {
		return domain.Ledger{}, domain.ErrLedgerNotFound
	}
	return *ledger, nil
}

func (s *Service) GetByNumber(ctx context.Context, number string) (domain.Ledger, error) {
	ledger, err := s.repo.FindByNumber(ctx, s.db, strings.TrimSpace(number))
	if err != nil {
		return domain.Ledger{}, err
	}
	if ledger == nil {
		return domain.Ledger{}, domain.ErrLedgerNotFound
	}
	return *ledger, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	items, err := s.repo.List(ctx, s.db, req.ListFilter, req.Pagination)
	if err != nil {
		return domain.ListResponse{}, err
	}
	items, pageInfo := pagination.Trim(items, req.Pagination, func(l domain.Ledger) pagination.Cursor {
		return pagination.Cursor{ID: int64(l.ID), At: l.SettledAt}
	})
	return domain.ListResponse{PageInfo: pageInfo, Ledgers: items}, nil
}

func (s *Service) RecordTx(ctx context.Context, tx *gorm.DB, ledger *domain.Ledger) error {
	if err := s.repo.InsertTx(ctx, tx, ledger); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return fmt.Errorf("%w: order %s", domain.ErrAlreadyRecorded, ledger.OrderNumber)
		}
		return err
	}
	return nil
}
