package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/tradebook/internal/catalog/domain"
	"github.com/smallbiznis/tradebook/internal/clock"
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
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) *Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("catalog.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.Product, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Product{}, domain.ErrInvalidName
	}
	code := strings.TrimSpace(req.Code)
	if code == "" {
		code = name
	}
	code = slug.Make(code)
	if code == "" {
		return domain.Product{}, domain.ErrInvalidCode
	}
	if req.UnitPrice.IsNegative() || !db.FitsNumeric(req.UnitPrice) {
		return domain.Product{}, domain.ErrInvalidPrice
	}

	var supplierID *snowflake.ID
	if raw := strings.TrimSpace(req.SupplierID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil || id == 0 {
			return domain.Product{}, domain.ErrInvalidSupplier
		}
		supplierID = &id
	}

	now := s.clock.Now()
	product := domain.Product{
		ID:         s.genID.Generate(),
		Code:       code,
		Name:       name,
		Category:   strings.TrimSpace(req.Category),
		SupplierID: supplierID,
		Unit:       strings.TrimSpace(req.Unit),
		UnitPrice:  req.UnitPrice,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Insert(ctx, s.db, &product); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Product{}, domain.ErrCodeTaken
		}
		return domain.Product{}, err
	}

	s.log.Info("product created",
		zap.String("product_id", product.ID.String()),
		zap.String("category", product.Category),
	)
	return product, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Product, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || parsed == 0 {
		return domain.Product{}, domain.ErrInvalidID
	}
	item, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return domain.Product{}, err
	}
	if item == nil {
		return domain.Product{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, filter domain.ListFilter) ([]domain.Product, error) {
	filter.Category = strings.TrimSpace(filter.Category)
	return s.repo.List(ctx, s.db, filter)
}

func (s *Service) FindByIDs(ctx context.Context, tx *gorm.DB, ids []snowflake.ID) (map[snowflake.ID]domain.Product, error) {
	items, err := s.repo.FindByIDs(ctx, tx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[snowflake.ID]domain.Product, len(items))
	for _, item := range items {
		out[item.ID] = item
	}
	return out, nil
}
