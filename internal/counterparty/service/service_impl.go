package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/tradebook/internal/clock"
	"github.com/smallbiznis/tradebook/internal/counterparty/domain"
	"github.com/smallbiznis/tradebook/pkg/db"
	"github.com/smallbiznis/tradebook/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
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
		log:   p.Log.Named("counterparty.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.Counterparty, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Counterparty{}, domain.ErrInvalidName
	}
	if !req.Kind.Valid() {
		return domain.Counterparty{}, domain.ErrInvalidKind
	}

	code := strings.TrimSpace(req.Code)
	if code == "" {
		code = name
	}
	code = slug.Make(code)
	if code == "" {
		return domain.Counterparty{}, domain.ErrInvalidCode
	}

	metadata := datatypes.JSONMap{}
	for k, v := range req.Metadata {
		metadata[k] = v
	}

	now := s.clock.Now()
	counterparty := domain.Counterparty{
		ID:        s.genID.Generate(),
		Code:      code,
		Name:      name,
		Kind:      req.Kind,
		Active:    true,
		Phone:     strings.TrimSpace(req.Phone),
		Metadata:  metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, s.db, &counterparty); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Counterparty{}, domain.ErrCodeTaken
		}
		return domain.Counterparty{}, err
	}

	s.log.Info("counterparty created",
		zap.String("counterparty_id", counterparty.ID.String()),
		zap.String("kind", string(counterparty.Kind)),
	)
	return counterparty, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Counterparty, error) {
	parsed, err := parseID(id)
	if err != nil {
		return domain.Counterparty{}, err
	}
	return s.Lookup(ctx, s.db, parsed)
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	if req.Kind != "" && !req.Kind.Valid() {
		return domain.ListResponse{}, domain.ErrInvalidKind
	}

	items, err := s.repo.List(ctx, s.db, domain.ListFilter{
		Kind:       req.Kind,
		Name:       strings.TrimSpace(req.Name),
		ActiveOnly: req.ActiveOnly,
	}, req.Pagination)
	if err != nil {
		return domain.ListResponse{}, err
	}

	items, pageInfo := pagination.Trim(items, req.Pagination, func(c domain.Counterparty) pagination.Cursor {
		return pagination.Cursor{ID: int64(c.ID), At: c.CreatedAt}
	})
	return domain.ListResponse{PageInfo: pageInfo, Counterparties: items}, nil
}

func (s *Service) SetActive(ctx context.Context, id string, active bool) (domain.Counterparty, error) {
	parsed, err := parseID(id)
	if err != nil {
		return domain.Counterparty{}, err
	}

	updated, err := s.repo.SetActive(ctx, s.db, parsed, active, s.clock.Now())
	if err != nil {
		return domain.Counterparty{}, err
	}
	if !updated {
		return domain.Counterparty{}, domain.ErrNotFound
	}
	return s.Lookup(ctx, s.db, parsed)
}

func (s *Service) Lookup(ctx context.Context, tx *gorm.DB, id snowflake.ID) (domain.Counterparty, error) {
	item, err := s.repo.FindByID(ctx, tx, id)
	if err != nil {
		return domain.Counterparty{}, err
	}
	if item == nil {
		return domain.Counterparty{}, domain.ErrNotFound
	}
	return *item, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
