package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
	"github.com/smallbiznis/tradebook/internal/actor"
	"github.com/smallbiznis/tradebook/internal/config"
	"github.com/smallbiznis/tradebook/internal/errs"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

//go:embed model.conf
var modelText string

const (
	ObjectCutoff     = "cutoff"
	ObjectOrder      = "order"
	ObjectSettlement = "settlement"
	ObjectPayment    = "payment"
	ObjectReport     = "report"
)

const (
	ActionCutoffOpen  = "cutoff.open"
	ActionCutoffClose = "cutoff.close"
	ActionCutoffReset = "cutoff.reset"

	ActionSettle        = "settlement.settle"
	ActionPaymentRecord = "payment.record"
)

var (
	ErrForbidden    = errs.New(errs.ErrForbidden, "forbidden")
	ErrInvalidActor = errs.New(errs.ErrForbidden, "invalid_actor")
	ErrInvalidInput = errs.New(errs.ErrInvalidInput, "invalid_authorization_request")
)

// Authorizer is the enforcement seam between the HTTP layer and the
// operations that move money or close the day.
type Authorizer interface {
	Authorize(ctx context.Context, a actor.Actor, object, action string) error
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type Service struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

// NewEnforcer loads policy lines from cfg.PolicyFile, or the built-in
// defaults when no file is configured.
func NewEnforcer(cfg config.Config) (*casbin.SyncedEnforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}

	if path := strings.TrimSpace(cfg.PolicyFile); path != "" {
		enforcer, err := casbin.NewSyncedEnforcer(m, fileadapter.NewAdapter(path))
		if err != nil {
			return nil, fmt.Errorf("load policy %s: %w", path, err)
		}
		return enforcer, nil
	}

	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) *Service {
	return &Service{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *Service) Authorize(ctx context.Context, a actor.Actor, object, action string) error {
	object = strings.TrimSpace(object)
	action = strings.TrimSpace(action)
	if object == "" || action == "" {
		return ErrInvalidInput
	}
	if !a.Valid() {
		return ErrInvalidActor
	}
	role := strings.ToLower(strings.TrimSpace(a.Role))
	if role == "" {
		s.denied(a, object, action)
		return ErrForbidden
	}

	allowed, err := s.enforcer.Enforce("role:"+role, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.denied(a, object, action)
		return ErrForbidden
	}
	return nil
}

func (s *Service) denied(a actor.Actor, object, action string) {
	s.log.Warn("authorization denied",
		zap.String("actor_id", a.ID),
		zap.String("role", a.Role),
		zap.String("object", object),
		zap.String("action", action),
	)
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		{"role:viewer", "*", "*.view"},

		{"role:operator", ObjectCutoff, "cutoff.*"},
		{"role:operator", ObjectSettlement, ActionSettle},
		{"role:operator", ObjectPayment, ActionPaymentRecord},

		// Automated jobs and the CLI.
		{"role:system", "*", "*"},
	}
	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}

	groups := [][]string{
		{"role:operator", "role:viewer"},
		{"role:admin", "role:operator"},
	}
	for _, group := range groups {
		if _, err := enforcer.AddGroupingPolicy(group); err != nil {
			return err
		}
	}
	return nil
}
