package pricing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/cel-go/cel"

	"atelier/internal/core/apperror"
	"atelier/internal/core/tx"
	"atelier/internal/core/types"
	"atelier/internal/domain"
	"atelier/pkg/logger"
	"atelier/pkg/numerator"
)

// Repository persists pricing rules.
type Repository interface {
	domain.CatalogRepository[*Rule]

	// ListActive returns non-deleted active rules ordered by priority.
	ListActive(ctx context.Context) ([]*Rule, error)
}

// Service provides price calculation and pricing rule management.
// Composes domain.CatalogService for common CRUD operations.
type Service struct {
	*domain.CatalogService[*Rule]
	repo      Repository
	numerator *numerator.Service
	evaluator *evaluator
}

// NewService creates a new pricing service.
func NewService(repo Repository, txManager tx.Manager, num *numerator.Service) (*Service, error) {
	ev, err := newEvaluator()
	if err != nil {
		return nil, fmt.Errorf("init rule evaluator: %w", err)
	}

	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Rule]{
		Repo:       repo,
		TxManager:  txManager,
		EntityName: "pricing rule",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		numerator:      num,
		evaluator:      ev,
	}

	base.Hooks().OnBeforeCreate(svc.prepareForCreate)
	base.Hooks().OnBeforeUpdate(svc.checkCondition)

	return svc, nil
}

func (s *Service) prepareForCreate(ctx context.Context, rule *Rule) error {
	if rule.Code == "" {
		code, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("RG"), nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate code: %w", err)
		}
		rule.Code = code
	}
	return s.checkCondition(ctx, rule)
}

// checkCondition compiles the condition so malformed expressions are rejected
// at write time, not at evaluation time.
func (s *Service) checkCondition(_ context.Context, rule *Rule) error {
	if rule.Condition == "" {
		return nil
	}
	if _, err := s.evaluator.program(rule.Condition); err != nil {
		return apperror.NewValidation("invalid rule condition").
			WithDetail("condition", rule.Condition).
			WithCause(err)
	}
	return nil
}

// CalculatePrice computes a suggested price from explicit inputs.
func (s *Service) CalculatePrice(_ context.Context, in CalculateInput) (Quote, error) {
	return Calculate(in)
}

// SimulateMargin computes the realized margin for a given sale price.
func (s *Service) SimulateMargin(_ context.Context, in SimulateInput) (Simulation, error) {
	return Simulate(in)
}

// QuoteInput is the input for a rule-driven price quote.
type QuoteInput struct {
	BaseCost types.Money `json:"baseCost"`
	Context  RuleContext `json:"context"`
}

// QuoteWithRules picks the first active rule matching the sale context
// (by priority order) and calculates a price with its fees and target margin.
func (s *Service) QuoteWithRules(ctx context.Context, in QuoteInput) (Quote, error) {
	rules, err := s.repo.ListActive(ctx)
	if err != nil {
		return Quote{}, err
	}

	for _, rule := range rules {
		match, err := s.matches(rule, in.Context)
		if err != nil {
			// A rule that stopped evaluating should not block pricing.
			logger.Warn(ctx, "skipping pricing rule: condition evaluation failed",
				"ruleId", rule.ID.String(), "error", err)
			continue
		}
		if !match {
			continue
		}

		quote, err := Calculate(CalculateInput{
			BaseCost:     in.BaseCost,
			Fees:         rule.Fees,
			TargetMargin: rule.TargetMargin,
		})
		if err != nil {
			return Quote{}, err
		}
		ruleID := rule.ID.String()
		quote.RuleID = &ruleID
		return quote, nil
	}

	return Quote{}, apperror.NewNotFound("pricing rule", "no rule matches the given context")
}

func (s *Service) matches(rule *Rule, rctx RuleContext) (bool, error) {
	if rule.Condition == "" {
		return true, nil
	}
	return s.evaluator.eval(rule.Condition, rctx)
}

// evaluator compiles and caches rule condition programs. Conditions are plain
// boolean expressions over the sale context, e.g.
//
//	category == "footwear" && quantity >= 10
type evaluator struct {
	env *cel.Env

	mu       sync.RWMutex
	programs map[string]cel.Program
}

func newEvaluator() (*evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("category", cel.StringType),
		cel.Variable("unitId", cel.StringType),
		cel.Variable("supplierTier", cel.StringType),
		cel.Variable("quantity", cel.IntType),
	)
	if err != nil {
		return nil, err
	}
	return &evaluator{env: env, programs: make(map[string]cel.Program)}, nil
}

func (e *evaluator) program(condition string) (cel.Program, error) {
	e.mu.RLock()
	prg, ok := e.programs[condition]
	e.mu.RUnlock()
	if ok {
		return prg, nil
	}

	ast, issues := e.env.Compile(condition)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile condition: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("condition must evaluate to a boolean, got %s", ast.OutputType())
	}

	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build condition program: %w", err)
	}

	e.mu.Lock()
	e.programs[condition] = prg
	e.mu.Unlock()
	return prg, nil
}

func (e *evaluator) eval(condition string, rctx RuleContext) (bool, error) {
	prg, err := e.program(condition)
	if err != nil {
		return false, err
	}

	out, _, err := prg.Eval(map[string]any{
		"category":     rctx.Category,
		"unitId":       rctx.UnitID,
		"supplierTier": rctx.SupplierTier,
		"quantity":     rctx.Quantity,
	})
	if err != nil {
		return false, fmt.Errorf("evaluate condition: %w", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("condition returned %T, expected bool", out.Value())
	}
	return result, nil
}
