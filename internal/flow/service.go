package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/rcliao/somi-flow/internal/model"
	"github.com/rcliao/somi-flow/internal/planner"
	"github.com/rcliao/somi-flow/internal/selection"
	"github.com/rcliao/somi-flow/internal/store"
)

// Duration bounds for a flow request, in minutes.
const (
	MinDurationMinutes = 1
	MaxDurationMinutes = 60
)

// DefaultPlannerTimeout bounds how long Generate waits for the planner.
const DefaultPlannerTimeout = 8 * time.Second

var (
	// ErrInvalidRequest marks a client error in a flow request.
	ErrInvalidRequest = errors.New("invalid flow request")
	// ErrCatalogUnavailable means no blocks could be loaded.
	ErrCatalogUnavailable = errors.New("block catalog unavailable")
)

// Kind tags which path produced a flow.
type Kind string

const (
	KindAI          Kind = "ai"
	KindAlgorithmic Kind = "algorithmic"
)

// Request is a flow generation request.
type Request struct {
	State           model.TargetState
	DurationMinutes int
	BodyScanStart   bool
	BodyScanEnd     bool
	UseAI           bool
	Intensity       string
	LocalHour       *int
}

// Validate checks the request bounds.
func (r Request) Validate() error {
	if !model.ValidStates[r.State] {
		return fmt.Errorf("%w: unknown polyvagal_state %q", ErrInvalidRequest, r.State)
	}
	if r.DurationMinutes < MinDurationMinutes || r.DurationMinutes > MaxDurationMinutes {
		return fmt.Errorf("%w: duration_minutes must be %d..%d, got %d",
			ErrInvalidRequest, MinDurationMinutes, MaxDurationMinutes, r.DurationMinutes)
	}
	if r.LocalHour != nil && (*r.LocalHour < 0 || *r.LocalHour > 23) {
		return fmt.Errorf("%w: local_hour must be 0..23, got %d", ErrInvalidRequest, *r.LocalHour)
	}
	return nil
}

// Result is a generated flow tagged with the path that produced it.
type Result struct {
	Kind           Kind           `json:"kind"`
	Timeline       model.Timeline `json:"timeline"`
	Reasoning      string         `json:"reasoning"`
	BlockCount     int            `json:"block_count"`
	FallbackReason string         `json:"fallback_reason,omitempty"`
}

// Catalog supplies candidate blocks.
type Catalog interface {
	ListBlocks(ctx context.Context, p store.ListBlocksParams) ([]model.Block, error)
}

// Service generates flows.
type Service struct {
	catalog        Catalog
	planner        planner.Planner
	plannerTimeout time.Duration
	rng            *rand.Rand
	logger         *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithPlanner enables the generative path.
func WithPlanner(p planner.Planner) Option {
	return func(s *Service) { s.planner = p }
}

// WithPlannerTimeout bounds the wait for a planner answer.
func WithPlannerTimeout(d time.Duration) Option {
	return func(s *Service) { s.plannerTimeout = d }
}

// WithRand sets the random source used for block selection. A *rand.Rand
// is not safe for concurrent use, so a shared service should keep the
// default package source.
func WithRand(r *rand.Rand) Option {
	return func(s *Service) { s.rng = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a flow service over catalog.
func NewService(catalog Catalog, opts ...Option) *Service {
	s := &Service{
		catalog:        catalog,
		plannerTimeout: DefaultPlannerTimeout,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate builds a flow for req. The planner is tried first when req.UseAI
// is set and a planner is configured; any planner failure falls back to the
// algorithmic path. Only validation and catalog errors are returned.
func (s *Service) Generate(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	pool, err := s.catalog.ListBlocks(ctx, store.CatalogQuery())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	if len(pool) == 0 {
		return nil, fmt.Errorf("%w: no active blocks", ErrCatalogUnavailable)
	}

	scanStart, scanEnd := EffectiveBodyScans(req.DurationMinutes, req.BodyScanStart, req.BodyScanEnd)
	count := ComputeBlockCount(req.DurationMinutes, req.BodyScanStart, req.BodyScanEnd)

	fallback := ""
	switch {
	case !req.UseAI:
	case s.planner == nil:
		fallback = "planner not configured"
	default:
		res, err := s.generateAI(ctx, req, pool, count, scanStart, scanEnd)
		if err == nil {
			return res, nil
		}
		fallback = err.Error()
		s.logger.Warn("planner failed, using algorithmic flow",
			slog.String("state", string(req.State)),
			slog.Bool("transient", planner.IsTransient(err)),
			slog.String("error", fallback))
	}

	candidates := selection.FilterByState(pool, req.State)
	picked := selection.SelectBlocksRand(s.rng, candidates, count)
	tl := Assemble(selection.AssignSections(picked), scanStart, scanEnd)
	return &Result{
		Kind:     KindAlgorithmic,
		Timeline: tl,
		Reasoning: Explain(ExplainInput{
			State:            req.State,
			RequestedMinutes: req.DurationMinutes,
			Timeline:         tl,
		}),
		BlockCount:     tl.BlockCount(),
		FallbackReason: fallback,
	}, nil
}

type planResult struct {
	plan *planner.Plan
	err  error
}

// generateAI asks the planner for a plan and maps it onto catalog blocks.
// The call is not cancelled on timeout; its late answer is abandoned.
func (s *Service) generateAI(ctx context.Context, req Request, pool []model.Block, count int, scanStart, scanEnd bool) (*Result, error) {
	byName := make(map[string]model.Block, len(pool))
	names := make([]string, 0, len(pool))
	for _, b := range pool {
		if _, dup := byName[b.CanonicalName]; dup {
			continue
		}
		byName[b.CanonicalName] = b
		names = append(names, b.CanonicalName)
	}

	preq := planner.Request{
		State:           req.State,
		Intensity:       req.Intensity,
		DurationMinutes: req.DurationMinutes,
		BlockCount:      count,
		ValidNames:      names,
		LocalHour:       req.LocalHour,
	}

	done := make(chan planResult, 1)
	callCtx := context.WithoutCancel(ctx)
	go func() {
		p, err := s.planner.Plan(callCtx, preq)
		done <- planResult{plan: p, err: err}
	}()

	timer := time.NewTimer(s.plannerTimeout)
	defer timer.Stop()

	var pr planResult
	select {
	case pr = <-done:
	case <-timer.C:
		return nil, planner.NewTransientError(fmt.Errorf("planner timed out after %s", s.plannerTimeout))
	case <-ctx.Done():
		return nil, planner.NewTransientError(ctx.Err())
	}
	if pr.err != nil {
		return nil, pr.err
	}
	if pr.plan == nil {
		return nil, planner.NewFatalError(errors.New("planner returned no plan"))
	}

	plan := planner.Validate(pr.plan, names)
	var blocks []model.SectionedBlock
	for _, sec := range plan.Sections {
		for _, name := range sec.Blocks {
			if len(blocks) == count {
				break
			}
			blocks = append(blocks, model.SectionedBlock{Block: byName[name], Section: sec.Name})
		}
	}
	if len(blocks) == 0 {
		return nil, planner.NewFatalError(fmt.Errorf("planner returned no valid blocks (%d dropped)", plan.Dropped))
	}
	if plan.Dropped > 0 {
		s.logger.Info("dropped unknown planner entries",
			slog.String("request_id", plan.RequestID),
			slog.Int("dropped", plan.Dropped))
	}

	tl := Assemble(blocks, scanStart, scanEnd)
	reasoning := plan.Reasoning
	if reasoning == "" {
		reasoning = Explain(ExplainInput{State: req.State, RequestedMinutes: req.DurationMinutes, Timeline: tl})
	}
	return &Result{
		Kind:       KindAI,
		Timeline:   tl,
		Reasoning:  reasoning,
		BlockCount: tl.BlockCount(),
	}, nil
}
