package shipping

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/sarit-store/internal/domain/validate"
)

// MethodPatch changes individual fields of one method.
type MethodPatch struct {
	Label *string
	Cost  *decimal.Decimal
}

// Service reads and edits the shipping config.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a Service backed by repo.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// EnsureSingleton returns the stored config, creating it with defaults on
// first access.
func (s *Service) EnsureSingleton(ctx context.Context) (*Config, error) {
	cfg, err := s.repo.Get(ctx)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, errors.Wrap(err, "get shipping config")
	}

	cfg = &Config{Methods: DefaultMethods(), UpdatedAt: s.now()}
	if err := s.repo.Save(ctx, cfg); err != nil {
		return nil, errors.Wrap(err, "create shipping config")
	}
	return cfg, nil
}

// Available returns the methods offered to customers.
func (s *Service) Available(ctx context.Context) ([]Method, error) {
	cfg, err := s.EnsureSingleton(ctx)
	if err != nil {
		return nil, err
	}
	return cfg.Methods, nil
}

// Resolve returns the configured method for id.
func (s *Service) Resolve(ctx context.Context, id MethodID) (Method, error) {
	methods, err := s.Available(ctx)
	if err != nil {
		return Method{}, err
	}
	for _, m := range methods {
		if m.ID == id {
			return m, nil
		}
	}
	return Method{}, ErrUnknownMethod
}

// Replace stores a full two-method configuration.
func (s *Service) Replace(ctx context.Context, methods []Method) (*Config, error) {
	if err := checkMethods(methods); err != nil {
		return nil, err
	}
	return s.save(ctx, ordered(methods))
}

// Patch merges field changes into the stored methods, then validates the
// merged result the same way Replace does.
func (s *Service) Patch(ctx context.Context, patches map[MethodID]MethodPatch) (*Config, error) {
	var v validate.Error
	for id := range patches {
		if id != MethodStandard && id != MethodExpress {
			v.Add("methods", "unknown shipping method "+string(id))
		}
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	cfg, err := s.EnsureSingleton(ctx)
	if err != nil {
		return nil, err
	}

	merged := make([]Method, len(cfg.Methods))
	copy(merged, cfg.Methods)
	for i := range merged {
		p, ok := patches[merged[i].ID]
		if !ok {
			continue
		}
		if p.Label != nil {
			merged[i].Label = *p.Label
		}
		if p.Cost != nil {
			merged[i].Cost = *p.Cost
		}
	}
	if err := checkMethods(merged); err != nil {
		return nil, err
	}
	return s.save(ctx, ordered(merged))
}

// Reset restores the default methods.
func (s *Service) Reset(ctx context.Context) (*Config, error) {
	return s.save(ctx, DefaultMethods())
}

func (s *Service) save(ctx context.Context, methods []Method) (*Config, error) {
	cfg := &Config{Methods: methods, UpdatedAt: s.now()}
	if err := s.repo.Save(ctx, cfg); err != nil {
		return nil, errors.Wrap(err, "save shipping config")
	}
	return cfg, nil
}

func checkMethods(methods []Method) error {
	var v validate.Error
	seen := make(map[MethodID]bool, len(methods))
	for _, m := range methods {
		field := "methods." + string(m.ID)
		switch m.ID {
		case MethodStandard, MethodExpress:
		default:
			v.Add("methods", "unknown shipping method "+string(m.ID))
			continue
		}
		if seen[m.ID] {
			v.Add("methods", "duplicate shipping method "+string(m.ID))
		}
		seen[m.ID] = true
		if strings.TrimSpace(m.Label) == "" {
			v.Add(field+".label", "label is required")
		}
		if m.Cost.IsNegative() {
			v.Add(field+".cost", "cost must be a non-negative number")
		}
	}
	if len(methods) != 2 || !seen[MethodStandard] || !seen[MethodExpress] {
		v.Add("methods", "methods must contain exactly standard and express")
	}
	return v.Err()
}

func ordered(methods []Method) []Method {
	out := make([]Method, 0, len(methods))
	for _, id := range []MethodID{MethodStandard, MethodExpress} {
		for _, m := range methods {
			if m.ID == id {
				m.Label = strings.TrimSpace(m.Label)
				out = append(out, m)
			}
		}
	}
	return out
}
