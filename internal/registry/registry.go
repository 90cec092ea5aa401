// Package registry owns the live models of a process and serializes access
// to each of them.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/KhuramC/EconomySim-sub000/internal/config"
	"github.com/KhuramC/EconomySim-sub000/internal/economy"
	"github.com/KhuramC/EconomySim-sub000/internal/engine"
	"github.com/KhuramC/EconomySim-sub000/internal/indicators"
)

var (
	// ErrNotFound is returned for an unknown model handle.
	ErrNotFound = errors.New("model not found")
	// ErrInvalidTicks is returned when asked to step fewer than one week.
	ErrInvalidTicks = errors.New("ticks must be >= 1")
)

// entry guards one model. Operations on different models never contend.
type entry struct {
	mu    sync.Mutex
	model *engine.Model
}

// Registry maps handles to models.
type Registry struct {
	mu     sync.RWMutex
	models map[uuid.UUID]*entry

	// OnStep, if set, is called after every completed week of any model,
	// with that model's lock held.
	OnStep func(id uuid.UUID, m *engine.Model)
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{models: make(map[uuid.UUID]*entry)}
}

// Create builds a model and returns its handle.
func (r *Registry) Create(cfg *config.ModelConfig, seed int64) (uuid.UUID, error) {
	m, err := engine.New(cfg, seed)
	if err != nil {
		return uuid.Nil, err
	}
	id := uuid.New()

	r.mu.Lock()
	r.models[id] = &entry{model: m}
	r.mu.Unlock()

	slog.Info("model created", "id", id, "people", cfg.NumPeople, "weeks", cfg.MaxSimulationLength, "seed", seed)
	return id, nil
}

func (r *Registry) get(id uuid.UUID) (*entry, error) {
	r.mu.RLock()
	e, ok := r.models[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e, nil
}

// with runs fn while holding the model's lock.
func (r *Registry) with(id uuid.UUID, fn func(m *engine.Model) error) error {
	e, err := r.get(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.model)
}

// Step advances a model by ticks weeks and returns the resulting week.
// Steps past the horizon are no-ops.
func (r *Registry) Step(id uuid.UUID, ticks int) (int, error) {
	if ticks < 1 {
		return 0, ErrInvalidTicks
	}
	var week int
	err := r.with(id, func(m *engine.Model) error {
		for i := 0; i < ticks && !m.Finished(); i++ {
			if err := m.Step(); err != nil {
				return err
			}
			if r.OnStep != nil {
				r.OnStep(id, m)
			}
		}
		week = m.Week()
		return nil
	})
	return week, err
}

// Week returns a model's current week.
func (r *Registry) Week(id uuid.UUID) (int, error) {
	var week int
	err := r.with(id, func(m *engine.Model) error {
		week = m.Week()
		return nil
	})
	return week, err
}

// Summary returns a model's compact state.
func (r *Registry) Summary(id uuid.UUID) (engine.Summary, error) {
	var s engine.Summary
	err := r.with(id, func(m *engine.Model) error {
		s = m.Summary()
		return nil
	})
	return s, err
}

// Policies returns a copy of a model's policies.
func (r *Registry) Policies(id uuid.UUID) (*config.Policies, error) {
	var p *config.Policies
	err := r.with(id, func(m *engine.Model) error {
		p = m.Policies()
		return nil
	})
	return p, err
}

// SetPolicies validates and installs a new policy set.
func (r *Registry) SetPolicies(id uuid.UUID, p *config.Policies) error {
	return r.with(id, func(m *engine.Model) error {
		return m.SetPolicies(p)
	})
}

// IndicatorSeries returns named indicator series. See indicators.History.
func (r *Registry) IndicatorSeries(id uuid.UUID, start, end int, names []string) ([]indicators.Series, error) {
	var out []indicators.Series
	err := r.with(id, func(m *engine.Model) error {
		var err error
		out, err = m.History.IndicatorSeries(start, end, names)
		return err
	})
	return out, err
}

// IndustrySeries returns per-industry rows.
func (r *Registry) IndustrySeries(id uuid.UUID, start, end int, industries []economy.IndustryType) (map[economy.IndustryType][]indicators.IndustryRow, error) {
	var out map[economy.IndustryType][]indicators.IndustryRow
	err := r.with(id, func(m *engine.Model) error {
		var err error
		out, err = m.History.IndustrySeries(start, end, industries)
		return err
	})
	return out, err
}

// DemographicSeries returns per-demographic rows.
func (r *Registry) DemographicSeries(id uuid.UUID, start, end int, demographics []economy.Demographic) (map[economy.Demographic][]indicators.DemographicRow, error) {
	var out map[economy.Demographic][]indicators.DemographicRow
	err := r.with(id, func(m *engine.Model) error {
		var err error
		out, err = m.History.DemographicSeries(start, end, demographics)
		return err
	})
	return out, err
}

// Lorenz returns the Lorenz curve of a model's current balances.
func (r *Registry) Lorenz(id uuid.UUID) (indicators.LorenzCurve, error) {
	var out indicators.LorenzCurve
	err := r.with(id, func(m *engine.Model) error {
		out = m.Lorenz()
		return nil
	})
	return out, err
}

// Export runs fn against a model under its lock. fn must not retain m.
func (r *Registry) Export(id uuid.UUID, fn func(m *engine.Model) error) error {
	return r.with(id, fn)
}

// Delete removes a model.
func (r *Registry) Delete(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.models[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(r.models, id)
	slog.Info("model deleted", "id", id)
	return nil
}

// List returns every handle, sorted.
func (r *Registry) List() []uuid.UUID {
	r.mu.RLock()
	ids := make([]uuid.UUID, 0, len(r.models))
	for id := range r.models {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// Len is the number of live models.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.models)
}

// stepper adapts one registry model to engine.Steppable.
type stepper struct {
	r  *Registry
	id uuid.UUID
}

func (s stepper) Step() error {
	_, err := s.r.Step(s.id, 1)
	return err
}

func (s stepper) Week() int {
	w, _ := s.r.Week(s.id)
	return w
}

func (s stepper) Finished() bool {
	finished := true
	_ = s.r.with(s.id, func(m *engine.Model) error {
		finished = m.Finished()
		return nil
	})
	return finished
}

// Runner returns a Steppable that steps the model through the registry, so
// a run driver and other callers stay serialized.
func (r *Registry) Runner(id uuid.UUID) (engine.Steppable, error) {
	if _, err := r.get(id); err != nil {
		return nil, err
	}
	return stepper{r: r, id: id}, nil
}
