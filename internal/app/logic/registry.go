package logic

import (
	"fmt"
	"sync"

	"github.com/PabloGalante/fairy-agent/internal/sampling"
)

// Options configure the personalities built by NewRegistry.
type Options struct {
	Rand             sampling.Rand
	DefaultID        string
	Override         string
	EmpathRareChance float64 // zero disables the rare monologue
	AnimateRewrite   bool
}

// Registry is the fixed set of personalities. Lookups never fail: unknown
// ids resolve to the default personality.
type Registry struct {
	logics    []Logic
	byID      map[string]Logic
	defaultID string
	rng       sampling.Rand

	mu       sync.RWMutex
	override string
}

func NewRegistry(opts Options) (*Registry, error) {
	scripts, err := LoadScripts()
	if err != nil {
		return nil, err
	}
	rng := opts.Rand
	if rng == nil {
		rng = sampling.Global()
	}

	clueless := NewClueless(scripts.Clueless, rng)
	scholar := NewScholar(scripts.Scholar, rng)
	scholar.AnimateRewrite = opts.AnimateRewrite

	r := &Registry{
		logics: []Logic{
			clueless,
			scholar,
			NewEmpath(scripts.Empath, rng, opts.EmpathRareChance),
			NewPrivate(scripts.Private, clueless, rng),
			NewVenting(scripts.Venting, rng),
		},
		byID:      make(map[string]Logic),
		defaultID: IDClueless,
		rng:       rng,
	}
	for _, l := range r.logics {
		r.byID[l.ID()] = l
	}

	if opts.DefaultID != "" {
		if !r.Has(opts.DefaultID) {
			return nil, fmt.Errorf("unknown default personality %q", opts.DefaultID)
		}
		r.defaultID = opts.DefaultID
	}
	if opts.Override != "" && !r.SetOverride(opts.Override) {
		return nil, fmt.Errorf("unknown personality override %q", opts.Override)
	}
	return r, nil
}

// All returns the personalities in registration order.
func (r *Registry) All() []Logic {
	return append([]Logic(nil), r.logics...)
}

func (r *Registry) Has(id string) bool {
	_, ok := r.byID[id]
	return ok
}

// Lookup resolves id, falling back to the default personality.
func (r *Registry) Lookup(id string) Logic {
	if l, ok := r.byID[id]; ok {
		return l
	}
	return r.Default()
}

func (r *Registry) Default() Logic {
	return r.byID[r.defaultID]
}

// Select picks the personality for a new thread: the override when one is
// set, otherwise a uniformly random one.
func (r *Registry) Select() Logic {
	if id := r.Override(); id != "" {
		return r.Lookup(id)
	}
	return sampling.Pick(r.rng, r.logics)
}

// SetOverride forces Select to return id. An empty id clears the override;
// an unknown id is rejected.
func (r *Registry) SetOverride(id string) bool {
	if id != "" && !r.Has(id) {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.override = id
	return true
}

func (r *Registry) Override() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.override
}

// ResetAll clears the process-wide state of every personality.
func (r *Registry) ResetAll() {
	for _, l := range r.logics {
		if rs, ok := l.(Resetter); ok {
			rs.Reset()
		}
	}
}
