// Package registry tracks payments that were created on the API but not yet
// submitted to the ledger.
package registry

import (
	"sort"
	"sync"

	"github.com/vitwit/pipay/types"
)

// Registry maps payment identifiers to the snapshot returned at creation.
// An identifier may be claimed for submission by one caller at a time.
type Registry struct {
	mu       sync.Mutex
	payments map[string]*types.PaymentSnapshot
	inflight map[string]struct{}
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		payments: make(map[string]*types.PaymentSnapshot),
		inflight: make(map[string]struct{}),
	}
}

// Put records snapshot under identifier. It fails while the identifier is
// claimed by an in-flight submission.
func (r *Registry) Put(identifier string, snapshot *types.PaymentSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.inflight[identifier]; ok {
		return types.NewError(types.CodePaymentInFlight, nil, "payment %s is being submitted", identifier)
	}
	r.payments[identifier] = snapshot
	return nil
}

func (r *Registry) Get(identifier string) (*types.PaymentSnapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.payments[identifier]
	return s, ok
}

// Remove deletes identifier and reports whether it was present.
func (r *Registry) Remove(identifier string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.payments[identifier]
	delete(r.payments, identifier)
	return ok
}

// List returns the open payments ordered by identifier.
func (r *Registry) List() []*types.PaymentSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.payments))
	for id := range r.payments {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]*types.PaymentSnapshot, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.payments[id])
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.payments)
}

// InFlight reports whether identifier is currently claimed.
func (r *Registry) InFlight(identifier string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.inflight[identifier]
	return ok
}

// Claim marks identifier as being submitted. The returned release func must
// be called once the attempt finishes, whatever its outcome.
func (r *Registry) Claim(identifier string) (release func(), err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.inflight[identifier]; ok {
		return nil, types.NewError(types.CodePaymentInFlight, nil, "payment %s is already being submitted", identifier)
	}
	r.inflight[identifier] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.inflight, identifier)
			r.mu.Unlock()
		})
	}, nil
}
