// Package secrets tracks the set of active secret values for a scope
// and publishes compiled aggregate patterns to the masking streams that
// read from it.
package secrets

import (
	"sync"
	"sync/atomic"

	"github.com/veilstream/veil/internal/pattern"
	"github.com/veilstream/veil/internal/secure"
)

// Supplier yields the current aggregate pattern for a scope. Reads
// never block and always observe one complete snapshot; they are safe
// from any goroutine.
type Supplier interface {
	Current() *pattern.Aggregate
}

// Scope is a mutable, named collection of active secrets. Mutations
// recompile the aggregate pattern and publish the new snapshot
// atomically; readers holding an older snapshot keep using it for
// bytes already being scanned. Empty strings are never admitted.
type Scope struct {
	name string

	mu     sync.Mutex
	values map[string]struct{}

	snapshot atomic.Pointer[pattern.Aggregate]
}

// NewScope creates an empty scope whose supplier starts at the no-op
// pattern.
func NewScope(name string) *Scope {
	s := &Scope{
		name:   name,
		values: make(map[string]struct{}),
	}
	s.snapshot.Store(pattern.NoSecrets)
	return s
}

// Name returns the scope's identifier.
func (s *Scope) Name() string {
	return s.name
}

// Current implements Supplier. It is lock-free.
func (s *Scope) Current() *pattern.Aggregate {
	return s.snapshot.Load()
}

// Len returns the number of active secrets.
func (s *Scope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values)
}

// Add registers secret values with the scope and publishes a new
// pattern snapshot. Empty strings are dropped. If the new pattern
// cannot be compiled the previous snapshot stays active and the error
// is returned; the scope's value set is rolled back so state and
// published pattern never diverge.
func (s *Scope) Add(values ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := s.values[v]; ok {
			continue
		}
		s.values[v] = struct{}{}
		added = append(added, v)
	}
	if len(added) == 0 {
		return nil
	}

	if err := s.publishLocked(); err != nil {
		for _, v := range added {
			delete(s.values, v)
		}
		return err
	}
	return nil
}

// AddSecure registers secrets held in protected buffers. Each buffer is
// opened only long enough to copy the value into the scope; the locked
// plaintext is wiped before returning.
func (s *Scope) AddSecure(bufs ...*secure.SecureBuffer) error {
	values := make([]string, 0, len(bufs))
	for _, b := range bufs {
		locked, err := b.Open()
		if err != nil {
			return err
		}
		// string(Bytes()) copies; LockedBuffer.String would alias
		// memory that Destroy wipes.
		values = append(values, string(locked.Bytes()))
		locked.Destroy()
	}
	return s.Add(values...)
}

// Remove drops secret values from the scope and publishes a new
// snapshot. Bytes already flushed while the secret was active are not
// retroactively unmasked, and bytes flushed before removal under the
// old snapshot stay as they were written.
func (s *Scope) Remove(values ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := s.values[v]; ok {
			delete(s.values, v)
			removed = append(removed, v)
		}
	}
	if len(removed) == 0 {
		return nil
	}
	// Shrinking the set cannot grow the expression, but keep the same
	// rollback contract as Add.
	if err := s.publishLocked(); err != nil {
		for _, v := range removed {
			s.values[v] = struct{}{}
		}
		return err
	}
	return nil
}

// publishLocked recompiles the aggregate from the current value set and
// swaps it in. Callers must hold s.mu.
func (s *Scope) publishLocked() error {
	all := make([]string, 0, len(s.values))
	for v := range s.values {
		all = append(all, v)
	}
	agg, err := pattern.Compile(all)
	if err != nil {
		return err
	}
	s.snapshot.Store(agg)
	return nil
}

// Static is a Supplier pinned to a single pattern snapshot. It is used
// where the secret set is fixed for the stream's lifetime, and in
// tests.
type Static struct {
	agg *pattern.Aggregate
}

// NewStatic builds a fixed supplier from secret values.
func NewStatic(values ...string) (*Static, error) {
	agg, err := pattern.Compile(values)
	if err != nil {
		return nil, err
	}
	return &Static{agg: agg}, nil
}

// Current implements Supplier.
func (s *Static) Current() *pattern.Aggregate {
	return s.agg
}

var (
	_ Supplier = (*Scope)(nil)
	_ Supplier = (*Static)(nil)
)
