// Package decorate implements the output decorator registry and the
// resolution protocol that guarantees masking is installed on every
// node that can independently produce output.
//
// A decorator is never handed across nodes as a live object. What
// travels between nodes is only the capability to rebuild the secret
// supplier (a scope name and the references behind it); the decorator
// chain itself must be resolved locally, on the node that owns the
// execution context, before that context may write a single byte.
package decorate

import (
	"io"
	"sync"

	verrors "github.com/veilstream/veil/internal/errors"
	"github.com/veilstream/veil/internal/secrets"
)

// Decorator wraps an output sink with additional filtering.
type Decorator interface {
	Decorate(sink io.Writer) io.Writer
}

// Factory produces a decorator bound to one execution context. A
// factory is registered once and consulted on every node; Of runs on
// the node that owns ctx so the decorator is always built from state
// reachable there.
type Factory interface {
	// Name identifies the factory in errors and logs.
	Name() string

	// Of builds the decorator for ctx. An error is fatal for the
	// context: output must not proceed unmasked.
	Of(ctx *ExecContext) (Decorator, error)
}

// ExecContext identifies one node/channel pairing whose output is
// filtered. A context owns exactly one resolved decorator chain for its
// lifetime; the chain is reused for every write, not rebuilt per chunk.
type ExecContext struct {
	node    string
	channel string

	mu  sync.Mutex
	out io.WriteCloser
}

// NewExecContext creates an unresolved context for the given node and
// logical output channel (for example "stdout").
func NewExecContext(node, channel string) *ExecContext {
	return &ExecContext{node: node, channel: channel}
}

// Node returns the owning node's identifier.
func (c *ExecContext) Node() string { return c.node }

// Channel returns the logical output channel name.
func (c *ExecContext) Channel() string { return c.channel }

// Output returns the resolved, decorated sink for this context. Writing
// before local resolution is a protocol violation, reported as a
// ProtocolError rather than silently forwarding unmasked bytes.
func (c *ExecContext) Output() (io.WriteCloser, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.out == nil {
		return nil, verrors.ProtocolError{
			Node:    c.node,
			Channel: c.channel,
			Message: "output requested before the decorator registry was resolved on this node",
		}
	}
	return c.out, nil
}

// bind installs the resolved chain. A context resolves exactly once.
func (c *ExecContext) bind(out io.WriteCloser) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.out != nil {
		return verrors.ProtocolError{
			Node:    c.node,
			Channel: c.channel,
			Message: "context already resolved; decorators are built once per context lifetime",
		}
	}
	c.out = out
	return nil
}

// Registry holds the registered decorator factories. Composition order
// is registration order: the first registered factory sits closest to
// the sink, and no factory can silence another.
type Registry struct {
	mu        sync.RWMutex
	factories []Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a factory. Registration order is preserved.
func (r *Registry) Register(f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories = append(r.factories, f)
}

// Len returns the number of registered factories.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.factories)
}

// Resolve builds every registered factory's decorator for ctx and
// composes them around sink, binding the result to the context. It must
// be called on the node that owns ctx; this call is the protocol.
//
// Any factory failure aborts resolution with a ProtocolError and the
// context stays unwritable; falling back to the bare sink would be a
// silent masking bypass. An empty registry resolves to a plain
// passthrough, which is the only situation where unfiltered output is
// legitimate.
func (r *Registry) Resolve(ctx *ExecContext, sink io.Writer) (io.WriteCloser, error) {
	r.mu.RLock()
	factories := make([]Factory, len(r.factories))
	copy(factories, r.factories)
	r.mu.RUnlock()

	ch := &chain{sink: sink}
	w := sink
	for _, f := range factories {
		d, err := f.Of(ctx)
		if err != nil {
			return nil, verrors.ProtocolError{
				Node:    ctx.Node(),
				Channel: ctx.Channel(),
				Factory: f.Name(),
				Message: "decorator factory could not be resolved on this node",
				Err:     err,
			}
		}
		w = d.Decorate(w)
		ch.layers = append(ch.layers, w)
	}
	ch.head = w

	if err := ctx.bind(ch); err != nil {
		return nil, err
	}
	return ch, nil
}

// chain is the composed decorator stack for one context. Writes enter
// at the outermost decorator; Close drains outermost-first so each
// layer can flush retained bytes into the next before that one seals.
type chain struct {
	sink   io.Writer
	head   io.Writer
	layers []io.Writer // innermost first
	closed bool
}

func (c *chain) Write(p []byte) (int, error) {
	return c.head.Write(p)
}

func (c *chain) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	var firstErr error
	for i := len(c.layers) - 1; i >= 0; i-- {
		if closer, ok := c.layers[i].(io.Closer); ok {
			if err := closer.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// SupplierSource rebuilds the secret supplier for a context. This is
// the one capability that crosses nodes: every node must be able to
// resolve the current secret set for a scope on its own.
type SupplierSource func(ctx *ExecContext) (secrets.Supplier, error)

// StaticSource adapts a fixed supplier into a SupplierSource, for the
// common single-process case where every context shares one scope.
func StaticSource(s secrets.Supplier) SupplierSource {
	return func(*ExecContext) (secrets.Supplier, error) {
		return s, nil
	}
}
