package decorate

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	verrors "github.com/veilstream/veil/internal/errors"
	"github.com/veilstream/veil/internal/secrets"
)

// tagDecorator wraps output with a marker so composition order is
// observable in the stream.
type tagDecorator struct {
	tag string
}

func (d *tagDecorator) Decorate(sink io.Writer) io.Writer {
	return &tagWriter{tag: d.tag, sink: sink}
}

type tagWriter struct {
	tag    string
	sink   io.Writer
	tagged bool
}

// Write emits the tag once, on the first write only, so a composed
// chain leaves a single marker per layer in the stream.
func (w *tagWriter) Write(p []byte) (int, error) {
	if !w.tagged {
		w.tagged = true
		if _, err := fmt.Fprintf(w.sink, "<%s>", w.tag); err != nil {
			return 0, err
		}
	}
	if _, err := w.sink.Write(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

type tagFactory struct {
	tag string
	err error
}

func (f *tagFactory) Name() string { return f.tag }

func (f *tagFactory) Of(ctx *ExecContext) (Decorator, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &tagDecorator{tag: f.tag}, nil
}

func TestExecContext_OutputBeforeResolve(t *testing.T) {
	ctx := NewExecContext("agent-1", "stdout")

	out, err := ctx.Output()
	assert.Nil(t, out)

	var protoErr verrors.ProtocolError
	require.ErrorAs(t, err, &protoErr)
	assert.Equal(t, "agent-1", protoErr.Node)
	assert.Equal(t, "stdout", protoErr.Channel)
}

func TestRegistry_ResolveEmptyPassthrough(t *testing.T) {
	ctx := NewExecContext("agent-1", "stdout")
	var sink bytes.Buffer

	out, err := NewRegistry().Resolve(ctx, &sink)
	require.NoError(t, err)

	_, err = out.Write([]byte("plain output"))
	require.NoError(t, err)
	require.NoError(t, out.Close())

	assert.Equal(t, "plain output", sink.String())
}

func TestRegistry_CompositionOrder(t *testing.T) {
	// First registered sits closest to the sink: the last registered
	// decorator sees the bytes first.
	reg := NewRegistry()
	reg.Register(&tagFactory{tag: "inner"})
	reg.Register(&tagFactory{tag: "outer"})
	assert.Equal(t, 2, reg.Len())

	ctx := NewExecContext("agent-1", "stdout")
	var sink bytes.Buffer

	out, err := reg.Resolve(ctx, &sink)
	require.NoError(t, err)

	_, err = out.Write([]byte("data"))
	require.NoError(t, err)

	assert.Equal(t, "<inner><outer>data", sink.String())
}

func TestRegistry_ResolveBindsContext(t *testing.T) {
	reg := NewRegistry()
	ctx := NewExecContext("agent-1", "stderr")
	var sink bytes.Buffer

	resolved, err := reg.Resolve(ctx, &sink)
	require.NoError(t, err)

	out, err := ctx.Output()
	require.NoError(t, err)
	assert.Equal(t, resolved, out)
}

func TestRegistry_DoubleResolveFails(t *testing.T) {
	reg := NewRegistry()
	ctx := NewExecContext("agent-1", "stdout")
	var sink bytes.Buffer

	_, err := reg.Resolve(ctx, &sink)
	require.NoError(t, err)

	_, err = reg.Resolve(ctx, &sink)
	var protoErr verrors.ProtocolError
	require.ErrorAs(t, err, &protoErr)
	assert.Contains(t, protoErr.Message, "already resolved")
}

func TestRegistry_FactoryFailureIsFatal(t *testing.T) {
	boom := errors.New("supplier unavailable")
	reg := NewRegistry()
	reg.Register(&tagFactory{tag: "ok"})
	reg.Register(&tagFactory{tag: "broken", err: boom})

	ctx := NewExecContext("agent-2", "stdout")
	var sink bytes.Buffer

	out, err := reg.Resolve(ctx, &sink)
	assert.Nil(t, out)

	var protoErr verrors.ProtocolError
	require.ErrorAs(t, err, &protoErr)
	assert.Equal(t, "agent-2", protoErr.Node)
	assert.Equal(t, "broken", protoErr.Factory)
	assert.ErrorIs(t, err, boom)

	// The context stays unwritable, not silently unmasked
	_, err = ctx.Output()
	require.Error(t, err)
	assert.Empty(t, sink.String())
}

func TestMaskingFactory_MasksPerContext(t *testing.T) {
	sup, err := secrets.NewStatic("s3cr3t")
	require.NoError(t, err)

	reg := NewRegistry()
	reg.Register(NewMaskingFactory(StaticSource(sup)))

	// Two nodes resolve independently and produce identical masked output
	var outs []string
	for _, node := range []string{"agent-1", "agent-2"} {
		ctx := NewExecContext(node, "stdout")
		var sink bytes.Buffer

		out, err := reg.Resolve(ctx, &sink)
		require.NoError(t, err)
		_, err = out.Write([]byte("token=s3c"))
		require.NoError(t, err)
		_, err = out.Write([]byte("r3t done\n"))
		require.NoError(t, err)
		require.NoError(t, out.Close())
		outs = append(outs, sink.String())
	}

	assert.Equal(t, "token=**** done\n", outs[0])
	assert.Equal(t, outs[0], outs[1])
}

func TestMaskingFactory_CustomToken(t *testing.T) {
	sup, err := secrets.NewStatic("s3cr3t")
	require.NoError(t, err)

	reg := NewRegistry()
	reg.Register(NewMaskingFactory(StaticSource(sup), WithMaskToken("######")))

	ctx := NewExecContext("agent-1", "stdout")
	var sink bytes.Buffer
	out, err := reg.Resolve(ctx, &sink)
	require.NoError(t, err)

	_, err = out.Write([]byte("x s3cr3t y"))
	require.NoError(t, err)
	require.NoError(t, out.Close())

	assert.Equal(t, "x ###### y", sink.String())
}

func TestMaskingFactory_SourceFailureIsFatal(t *testing.T) {
	boom := errors.New("scope lookup failed")
	source := func(ctx *ExecContext) (secrets.Supplier, error) {
		return nil, boom
	}

	reg := NewRegistry()
	reg.Register(NewMaskingFactory(source))

	ctx := NewExecContext("agent-1", "stdout")
	var sink bytes.Buffer

	_, err := reg.Resolve(ctx, &sink)
	var protoErr verrors.ProtocolError
	require.ErrorAs(t, err, &protoErr)
	assert.Equal(t, "masking", protoErr.Factory)
	assert.ErrorIs(t, err, boom)
}

func TestChain_CloseFlushesAndIsIdempotent(t *testing.T) {
	sup, err := secrets.NewStatic("tail-value")
	require.NoError(t, err)

	reg := NewRegistry()
	reg.Register(NewMaskingFactory(StaticSource(sup)))

	ctx := NewExecContext("agent-1", "stdout")
	var sink bytes.Buffer
	out, err := reg.Resolve(ctx, &sink)
	require.NoError(t, err)

	// The secret completes only at Close
	_, err = out.Write([]byte("ends with tail-value"))
	require.NoError(t, err)

	require.NoError(t, out.Close())
	assert.Equal(t, "ends with ****", sink.String())

	require.NoError(t, out.Close())
	assert.Equal(t, "ends with ****", sink.String())
}

func TestStaticSource_SharedAcrossContexts(t *testing.T) {
	scope := secrets.NewScope("shared")
	require.NoError(t, scope.Add("live-secret"))

	source := StaticSource(scope)

	for _, node := range []string{"a", "b", "c"} {
		sup, err := source(NewExecContext(node, "stdout"))
		require.NoError(t, err)
		assert.Same(t, scope.Current(), sup.Current())
	}
}
