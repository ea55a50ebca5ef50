package decorate

import (
	"io"

	"github.com/veilstream/veil/internal/maskio"
	"github.com/veilstream/veil/internal/secrets"
)

// MaskingFactory is the built-in decorator factory: it binds a masking
// stream to the context's secret supplier. The supplier is re-resolved
// through the SupplierSource for every context, so a context on any
// node sees the same secret set without a stream object ever crossing
// between nodes.
type MaskingFactory struct {
	source   SupplierSource
	token    string
	recorder func(ctx *ExecContext) maskio.Recorder
}

// MaskingOption configures a MaskingFactory.
type MaskingOption func(*MaskingFactory)

// WithMaskToken overrides the token substituted for confirmed matches.
func WithMaskToken(token string) MaskingOption {
	return func(f *MaskingFactory) {
		if token != "" {
			f.token = token
		}
	}
}

// WithStreamRecorder attaches a per-context masking statistics
// recorder.
func WithStreamRecorder(fn func(ctx *ExecContext) maskio.Recorder) MaskingOption {
	return func(f *MaskingFactory) {
		f.recorder = fn
	}
}

// NewMaskingFactory creates the masking decorator factory. source must
// be resolvable on every node that will own a context.
func NewMaskingFactory(source SupplierSource, opts ...MaskingOption) *MaskingFactory {
	f := &MaskingFactory{
		source: source,
		token:  maskio.DefaultToken,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Name implements Factory.
func (f *MaskingFactory) Name() string {
	return "masking"
}

// Of implements Factory. The supplier lookup happens here, locally on
// the resolving node; its failure makes the whole context unwritable.
func (f *MaskingFactory) Of(ctx *ExecContext) (Decorator, error) {
	supplier, err := f.source(ctx)
	if err != nil {
		return nil, err
	}
	d := &maskingDecorator{supplier: supplier, token: f.token}
	if f.recorder != nil {
		d.rec = f.recorder(ctx)
	}
	return d, nil
}

type maskingDecorator struct {
	supplier secrets.Supplier
	token    string
	rec      maskio.Recorder
}

func (d *maskingDecorator) Decorate(sink io.Writer) io.Writer {
	opts := []maskio.Option{maskio.WithToken(d.token)}
	if d.rec != nil {
		opts = append(opts, maskio.WithRecorder(d.rec))
	}
	return maskio.NewWriter(sink, d.supplier, opts...)
}

var _ Factory = (*MaskingFactory)(nil)
