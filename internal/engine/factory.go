package engine

// Factory builds engines sharing one transport and one option set. The
// owner constructs it explicitly and passes it where documents are shown.
type Factory struct {
	transport Transport
	opts      []Option
}

// NewFactory creates a factory for engines sending through transport.
func NewFactory(transport Transport, opts ...Option) *Factory {
	return &Factory{transport: transport, opts: opts}
}

// New creates an engine for producer. extra options are applied after the
// factory's own.
func (f *Factory) New(producer SnapshotProducer, extra ...Option) *Engine {
	opts := make([]Option, 0, len(f.opts)+len(extra))
	opts = append(opts, f.opts...)
	opts = append(opts, extra...)
	return New(f.transport, producer, opts...)
}

// Transport returns the transport shared by every engine of the factory.
func (f *Factory) Transport() Transport { return f.transport }
