package orm

import (
	"sync"

	"go.uber.org/zap"
)

// Middleware extends a Modeller at setup time, typically by installing a
// capability with Extend.
type Middleware func(m *Modeller)

// Option configures a Modeller.
type Option func(m *Modeller)

// WithLogger sets the logger used by models and plugins.
// The default is zap.NewNop().
func WithLogger(l *zap.Logger) Option {
	return func(m *Modeller) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithTimestamps makes every model maintain created_at and updated_at
// columns on save.
func WithTimestamps() Option {
	return func(m *Modeller) { m.timestamps = true }
}

// Modeller binds models to a Driver and holds the capabilities installed by
// middleware.
type Modeller struct {
	driver     Driver
	logger     *zap.Logger
	timestamps bool

	mu           sync.RWMutex
	models       map[string]*Model
	capabilities map[string]any
}

// New returns a Modeller persisting through d.
func New(d Driver, opts ...Option) *Modeller {
	m := &Modeller{
		driver:       d,
		logger:       zap.NewNop(),
		models:       make(map[string]*Model),
		capabilities: make(map[string]any),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Use runs each middleware against m and returns m.
func (m *Modeller) Use(mws ...Middleware) *Modeller {
	for _, mw := range mws {
		mw(m)
	}
	return m
}

// Extend installs capability under name, replacing any previous one.
func (m *Modeller) Extend(name string, capability any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.capabilities[name] = capability
	m.logger.Debug("orm: capability installed", zap.String("capability", name))
}

// Capability returns the capability installed under name.
func (m *Modeller) Capability(name string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.capabilities[name]
	return c, ok
}

// CreateModel returns the model for table, creating it on first use.
func (m *Modeller) CreateModel(table string) *Model {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mdl, ok := m.models[table]; ok {
		return mdl
	}
	mdl := &Model{
		modeller:  m,
		table:     table,
		relations: make(map[string]RelationFunc),
	}
	m.models[table] = mdl
	return mdl
}

// Model returns the model previously created for table.
func (m *Modeller) Model(table string) (*Model, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mdl, ok := m.models[table]
	return mdl, ok
}

// Driver returns the persistence backend.
func (m *Modeller) Driver() Driver { return m.driver }

// Logger returns the configured logger.
func (m *Modeller) Logger() *zap.Logger { return m.logger }
