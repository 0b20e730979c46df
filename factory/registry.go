package factory

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/netsock/interfaces"
	"github.com/opd-ai/netsock/neterr"
	"github.com/opd-ai/netsock/real"
	"github.com/opd-ai/netsock/testing"
)

// Registry holds write-once client and server factories. It is safe for
// concurrent use.
type Registry struct {
	mu     sync.RWMutex
	config interfaces.ImplConfig
	client interfaces.ImplFactory
	server interfaces.ImplFactory
}

// Default is the process registry.
var Default = NewRegistry()

// NewRegistry creates a registry on the platform primitives.
func NewRegistry() *Registry {
	return &Registry{}
}

// NewRegistryWithConfig creates a registry whose default implementations
// are built on cfg.
func NewRegistryWithConfig(cfg *interfaces.ImplConfig) (*Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"function":       "NewRegistryWithConfig",
		"use_simulation": cfg.UseSimulation,
	}).Debug("Created implementation registry")
	return &Registry{config: *cfg}, nil
}

// NewSimulationRegistry creates a registry whose default implementations
// run on the simulated network n and its clock.
func NewSimulationRegistry(n *testing.Network) *Registry {
	logrus.WithFields(logrus.Fields{
		"function": "NewSimulationRegistry",
		"type":     "simulation",
	}).Info("Creating simulation registry for testing")

	return &Registry{config: interfaces.ImplConfig{
		Primitives:    n,
		TimeProvider:  n.Clock(),
		UseSimulation: true,
	}}
}

// Config returns a copy of the implementation configuration.
func (r *Registry) Config() interfaces.ImplConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.config
}

// IsUsingSimulation reports whether default implementations are simulated.
func (r *Registry) IsUsingSimulation() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.config.UseSimulation
}

// SetClientFactory installs the client factory. It may be called once.
func (r *Registry) SetClientFactory(f interfaces.ImplFactory) error {
	return r.install("client", &r.client, f)
}

// SetServerFactory installs the server factory. It may be called once.
func (r *Registry) SetServerFactory(f interfaces.ImplFactory) error {
	return r.install("server", &r.server, f)
}

func (r *Registry) install(kind string, slot *interfaces.ImplFactory, f interfaces.ImplFactory) error {
	if f == nil {
		return neterr.InvalidArgument("Registry.Set"+kind, "nil %s factory", kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if *slot != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Registry.install",
			"kind":     kind,
		}).Warn("Socket implementation factory already installed")
		return neterr.IllegalState("Registry.Set"+kind, kind+" factory already defined")
	}
	*slot = f

	logrus.WithFields(logrus.Fields{
		"function": "Registry.install",
		"kind":     kind,
	}).Info("Installed socket implementation factory")
	return nil
}

// HasClientFactory reports whether a client factory has been installed.
func (r *Registry) HasClientFactory() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.client != nil
}

// HasServerFactory reports whether a server factory has been installed.
func (r *Registry) HasServerFactory() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.server != nil
}

// NewClientImpl returns a fresh client implementation.
func (r *Registry) NewClientImpl() interfaces.SocketImpl {
	r.mu.RLock()
	f, cfg := r.client, r.config
	r.mu.RUnlock()

	if f != nil {
		return f.CreateSocketImpl()
	}
	return real.NewSocketImpl(&cfg)
}

// NewServerImpl returns a fresh listening implementation.
func (r *Registry) NewServerImpl() interfaces.SocketImpl {
	r.mu.RLock()
	f, cfg := r.server, r.config
	r.mu.RUnlock()

	if f != nil {
		return f.CreateSocketImpl()
	}
	return real.NewServerSocketImpl(&cfg)
}

// ClientFactory returns the factory NewClientImpl uses, the real default
// when none is installed.
func (r *Registry) ClientFactory() interfaces.ImplFactory {
	return interfaces.ImplFactoryFunc(r.NewClientImpl)
}

// ServerFactory returns the factory NewServerImpl uses.
func (r *Registry) ServerFactory() interfaces.ImplFactory {
	return interfaces.ImplFactoryFunc(r.NewServerImpl)
}
