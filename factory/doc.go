// Package factory holds the socket implementation factories of netsock.
//
// A [Registry] carries one client factory and one server factory. Each may
// be installed once; a second install fails with IllegalState instead of
// silently replacing the first. Until a factory is installed the registry
// builds the real implementations on its [interfaces.ImplConfig].
//
// # Registries
//
// [Default] is the process registry used by facades whose Options carry no
// Registry. Install into it once during startup:
//
//	if err := factory.Default.SetClientFactory(collector.Factory(nil)); err != nil {
//	    log.Fatal(err)
//	}
//
// Tests and embedders that need isolation create their own registry and pass
// it through Options.
//
// # Testing Support
//
// NewSimulationRegistry builds the real implementations on an in-memory
// network, so facades can be exercised without touching the host stack:
//
//	func TestMyFeature(t *testing.T) {
//	    sim := simnet.NewNetwork(nil)
//	    reg := factory.NewSimulationRegistry(sim)
//	    // pass reg through netsock.Options...
//	}
package factory
