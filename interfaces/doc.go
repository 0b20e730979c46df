// Package interfaces defines the socket implementation contract of netsock.
//
// The facades in the root package never touch native handles directly. They
// drive a [SocketImpl], which owns exactly one handle and performs create,
// bind, connect, accept, read and write against an [sio.Primitives]. This
// allows the same facade code to run over the platform primitives, an
// instrumented decorator, or an in-memory simulation.
//
// # Implementation Selection
//
// An [ImplFactory] creates fresh, uninitialised implementations. The factory
// package holds the write-once client and server factories:
//
//	reg := factory.NewRegistry()
//	if err := reg.SetClientFactory(interfaces.ImplFactoryFunc(newImpl)); err != nil {
//	    log.Fatal(err)
//	}
//
// [ImplConfig] selects the primitives and clock an implementation is built
// on:
//
//	cfg := &interfaces.ImplConfig{
//	    Primitives:    sim,
//	    TimeProvider:  clock,
//	    UseSimulation: true,
//	}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatalf("invalid config: %v", err)
//	}
//
// # Thread Safety
//
// A SocketImpl is not safe for concurrent use. One facade owns one
// implementation and callers serialise access to the facade.
//
// # Error Handling
//
// Methods return neterr errors:
//   - Create, Bind, Listen, Accept, options: ConnectionError
//   - Connect: ConnectionError, or TimeoutError when the deadline expires
//   - Read, Write: IO error; Read reports io.EOF after the peer closes
package interfaces
