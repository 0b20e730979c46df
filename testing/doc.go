// Package testing provides in-memory socket primitives for deterministic
// testing of netsock.
//
// # Overview
//
// [Network] implements sio.Primitives entirely in memory. Listeners,
// connections and their byte queues live inside the Network, so the real
// socket implementations can be exercised end to end without touching the
// host network stack. [ManualClock] is a sio.TimeProvider that only moves
// when the test or the Network advances it.
//
// # Simulation vs Real Primitives
//
//   - Simulation (this package): every call completes immediately. A call
//     that would block on a real socket reports would-block, as if the
//     receive timeout had expired.
//
//   - Real (sio.Default): the platform socket API.
//
// Both satisfy sio.Primitives, so the factory package can build the same
// real implementations on either.
//
// # Usage
//
//	clock := testing.NewManualClock(time.Unix(0, 0))
//	sim := testing.NewNetwork(clock)
//
//	// A connect that stays in progress for two polls, then succeeds.
//	sim.ScriptConnect(testing.Addr("192.0.2.1", 80), testing.ConnectScript{
//	    Initial: sio.Result{Kind: sio.KindInProgress},
//	    Polls:   []sio.Result{{Kind: sio.KindInterrupted}, {Kind: sio.KindInterrupted}},
//	})
//
//	// Make the next send fail.
//	sim.InjectError(testing.OpSend, syscall.EPIPE)
//
// # Call Logs
//
// The Network records every primitive call. Each CallRecord contains the
// operation, the handle, the handle's blocking mode at the time of the call
// and the resulting kind. Use GetCallLog to retrieve the log and
// ClearCallLog to reset between test cases.
//
// # Thread Safety
//
// All methods on Network and ManualClock are safe for concurrent use.
package testing
