// Package sio is the transport primitive boundary of netsock.
//
// Everything netsock knows about the operating system goes through the
// Primitives interface: native handle creation, bind/connect/listen/accept,
// send/recv, shutdown/close, non-blocking toggling, bounded readiness waits,
// pending-error queries, local address queries, pending-byte counts and raw
// socket options. Name resolution goes through Resolver and wall-clock access
// through TimeProvider.
//
// Operations whose outcome callers must branch on (connect, accept, send,
// recv, poll) return a tagged Result instead of a bare error:
//
//	res := prims.Connect(h, sa)
//	switch res.Kind {
//	case sio.KindOK:
//	    // connected
//	case sio.KindInProgress:
//	    // wait for write readiness
//	default:
//	    return res.Err
//	}
//
// Default returns the primitives for the running platform, implemented on
// golang.org/x/sys/unix for Linux and Darwin.
package sio
