// Package real provides the default socket implementations of netsock.
//
// [SocketImpl] drives one native handle through an sio.Primitives. It is
// used for client sockets and for the peers returned by accept.
// [ServerSocketImpl] is identical except that Create also enables address
// reuse, so a restarted server can rebind its port immediately.
//
// # Connect With Timeout
//
// A zero timeout performs a blocking connect. Otherwise the handle is
// switched to non-blocking mode, the connect is started and the handle is
// polled for writability until the deadline taken from the configured
// sio.TimeProvider expires:
//
//	impl := real.NewSocketImpl(&interfaces.ImplConfig{TimeProvider: clock})
//	if err := impl.Create(sio.IPv4); err != nil {
//	    return err
//	}
//	err := impl.Connect(addr, 80, 2*time.Second)
//	if errors.Is(err, neterr.ErrTimeout) {
//	    // no answer within two seconds
//	}
//
// Interrupted polls are retried. When the handle becomes writable the
// pending socket error decides the outcome: zero is success, ETIMEDOUT is a
// TimeoutError and anything else a ConnectionError carrying the code.
// Blocking mode is restored on every path.
//
// # Reads And Writes
//
// Read issues one receive. An orderly peer shutdown is reported as io.EOF
// and latched; a receive that would block returns zero bytes. Write loops
// until every byte has been accepted.
package real
