// Package net provides Go standard library networking interfaces over
// netsock sockets.
//
// This package implements net.Conn, net.Listener, and net.Addr so code
// written against the standard library can run on netsock implementations,
// including the simulated network used in tests.
//
// The package provides:
//   - SockAddr: Implementation of net.Addr for socket endpoints
//   - Conn: Implementation of net.Conn over a connected netsock.Socket
//   - Listener: Implementation of net.Listener over a netsock.ServerSocket
//   - Dial/Listen functions for the "tcp", "tcp4" and "tcp6" networks
//
// Example usage:
//
//	ln, err := socknet.Listen("tcp", "127.0.0.1:0")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ln.Close()
//
//	conn, err := ln.Accept()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	io.Copy(os.Stdout, conn)
//
// Deadlines are applied through the socket receive and send timeouts, so a
// blocked call returns once the deadline passes with an error whose
// Timeout method reports true.
package net
