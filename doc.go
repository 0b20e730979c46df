// Package netsock provides blocking, dual-stack IPv4/IPv6 stream sockets
// with explicit lifecycle checks.
//
// A Socket moves through created, bound, connected and closed states, each
// at most once. Operations that need a state the socket has not reached, or
// has already left, fail with an IllegalState error from package neterr.
//
// # Clients
//
// Dial resolves a host, tries each address with the preferred family first
// and returns the first connected socket:
//
//	opts := netsock.NewOptions()
//	opts.ConnectTimeout = 5 * time.Second
//	sock, err := netsock.Dial("example.com", 80, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sock.Close()
//
//	buf, _ := sock.Stream()
//	buf.Write([]byte("GET / HTTP/1.0\r\n\r\n"))
//	buf.Flush()
//
// # Servers
//
//	srv, err := netsock.Listen(0, 0, netsock.NewOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	peer, err := srv.Accept()
//
// # Implementations
//
// Every socket delegates to an interfaces.SocketImpl obtained from a
// factory.Registry. Options.Registry selects the registry; it defaults to
// factory.Default, whose client and server factories may each be replaced
// once with SetSocketImplFactory and SetServerSocketImplFactory. Tests use
// factory.NewSimulationRegistry to run the same code against the in-memory
// network in package testing.
package netsock
