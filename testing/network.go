package testing

import (
	"net/netip"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/netsock/sio"
)

// Op names a primitive for error injection and call records.
type Op string

const (
	OpSocket      Op = "socket"
	OpBind        Op = "bind"
	OpConnect     Op = "connect"
	OpListen      Op = "listen"
	OpAccept      Op = "accept"
	OpSend        Op = "send"
	OpRecv        Op = "recv"
	OpShutdown    Op = "shutdown"
	OpClose       Op = "close"
	OpSetNonblock Op = "setnonblock"
	OpPoll        Op = "poll"
	OpSockname    Op = "sockname"
	OpAvailable   Op = "available"
	OpGetOption   Op = "getoption"
	OpSetOption   Op = "setoption"
)

// ConnectScript controls how a connect to one destination unfolds.
type ConnectScript struct {
	// Initial is the Result of the Connect call itself.
	Initial sio.Result
	// Polls are returned by successive writable polls. Once exhausted a
	// poll reports ready.
	Polls []sio.Result
	// PollElapsed advances the clock on every poll that is not a timeout.
	// A timed-out poll advances the clock by its own timeout.
	PollElapsed time.Duration
	// PendingError is reported by SocketError once the socket is writable.
	PendingError syscall.Errno
}

// CallRecord is one primitive invocation, kept for test verification.
type CallRecord struct {
	Op          Op
	Handle      sio.Handle
	Nonblocking bool
	Kind        sio.Kind
	Timestamp   time.Time
}

type simSocket struct {
	handle      sio.Handle
	family      sio.Family
	nonblocking bool

	bound    sio.Sockaddr
	isBound  bool
	remote   sio.Sockaddr
	listen   bool
	backlog  int
	pending  []*simSocket
	peer     *simSocket
	inbuf    []byte
	oob      []byte
	readShut bool
	peerEOF  bool
	wrShut   bool

	options  map[sio.Option]int
	script   *ConnectScript
	pollIdx  int
	sockErr  syscall.Errno
	dest     sio.Sockaddr
	awaiting bool
}

// Network is an in-memory sio.Primitives. It never blocks: a blocking
// operation that cannot complete behaves as if its receive timeout expired.
// All methods are safe for concurrent use.
type Network struct {
	mu       sync.Mutex
	clock    *ManualClock
	next     sio.Handle
	sockets  map[sio.Handle]*simSocket
	nextPort uint16
	scripts  map[string]*ConnectScript
	inject   map[Op][]syscall.Errno
	sendMax  int
	callLog  []CallRecord
}

// NewNetwork creates an empty simulated network on clock. A nil clock
// starts a new ManualClock at the Unix epoch.
func NewNetwork(clock *ManualClock) *Network {
	logrus.Warn("SIMULATION FUNCTION - NOT A REAL OPERATION")
	if clock == nil {
		clock = NewManualClock(time.Unix(0, 0))
	}
	logrus.WithFields(logrus.Fields{
		"function": "NewNetwork",
	}).Info("Creating simulated socket network for testing")

	return &Network{
		clock:    clock,
		next:     3,
		sockets:  make(map[sio.Handle]*simSocket),
		nextPort: 40000,
		scripts:  make(map[string]*ConnectScript),
		inject:   make(map[Op][]syscall.Errno),
	}
}

// Clock returns the clock shared with the network.
func (n *Network) Clock() *ManualClock {
	return n.clock
}

// ScriptConnect installs the connect behaviour for destination sa.
func (n *Network) ScriptConnect(sa sio.Sockaddr, script ConnectScript) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.scripts[sa.String()] = &script
}

// InjectError makes the next call of op fail with errno. Injections queue.
func (n *Network) InjectError(op Op, errno syscall.Errno) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.inject[op] = append(n.inject[op], errno)
}

// SetMaxSend limits the bytes accepted by one Send. Zero removes the limit.
func (n *Network) SetMaxSend(max int) {
	n.mu.Lock()
	n.sendMax = max
	n.mu.Unlock()
}

// GetCallLog returns a copy of the recorded calls.
func (n *Network) GetCallLog() []CallRecord {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]CallRecord, len(n.callLog))
	copy(out, n.callLog)
	return out
}

// ClearCallLog drops the recorded calls.
func (n *Network) ClearCallLog() {
	n.mu.Lock()
	n.callLog = nil
	n.mu.Unlock()
}

// IsNonblocking reports the current mode of h.
func (n *Network) IsNonblocking(h sio.Handle) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	s, ok := n.sockets[h]
	return ok && s.nonblocking
}

// OpenHandles returns the number of handles not yet closed.
func (n *Network) OpenHandles() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sockets)
}

// UrgentData returns the out-of-band bytes received on h.
func (n *Network) UrgentData(h sio.Handle) []byte {
	n.mu.Lock()
	defer n.mu.Unlock()
	if s, ok := n.sockets[h]; ok {
		return append([]byte(nil), s.oob...)
	}
	return nil
}

func (n *Network) record(op Op, s *simSocket, h sio.Handle, kind sio.Kind) {
	rec := CallRecord{Op: op, Handle: h, Kind: kind, Timestamp: n.clock.Now()}
	if s != nil {
		rec.Nonblocking = s.nonblocking
	}
	n.callLog = append(n.callLog, rec)
}

func (n *Network) takeInjected(op Op) syscall.Errno {
	queue := n.inject[op]
	if len(queue) == 0 {
		return 0
	}
	n.inject[op] = queue[1:]
	return queue[0]
}

func (n *Network) lookup(op Op, h sio.Handle) (*simSocket, error) {
	if errno := n.takeInjected(op); errno != 0 {
		n.record(op, n.sockets[h], h, sio.KindFatal)
		return nil, errno
	}
	s, ok := n.sockets[h]
	if !ok {
		n.record(op, nil, h, sio.KindFatal)
		return nil, syscall.EBADF
	}
	return s, nil
}

func fatal(errno syscall.Errno) sio.Result {
	return sio.Result{Kind: sio.KindFatal, Err: errno}
}

func key(sa sio.Sockaddr) string {
	return sio.Sockaddr{Addr: sa.Addr, Port: sa.Port}.String()
}

func anyKey(family sio.Family, port uint16) string {
	return key(sio.Sockaddr{Addr: make([]byte, family.AddrLen()), Port: port})
}

func (n *Network) ephemeralPort() uint16 {
	n.nextPort++
	return n.nextPort
}

func (n *Network) boundTo(k string) *simSocket {
	for _, s := range n.sockets {
		if s.isBound && key(s.bound) == k {
			return s
		}
	}
	return nil
}

func (n *Network) findListener(sa sio.Sockaddr) *simSocket {
	k := key(sa)
	wild := anyKey(sa.Family(), sa.Port)
	for _, s := range n.sockets {
		if !s.listen {
			continue
		}
		if bk := key(s.bound); bk == k || bk == wild {
			return s
		}
	}
	return nil
}

// Socket allocates a simulated handle.
func (n *Network) Socket(family sio.Family) (sio.Handle, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if errno := n.takeInjected(OpSocket); errno != 0 {
		n.record(OpSocket, nil, sio.InvalidHandle, sio.KindFatal)
		return sio.InvalidHandle, errno
	}
	if family.AddrLen() == 0 {
		return sio.InvalidHandle, syscall.EAFNOSUPPORT
	}
	h := n.next
	n.next++
	n.sockets[h] = &simSocket{
		handle:  h,
		family:  family,
		options: map[sio.Option]int{sio.OptLinger: -1, sio.OptReceiveBuffer: 65536, sio.OptSendBuffer: 65536},
	}
	n.record(OpSocket, n.sockets[h], h, sio.KindOK)
	return h, nil
}

// Bind claims an address. A port of zero picks an ephemeral one.
func (n *Network) Bind(h sio.Handle, sa sio.Sockaddr) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	s, err := n.lookup(OpBind, h)
	if err != nil {
		return err
	}
	if s.isBound || len(sa.Addr) != s.family.AddrLen() {
		n.record(OpBind, s, h, sio.KindFatal)
		return syscall.EINVAL
	}
	if sa.Port == 0 {
		sa.Port = n.ephemeralPort()
	} else if other := n.boundTo(key(sa)); other != nil && (other.listen || s.options[sio.OptReuseAddr] == 0) {
		n.record(OpBind, s, h, sio.KindFatal)
		return syscall.EADDRINUSE
	}
	s.bound = sio.Sockaddr{Addr: append([]byte(nil), sa.Addr...), Port: sa.Port}
	s.isBound = true
	n.record(OpBind, s, h, sio.KindOK)
	return nil
}

// Listen starts queueing connections to the bound address.
func (n *Network) Listen(h sio.Handle, backlog int) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	s, err := n.lookup(OpListen, h)
	if err != nil {
		return err
	}
	if !s.isBound {
		s.bound = sio.Sockaddr{Addr: make([]byte, s.family.AddrLen()), Port: n.ephemeralPort()}
		s.isBound = true
	}
	s.listen = true
	s.backlog = backlog
	n.record(OpListen, s, h, sio.KindOK)
	return nil
}

// Connect completes against a listener, or returns the next scripted result.
func (n *Network) Connect(h sio.Handle, sa sio.Sockaddr) sio.Result {
	n.mu.Lock()
	defer n.mu.Unlock()

	s, err := n.lookup(OpConnect, h)
	if err != nil {
		return sio.ResultOf(err)
	}
	if s.peer != nil {
		n.record(OpConnect, s, h, sio.KindFatal)
		return fatal(syscall.EISCONN)
	}

	s.dest = sio.Sockaddr{Addr: append([]byte(nil), sa.Addr...), Port: sa.Port}
	if script, ok := n.scripts[key(sa)]; ok {
		s.script = script
		s.pollIdx = 0
		res := script.Initial
		switch res.Kind {
		case sio.KindOK:
			res = n.establish(s)
		case sio.KindInProgress, sio.KindInterrupted:
			s.awaiting = true
		}
		n.record(OpConnect, s, h, res.Kind)
		return res
	}

	res := n.establish(s)
	n.record(OpConnect, s, h, res.Kind)
	return res
}

// establish links s to a listener at s.dest.
func (n *Network) establish(s *simSocket) sio.Result {
	ln := n.findListener(s.dest)
	if ln == nil {
		return fatal(syscall.ECONNREFUSED)
	}
	if ln.backlog > 0 && len(ln.pending) >= ln.backlog {
		return fatal(syscall.ECONNREFUSED)
	}
	if !s.isBound {
		s.bound = sio.Sockaddr{Addr: append([]byte(nil), s.dest.Addr...), Port: n.ephemeralPort()}
		s.isBound = true
	} else if isZero(s.bound.Addr) {
		// A wildcard binding takes the destination as its source address.
		s.bound.Addr = append([]byte(nil), s.dest.Addr...)
	}
	server := &simSocket{
		handle:  sio.InvalidHandle,
		family:  ln.family,
		bound:   sio.Sockaddr{Addr: append([]byte(nil), s.dest.Addr...), Port: ln.bound.Port},
		isBound: true,
		remote:  s.bound,
		options: map[sio.Option]int{sio.OptLinger: -1, sio.OptReceiveBuffer: 65536, sio.OptSendBuffer: 65536},
	}
	server.peer = s
	s.peer = server
	s.remote = s.dest
	ln.pending = append(ln.pending, server)
	return sio.OK(0)
}

func isZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

// Accept dequeues a pending connection. An empty queue would block.
func (n *Network) Accept(h sio.Handle) (sio.Handle, sio.Sockaddr, sio.Result) {
	n.mu.Lock()
	defer n.mu.Unlock()

	s, err := n.lookup(OpAccept, h)
	if err != nil {
		return sio.InvalidHandle, sio.Sockaddr{}, sio.ResultOf(err)
	}
	if !s.listen {
		n.record(OpAccept, s, h, sio.KindFatal)
		return sio.InvalidHandle, sio.Sockaddr{}, fatal(syscall.EINVAL)
	}
	if len(s.pending) == 0 {
		n.record(OpAccept, s, h, sio.KindWouldBlock)
		return sio.InvalidHandle, sio.Sockaddr{}, sio.Result{Kind: sio.KindWouldBlock, Err: syscall.EAGAIN}
	}

	conn := s.pending[0]
	s.pending = s.pending[1:]
	conn.handle = n.next
	n.next++
	n.sockets[conn.handle] = conn
	n.record(OpAccept, s, h, sio.KindOK)
	return conn.handle, conn.remote, sio.OK(0)
}

// Send appends to the peer receive buffer, honoring any partial-send script.
func (n *Network) Send(h sio.Handle, p []byte, flags sio.SendFlags) sio.Result {
	n.mu.Lock()
	defer n.mu.Unlock()

	s, err := n.lookup(OpSend, h)
	if err != nil {
		return sio.ResultOf(err)
	}
	switch {
	case s.wrShut:
		n.record(OpSend, s, h, sio.KindFatal)
		return fatal(syscall.EPIPE)
	case s.peer == nil:
		n.record(OpSend, s, h, sio.KindFatal)
		return fatal(syscall.ENOTCONN)
	}

	if flags&sio.SendOOB != 0 {
		s.peer.oob = append(s.peer.oob, p...)
		n.record(OpSend, s, h, sio.KindOK)
		return sio.OK(len(p))
	}

	count := len(p)
	if n.sendMax > 0 && count > n.sendMax {
		count = n.sendMax
	}
	if !s.peer.readShut {
		s.peer.inbuf = append(s.peer.inbuf, p[:count]...)
	}
	n.record(OpSend, s, h, sio.KindOK)
	return sio.OK(count)
}

// Recv drains the receive buffer. An empty, open buffer would block.
func (n *Network) Recv(h sio.Handle, p []byte) sio.Result {
	n.mu.Lock()
	defer n.mu.Unlock()

	s, err := n.lookup(OpRecv, h)
	if err != nil {
		return sio.ResultOf(err)
	}
	if s.readShut {
		n.record(OpRecv, s, h, sio.KindClosed)
		return sio.Result{Kind: sio.KindClosed}
	}
	if len(s.inbuf) == 0 {
		if s.peerEOF || s.peer == nil {
			n.record(OpRecv, s, h, sio.KindClosed)
			return sio.Result{Kind: sio.KindClosed}
		}
		n.record(OpRecv, s, h, sio.KindWouldBlock)
		return sio.Result{Kind: sio.KindWouldBlock, Err: syscall.EAGAIN}
	}

	count := copy(p, s.inbuf)
	s.inbuf = s.inbuf[count:]
	n.record(OpRecv, s, h, sio.KindOK)
	return sio.OK(count)
}

// Shutdown closes one direction of a connection.
func (n *Network) Shutdown(h sio.Handle, how sio.ShutdownHow) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	s, err := n.lookup(OpShutdown, h)
	if err != nil {
		return err
	}
	if s.peer == nil {
		n.record(OpShutdown, s, h, sio.KindFatal)
		return syscall.ENOTCONN
	}
	switch how {
	case sio.ShutdownRead:
		s.readShut = true
		s.inbuf = nil
	case sio.ShutdownWrite:
		s.wrShut = true
		s.peer.peerEOF = true
	}
	n.record(OpShutdown, s, h, sio.KindOK)
	return nil
}

// Close releases a handle and signals end of stream to its peer.
func (n *Network) Close(h sio.Handle) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	s, err := n.lookup(OpClose, h)
	if err != nil {
		return err
	}
	if s.peer != nil {
		s.peer.peerEOF = true
		s.peer.peer = nil
		s.peer = nil
	}
	if s.listen {
		s.pending = nil
	}
	delete(n.sockets, h)
	n.record(OpClose, s, h, sio.KindOK)
	return nil
}

// SetNonblock records the blocking mode.
func (n *Network) SetNonblock(h sio.Handle, nonblocking bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	s, err := n.lookup(OpSetNonblock, h)
	if err != nil {
		return err
	}
	s.nonblocking = nonblocking
	n.record(OpSetNonblock, s, h, sio.KindOK)
	return nil
}

// Poll reports readiness immediately. It never waits.
func (n *Network) Poll(h sio.Handle, events sio.Event, timeoutMs int) sio.Result {
	n.mu.Lock()
	defer n.mu.Unlock()

	s, err := n.lookup(OpPoll, h)
	if err != nil {
		return sio.ResultOf(err)
	}

	connecting := s.awaiting
	res := n.pollResult(s, events)
	if res.Kind == sio.KindTimedOut {
		if timeoutMs > 0 {
			n.clock.Advance(time.Duration(timeoutMs) * time.Millisecond)
		}
	} else if connecting {
		n.clock.Advance(s.script.PollElapsed)
	}
	n.record(OpPoll, s, h, res.Kind)
	return res
}

func (n *Network) pollResult(s *simSocket, events sio.Event) sio.Result {
	if s.awaiting && events&sio.EventWritable != 0 {
		if s.pollIdx < len(s.script.Polls) {
			res := s.script.Polls[s.pollIdx]
			s.pollIdx++
			if res.Kind != sio.KindOK {
				return res
			}
		}
		s.awaiting = false
		s.sockErr = s.script.PendingError
		if s.sockErr == 0 {
			if res := n.establish(s); res.Kind != sio.KindOK {
				s.sockErr = res.Code()
			}
		}
		return sio.OK(1)
	}

	if events&sio.EventReadable != 0 {
		if len(s.pending) > 0 || len(s.inbuf) > 0 || s.peerEOF || s.readShut {
			return sio.OK(1)
		}
	}
	if events&sio.EventWritable != 0 && s.peer != nil && !s.wrShut {
		return sio.OK(1)
	}
	return sio.Result{Kind: sio.KindTimedOut}
}

// SocketError returns and clears the pending error of a connect.
func (n *Network) SocketError(h sio.Handle) (syscall.Errno, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	s, ok := n.sockets[h]
	if !ok {
		return 0, syscall.EBADF
	}
	code := s.sockErr
	s.sockErr = 0
	return code, nil
}

// Sockname returns the bound address.
func (n *Network) Sockname(h sio.Handle) (sio.Sockaddr, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	s, err := n.lookup(OpSockname, h)
	if err != nil {
		return sio.Sockaddr{}, err
	}
	if !s.isBound {
		return sio.Sockaddr{Addr: make([]byte, s.family.AddrLen())}, nil
	}
	return sio.Sockaddr{Addr: append([]byte(nil), s.bound.Addr...), Port: s.bound.Port}, nil
}

// Available returns the buffered byte count.
func (n *Network) Available(h sio.Handle) (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	s, err := n.lookup(OpAvailable, h)
	if err != nil {
		return 0, err
	}
	return len(s.inbuf), nil
}

// GetOption returns a stored option value.
func (n *Network) GetOption(h sio.Handle, family sio.Family, opt sio.Option) (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	s, err := n.lookup(OpGetOption, h)
	if err != nil {
		return 0, err
	}
	if opt < sio.OptReuseAddr || opt > sio.OptTrafficClass {
		return 0, syscall.ENOPROTOOPT
	}
	return s.options[opt], nil
}

// SetOption stores an option value.
func (n *Network) SetOption(h sio.Handle, family sio.Family, opt sio.Option, value int) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	s, err := n.lookup(OpSetOption, h)
	if err != nil {
		return err
	}
	if opt < sio.OptReuseAddr || opt > sio.OptTrafficClass {
		return syscall.ENOPROTOOPT
	}
	if opt == sio.OptLinger && value < 0 {
		value = -1
	}
	s.options[opt] = value
	n.record(OpSetOption, s, h, sio.KindOK)
	return nil
}

// Addr is a convenience for building a Sockaddr from a literal.
func Addr(literal string, port uint16) sio.Sockaddr {
	ip := netip.MustParseAddr(literal)
	return sio.Sockaddr{Addr: ip.AsSlice(), Port: port}
}

var _ sio.Primitives = (*Network)(nil)
