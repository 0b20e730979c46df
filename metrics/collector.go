// Package metrics instruments socket implementations with Prometheus
// counters.
//
// A Collector owns the metric vectors and wraps implementations so every
// connect, accept, read, write and close is counted:
//
//	reg := prometheus.NewRegistry()
//	collector := metrics.NewCollector(reg)
//	factory.Default.SetClientFactory(collector.Factory(nil))
//	factory.Default.SetServerFactory(collector.ServerFactory(nil))
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/opd-ai/netsock/address"
	"github.com/opd-ai/netsock/interfaces"
	"github.com/opd-ai/netsock/neterr"
	"github.com/opd-ai/netsock/real"
	"github.com/opd-ai/netsock/sio"
)

// Result label values.
const (
	ResultOK      = "ok"
	ResultTimeout = "timeout"
	ResultError   = "error"
)

// Collector holds the netsock metric vectors.
type Collector struct {
	connects     *prometheus.CounterVec
	accepts      *prometheus.CounterVec
	readBytes    prometheus.Counter
	writtenBytes prometheus.Counter
	openSockets  prometheus.Gauge
}

// NewCollector creates the metrics and registers them on reg. A nil reg
// leaves them unregistered.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		connects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "netsock_connect_total",
			Help: "Connect attempts by result.",
		}, []string{"result"}),
		accepts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "netsock_accept_total",
			Help: "Accept attempts by result.",
		}, []string{"result"}),
		readBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "netsock_read_bytes_total",
			Help: "Bytes read from connected sockets.",
		}),
		writtenBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "netsock_written_bytes_total",
			Help: "Bytes written to connected sockets.",
		}),
		openSockets: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "netsock_open_sockets",
			Help: "Native handles currently open.",
		}),
	}
	if reg != nil {
		reg.MustRegister(c.connects, c.accepts, c.readBytes, c.writtenBytes, c.openSockets)
	}
	return c
}

// Connects returns the connect counter for result.
func (c *Collector) Connects(result string) prometheus.Counter {
	return c.connects.WithLabelValues(result)
}

// Accepts returns the accept counter for result.
func (c *Collector) Accepts(result string) prometheus.Counter {
	return c.accepts.WithLabelValues(result)
}

// ReadBytes returns the read byte counter.
func (c *Collector) ReadBytes() prometheus.Counter { return c.readBytes }

// WrittenBytes returns the written byte counter.
func (c *Collector) WrittenBytes() prometheus.Counter { return c.writtenBytes }

// OpenSockets returns the open handle gauge.
func (c *Collector) OpenSockets() prometheus.Gauge { return c.openSockets }

// Wrap returns impl instrumented with c.
func (c *Collector) Wrap(impl interfaces.SocketImpl) interfaces.SocketImpl {
	return &instrumented{SocketImpl: impl, c: c}
}

// Factory returns a client factory producing instrumented implementations
// of inner. A nil inner uses the real client implementation.
func (c *Collector) Factory(inner interfaces.ImplFactory) interfaces.ImplFactory {
	if inner == nil {
		inner = interfaces.ImplFactoryFunc(func() interfaces.SocketImpl {
			return real.NewSocketImpl(nil)
		})
	}
	return interfaces.ImplFactoryFunc(func() interfaces.SocketImpl {
		return c.Wrap(inner.CreateSocketImpl())
	})
}

// ServerFactory is Factory with the real server implementation as default.
func (c *Collector) ServerFactory(inner interfaces.ImplFactory) interfaces.ImplFactory {
	if inner == nil {
		inner = interfaces.ImplFactoryFunc(func() interfaces.SocketImpl {
			return real.NewServerSocketImpl(nil)
		})
	}
	return c.Factory(inner)
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, neterr.ErrTimeout):
		return ResultTimeout
	default:
		return ResultError
	}
}

type instrumented struct {
	interfaces.SocketImpl
	c *Collector
}

func (i *instrumented) Create(family sio.Family) error {
	err := i.SocketImpl.Create(family)
	if err == nil {
		i.c.openSockets.Inc()
	}
	return err
}

func (i *instrumented) Connect(addr *address.NetworkAddress, port uint16, timeout time.Duration) error {
	err := i.SocketImpl.Connect(addr, port, timeout)
	i.c.connects.WithLabelValues(resultOf(err)).Inc()
	return err
}

func (i *instrumented) ConnectHost(host string, port uint16, timeout time.Duration) error {
	err := i.SocketImpl.ConnectHost(host, port, timeout)
	i.c.connects.WithLabelValues(resultOf(err)).Inc()
	return err
}

func (i *instrumented) Accept(peer interfaces.SocketImpl) error {
	err := i.SocketImpl.Accept(peer)
	i.c.accepts.WithLabelValues(resultOf(err)).Inc()
	if err == nil {
		i.c.openSockets.Inc()
	}
	return err
}

func (i *instrumented) Read(p []byte) (int, error) {
	n, err := i.SocketImpl.Read(p)
	if n > 0 {
		i.c.readBytes.Add(float64(n))
	}
	return n, err
}

func (i *instrumented) Write(p []byte) error {
	err := i.SocketImpl.Write(p)
	if err == nil {
		i.c.writtenBytes.Add(float64(len(p)))
	}
	return err
}

func (i *instrumented) Close() error {
	open := i.SocketImpl.Handle().Valid()
	err := i.SocketImpl.Close()
	if open {
		i.c.openSockets.Dec()
	}
	return err
}
