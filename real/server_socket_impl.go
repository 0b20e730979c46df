package real

import (
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/netsock/interfaces"
	"github.com/opd-ai/netsock/sio"
)

// ServerSocketImpl is the default listening implementation. It behaves as
// SocketImpl except that Create also enables address reuse.
type ServerSocketImpl struct {
	*SocketImpl
}

// NewServerSocketImpl creates an uninitialised listening implementation.
func NewServerSocketImpl(cfg *interfaces.ImplConfig) *ServerSocketImpl {
	return &ServerSocketImpl{SocketImpl: NewSocketImpl(cfg)}
}

// Create allocates the handle and sets SO_REUSEADDR on it.
func (s *ServerSocketImpl) Create(family sio.Family) error {
	if err := s.SocketImpl.Create(family); err != nil {
		return err
	}
	if err := s.SetOptionBool(sio.OptReuseAddr, true); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "ServerSocketImpl.Create",
			"error":    err.Error(),
		}).Error("Failed to enable address reuse")
		return err
	}
	return nil
}

var _ interfaces.SocketImpl = (*ServerSocketImpl)(nil)
