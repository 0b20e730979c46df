//go:build !linux && !darwin

package sio

import "syscall"

// unsupportedPrimitives fails every operation on platforms without a native
// implementation. Callers may still inject their own Primitives.
type unsupportedPrimitives struct{}

func platformPrimitives() Primitives {
	return unsupportedPrimitives{}
}

func unsupported(op string) error {
	return wrap(op, syscall.EAFNOSUPPORT)
}

func (unsupportedPrimitives) Socket(Family) (Handle, error) {
	return InvalidHandle, unsupported("socket")
}
func (unsupportedPrimitives) Bind(Handle, Sockaddr) error { return unsupported("bind") }
func (unsupportedPrimitives) Connect(Handle, Sockaddr) Result {
	return ResultOf(unsupported("connect"))
}
func (unsupportedPrimitives) Listen(Handle, int) error { return unsupported("listen") }
func (unsupportedPrimitives) Accept(Handle) (Handle, Sockaddr, Result) {
	return InvalidHandle, Sockaddr{}, ResultOf(unsupported("accept"))
}
func (unsupportedPrimitives) Send(Handle, []byte, SendFlags) Result {
	return ResultOf(unsupported("send"))
}
func (unsupportedPrimitives) Recv(Handle, []byte) Result   { return ResultOf(unsupported("recv")) }
func (unsupportedPrimitives) Shutdown(Handle, ShutdownHow) error { return unsupported("shutdown") }
func (unsupportedPrimitives) Close(Handle) error               { return nil }
func (unsupportedPrimitives) SetNonblock(Handle, bool) error   { return unsupported("fcntl") }
func (unsupportedPrimitives) Poll(Handle, Event, int) Result {
	return ResultOf(unsupported("poll"))
}
func (unsupportedPrimitives) SocketError(Handle) (syscall.Errno, error) {
	return 0, unsupported("getsockopt")
}
func (unsupportedPrimitives) Sockname(Handle) (Sockaddr, error) {
	return Sockaddr{}, unsupported("getsockname")
}
func (unsupportedPrimitives) Available(Handle) (int, error) { return 0, unsupported("ioctl") }
func (unsupportedPrimitives) GetOption(Handle, Family, Option) (int, error) {
	return 0, unsupported("getsockopt")
}
func (unsupportedPrimitives) SetOption(Handle, Family, Option, int) error {
	return unsupported("setsockopt")
}
