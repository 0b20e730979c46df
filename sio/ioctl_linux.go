package sio

import "golang.org/x/sys/unix"

// availableRequest reports the bytes queued for reading.
const availableRequest = unix.SIOCINQ
