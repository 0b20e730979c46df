package sio

import "golang.org/x/sys/unix"

const availableRequest = unix.FIONREAD
