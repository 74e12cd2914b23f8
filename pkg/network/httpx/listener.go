package httpx

import (
	"errors"
	"net"
	"os"
	"runtime"
	"strconv"
	"syscall"
)

const maxPortRollAttempts = 42

type Listener struct {
	net.Listener
}

// NewListener listens on the TCP address.
// With rollPorts it tries the next ports when the requested one is busy.
func NewListener(address string, rollPorts bool) (*Listener, error) {
	ls, err := net.Listen("tcp", address)
	if err == nil {
		return &Listener{ls}, nil
	}
	if !rollPorts || !isErrorAddressAlreadyInUse(err) {
		return nil, err
	}
	host, p, serr := net.SplitHostPort(address)
	if serr != nil {
		return nil, err
	}
	port, serr := strconv.Atoi(p)
	if serr != nil {
		return nil, err
	}
	for i := port + 1; i < port+maxPortRollAttempts; i++ {
		if ls, err = net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(i))); err == nil {
			return &Listener{ls}, nil
		}
	}
	return nil, err
}

func (l Listener) GetPort() int {
	tcp, ok := l.Addr().(*net.TCPAddr)
	if !ok || tcp == nil {
		return 0
	}
	return tcp.Port
}

func isErrorAddressAlreadyInUse(err error) bool {
	var eOsSyscall *os.SyscallError
	if !errors.As(err, &eOsSyscall) {
		return false
	}
	var errErrno syscall.Errno
	if !errors.As(eOsSyscall, &errErrno) {
		return false
	}
	if errErrno == syscall.EADDRINUSE {
		return true
	}
	const WSAEADDRINUSE = 10048
	if runtime.GOOS == "windows" && errErrno == WSAEADDRINUSE {
		return true
	}
	return false
}
