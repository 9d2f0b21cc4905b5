//go:build !windows

package terminal

import (
	"github.com/pkg/term/termios"
	"golang.org/x/sys/unix"
)

// The tty driver echoes for us when ECHO is set.
const nativeEcho = true

type state struct {
	termios unix.Termios
}

func getState(fd uintptr) (*state, error) {
	var s state
	if err := termios.Tcgetattr(fd, &s.termios); err != nil {
		return nil, err
	}
	return &s, nil
}

// raw returns a copy of s with canonical mode, echo, signal characters and
// output processing turned off, 8-bit characters without parity, and reads
// returning as soon as a single byte is available.
func (s *state) raw(echo bool) *state {
	r := *s
	termios.Cfmakeraw(&r.termios)
	if echo {
		r.termios.Lflag |= unix.ECHO
	}
	return &r
}

// setState is replaced in tests to simulate a device rejecting a change.
var setState = func(fd uintptr, s *state) error {
	return termios.Tcsetattr(fd, termios.TCSANOW, &s.termios)
}
