package terminal

import (
	"golang.org/x/sys/windows"
)

// The console only echoes in line input mode, so the Reader echoes itself.
const nativeEcho = false

type state struct {
	mode uint32
}

func getState(fd uintptr) (*state, error) {
	var s state
	if err := windows.GetConsoleMode(windows.Handle(fd), &s.mode); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *state) raw(echo bool) *state {
	r := *s
	r.mode &^= windows.ENABLE_ECHO_INPUT | windows.ENABLE_PROCESSED_INPUT | windows.ENABLE_LINE_INPUT
	return &r
}

var setState = func(fd uintptr, s *state) error {
	return windows.SetConsoleMode(windows.Handle(fd), s.mode)
}
