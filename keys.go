package main

import (
	"fmt"
	"io"
)

const (
	ctrlC     = 0x03
	ctrlD     = 0x04
	backspace = 0x7f
	escape    = 0x1b

	// Input translation is off in raw mode, so the enter key arrives as a
	// carriage return on every platform.
	enterKey = '\r'
)

var controlNames = map[byte]string{
	0x00:      "NUL",
	0x08:      "BS",
	0x09:      "TAB",
	0x0a:      "LF",
	enterKey:  "CR",
	escape:    "ESC",
	' ':       "SPACE",
	backspace: "DEL",
}

// describeByte renders b as hex, decimal and a readable name.
func describeByte(b byte) string {
	var name string
	if n, ok := controlNames[b]; ok {
		name = n
	} else if b < 0x20 {
		name = "^" + string(rune(b+'@'))
	} else if b < 0x7f {
		name = fmt.Sprintf("'%c'", b)
	} else {
		name = "-"
	}
	return fmt.Sprintf("0x%02x %3d  %s", b, b, name)
}

type byteSource interface {
	ReadByte() (byte, error)
	ReadExact(n int) ([]byte, error)
	ReadAvailable(n int) ([]byte, error)
}

// session shows keystrokes as they arrive.
type session struct {
	in      byteSource
	out     io.Writer
	record  io.Writer
	count   int
	partial bool

	n int
}

// run reads until Ctrl-C or Ctrl-D, or until count bytes have been read when
// count is set.
func (s *session) run() error {
	if s.count > 0 {
		return s.runCount()
	}
	for {
		b, err := s.in.ReadByte()
		if err != nil {
			return err
		}
		if err := s.show([]byte{b}); err != nil {
			return err
		}
		if b == ctrlC || b == ctrlD {
			return nil
		}
	}
}

func (s *session) runCount() error {
	var p []byte
	var err error
	if s.partial {
		p, err = s.in.ReadAvailable(s.count)
	} else {
		p, err = s.in.ReadExact(s.count)
	}
	if showErr := s.show(p); showErr != nil {
		return showErr
	}
	return err
}

func (s *session) show(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	s.n += len(p)
	if s.record != nil {
		if _, err := s.record.Write(p); err != nil {
			return err
		}
	}
	for _, b := range p {
		fmt.Fprintln(s.out, describeByte(b))
	}
	return nil
}
