// Package terminal reads raw keystroke input from a terminal device.
//
// Opening a Reader puts the terminal in raw mode: input is delivered one byte
// at a time as soon as it is typed, without waiting for the enter key, and
// control characters such as Ctrl-C arrive as plain bytes instead of
// generating signals. The terminal state captured at open time is written back
// when the Reader is released.
//
//	r, err := terminal.OpenStdin(terminal.DefaultOptions())
//	if err != nil {
//		return err
//	}
//	defer r.Restore()
//
// Only one Reader may own a given terminal at a time. A second Reader opened on
// the same device would capture the first one's raw state as its original
// state.
package terminal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/mattn/go-isatty"
)

// ErrClosed is returned by read operations on a Reader that has been released.
var ErrClosed = errors.New("terminal: reader is closed")

// Options configures a Reader.
type Options struct {
	// Echo leaves input echo enabled while the terminal is in raw mode.
	Echo bool
}

// DefaultOptions returns the default options: no echo.
func DefaultOptions() Options {
	return Options{}
}

// ConfigQueryError is returned by Open when the current terminal attributes
// can not be read, usually because the file is not a terminal. Nothing has
// been changed on the device when it is returned.
type ConfigQueryError struct {
	Fd  uintptr
	Err error
}

func (e *ConfigQueryError) Error() string {
	return fmt.Sprintf("terminal: get attributes of fd %d: %v", e.Fd, e.Err)
}

func (e *ConfigQueryError) Unwrap() error { return e.Err }

// ConfigApplyError is returned when terminal attributes can not be written,
// either when entering raw mode or when restoring the original state.
type ConfigApplyError struct {
	Fd  uintptr
	Op  string
	Err error
}

func (e *ConfigApplyError) Error() string {
	return fmt.Sprintf("terminal: %s on fd %d: %v", e.Op, e.Fd, e.Err)
}

func (e *ConfigApplyError) Unwrap() error { return e.Err }

// IOError is returned when a read fails or the input ends before the
// requested number of bytes has arrived.
type IOError struct {
	Op   string
	Want int
	Got  int
	Err  error
}

func (e *IOError) Error() string {
	if e.Want > 0 {
		return fmt.Sprintf("terminal: %s: got %d of %d bytes: %v", e.Op, e.Got, e.Want, e.Err)
	}
	return fmt.Sprintf("terminal: %s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

const (
	opEnterRaw = "enter raw mode"
	opRestore  = "restore"
)

// Reader reads raw input from a terminal. It is not safe for concurrent reads;
// Close and Restore may be called from another goroutine.
type Reader struct {
	fd       uintptr
	opts     Options
	original *state

	in   io.Reader
	echo io.Writer

	closed atomic.Bool
}

// IsTerminal reports whether fd refers to a terminal.
func IsTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Open puts the terminal behind f into raw mode and returns a Reader for it.
// Reads are served from f.
func Open(f *os.File, opts Options) (*Reader, error) {
	fd := f.Fd()

	original, err := getState(fd)
	if err != nil {
		return nil, &ConfigQueryError{Fd: fd, Err: err}
	}
	if err := setState(fd, original.raw(opts.Echo)); err != nil {
		// The device may have taken part of the change.
		if rbErr := setState(fd, original); rbErr != nil {
			err = errors.Join(err, fmt.Errorf("roll back: %w", rbErr))
		}
		return nil, &ConfigApplyError{Fd: fd, Op: opEnterRaw, Err: err}
	}

	r := &Reader{
		fd:       fd,
		opts:     opts,
		original: original,
		in:       f,
	}
	if opts.Echo && !nativeEcho {
		r.echo = os.Stdout
	}
	return r, nil
}

// OpenStdin is Open on os.Stdin.
func OpenStdin(opts Options) (*Reader, error) {
	return Open(os.Stdin, opts)
}

// Fd returns the file descriptor of the terminal.
func (r *Reader) Fd() uintptr { return r.fd }

// Options returns the options the Reader was opened with.
func (r *Reader) Options() Options { return r.opts }

// Active reports whether the terminal is still in raw mode.
func (r *Reader) Active() bool { return !r.closed.Load() }

// Read reads up to len(p) bytes with a single read from the terminal.
func (r *Reader) Read(p []byte) (int, error) {
	if r.closed.Load() {
		return 0, ErrClosed
	}
	n, err := r.in.Read(p)
	r.echoBytes(p[:n])
	return n, err
}

// ReadByte blocks until one byte is available and returns it.
func (r *Reader) ReadByte() (byte, error) {
	var buf [1]byte
	if err := r.readFull("read byte", buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// ReadFull blocks until buf is filled. It fails with an *IOError if the input
// ends first.
func (r *Reader) ReadFull(buf []byte) error {
	return r.readFull("read", buf)
}

// ReadExact blocks until n bytes have been read and returns them in arrival
// order. If the input ends before n bytes arrive, it returns nil and an
// *IOError wrapping io.ErrUnexpectedEOF, or io.EOF if nothing was read.
// Bytes beyond n are left for later reads.
func (r *Reader) ReadExact(n int) ([]byte, error) {
	if n < 0 {
		return nil, &IOError{Op: "read exact", Err: fmt.Errorf("negative count %d", n)}
	}
	buf := make([]byte, n)
	if err := r.readFull("read exact", buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadAvailable reads up to n bytes, blocking until n bytes have arrived or
// the input ends. Reaching the end of input is not an error; the bytes read
// so far are returned. On any other failure the partial bytes are returned
// along with an *IOError.
func (r *Reader) ReadAvailable(n int) ([]byte, error) {
	if r.closed.Load() {
		return nil, ErrClosed
	}
	if n < 0 {
		return nil, &IOError{Op: "read available", Err: fmt.Errorf("negative count %d", n)}
	}
	buf := make([]byte, n)
	got := 0
	for got < n {
		m, err := r.in.Read(buf[got:])
		r.echoBytes(buf[got : got+m])
		got += m
		if err == io.EOF {
			break
		}
		if err != nil {
			return buf[:got], &IOError{Op: "read available", Want: n, Got: got, Err: err}
		}
	}
	return buf[:got], nil
}

func (r *Reader) readFull(op string, buf []byte) error {
	if r.closed.Load() {
		return ErrClosed
	}
	n, err := io.ReadFull(r.in, buf)
	r.echoBytes(buf[:n])
	if err != nil {
		return &IOError{Op: op, Want: len(buf), Got: n, Err: err}
	}
	return nil
}

func (r *Reader) echoBytes(p []byte) {
	if r.echo != nil && len(p) > 0 {
		r.echo.Write(p)
	}
}

// Close writes the original terminal state back to the device. Only the first
// call has any effect; later calls return nil. A failed restore is reported as
// a *ConfigApplyError and the terminal may be left in raw mode.
func (r *Reader) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := setState(r.fd, r.original); err != nil {
		return &ConfigApplyError{Fd: r.fd, Op: opRestore, Err: err}
	}
	return nil
}

// Restore is Close for use with defer. Since a deferred call has nowhere to
// report an error, a failed restore terminates the process with a message
// telling the user to reset the terminal.
func (r *Reader) Restore() {
	if err := r.Close(); err != nil {
		fatal(err)
	}
}

var fatal = func(err error) {
	fmt.Fprintf(os.Stderr, "\r\nfailed to restore terminal state, please run 'reset' to recover: %v\r\n", err)
	os.Exit(1)
}
