package main

import (
	"bytes"
	"io"
	"strings"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource serves bytes from memory with the same contracts as a
// terminal.Reader.
type fakeSource struct {
	*bytes.Reader
}

func newFakeSource(s string) *fakeSource {
	return &fakeSource{bytes.NewReader([]byte(s))}
}

func (f *fakeSource) ReadExact(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(f.Reader, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (f *fakeSource) ReadAvailable(n int) ([]byte, error) {
	buf := make([]byte, n)
	got, err := io.ReadFull(f.Reader, buf)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		err = nil
	}
	return buf[:got], err
}

func TestDescribeByte(t *testing.T) {
	tests := []struct {
		b    byte
		want string
	}{
		{'A', "0x41  65  'A'"},
		{' ', "0x20  32  SPACE"},
		{0x03, "0x03   3  ^C"},
		{0x1b, "0x1b  27  ESC"},
		{'\r', "0x0d  13  CR"},
		{0x7f, "0x7f 127  DEL"},
		{0xc3, "0xc3 195  -"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, describeByte(tt.b))
	}
}

func TestSessionStopsAtCtrlC(t *testing.T) {
	var out, record bytes.Buffer
	s := &session{in: newFakeSource("hi\x03ignored"), out: &out, record: &record}

	require.NoError(t, s.run())
	assert.Equal(t, 3, s.n)
	assert.Equal(t, "hi\x03", record.String())
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, []string{"0x68 104  'h'", "0x69 105  'i'", "0x03   3  ^C"}, lines)
}

func TestSessionStopsAtCtrlD(t *testing.T) {
	var out bytes.Buffer
	s := &session{in: newFakeSource("\x04x"), out: &out}

	require.NoError(t, s.run())
	assert.Equal(t, 1, s.n)
}

func TestSessionEndOfInput(t *testing.T) {
	var out bytes.Buffer
	s := &session{in: newFakeSource("ab"), out: &out}

	assert.ErrorIs(t, s.run(), io.EOF)
	assert.Equal(t, 2, s.n)
}

func TestSessionCount(t *testing.T) {
	var out, record bytes.Buffer
	s := &session{in: newFakeSource("\x03bcdef"), out: &out, record: &record, count: 4}

	require.NoError(t, s.run())
	assert.Equal(t, 4, s.n)
	assert.Equal(t, "\x03bcd", record.String())
}

func TestSessionCountShort(t *testing.T) {
	var out bytes.Buffer
	s := &session{in: newFakeSource("ab"), out: &out, count: 4}

	assert.ErrorIs(t, s.run(), io.ErrUnexpectedEOF)
	assert.Equal(t, 0, s.n)
	assert.Empty(t, out.String())
}

func TestSessionCountPartial(t *testing.T) {
	var out bytes.Buffer
	s := &session{in: newFakeSource("ab"), out: &out, count: 4, partial: true}

	require.NoError(t, s.run())
	assert.Equal(t, 2, s.n)
}

// hangupSource delivers its bytes and then fails the way a terminal read
// fails once the other side has gone away.
type hangupSource struct {
	*fakeSource
}

func (h hangupSource) ReadAvailable(n int) ([]byte, error) {
	p, _ := h.fakeSource.ReadAvailable(n)
	return p, syscall.EIO
}

func TestSessionCountPartialHangup(t *testing.T) {
	var out, record bytes.Buffer
	s := &session{in: hangupSource{newFakeSource("ab")}, out: &out, record: &record, count: 4, partial: true}

	assert.ErrorIs(t, s.run(), syscall.EIO)
	assert.Equal(t, 2, s.n)
	assert.Equal(t, "ab", record.String())
	assert.Equal(t, "0x61  97  'a'\n0x62  98  'b'\n", out.String())
}

func TestEnterKeyIsCarriageReturn(t *testing.T) {
	assert.Equal(t, byte('\r'), byte(enterKey))
	assert.Equal(t, "0x0d  13  CR", describeByte(enterKey))
}
