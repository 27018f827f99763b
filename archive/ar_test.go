package archive

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeArMember appends one ar member (header + body + pad) to buf.
func writeArMember(t *testing.T, buf *bytes.Buffer, name string, body []byte) {
	t.Helper()
	header := make([]byte, headerSize)
	copy(header, name)
	for i := len(name); i < 16; i++ {
		header[i] = ' '
	}
	for i := 16; i < 48; i++ {
		header[i] = ' '
	}
	sizeStr := []byte(padRight(itoa(len(body)), 10))
	copy(header[48:58], sizeStr)
	copy(header[58:60], fileMagic)
	buf.Write(header)
	buf.Write(body)
	if len(body)%2 != 0 {
		buf.WriteByte('\n')
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func padRight(s string, n int) string {
	for len(s) < n {
		s += " "
	}
	return s
}

func TestArReaderRoundTrip(t *testing.T) {
	entries := []struct {
		name string
		body []byte
	}{
		{"debian-binary", []byte("2.0\n")},
		{"control.tar.gz", []byte("not actually gzip, arbitrary bytes")},
		{"data.tar.gz", []byte("x")}, // odd length, exercises the pad byte
	}

	var buf bytes.Buffer
	buf.WriteString(globalMagic)
	for _, e := range entries {
		writeArMember(t, &buf, e.name, e.body)
	}

	r := NewArReader(&buf)
	require.NoError(t, r.ReadMagic())

	for _, e := range entries {
		name, err := r.ReadEntry()
		require.NoError(t, err)
		require.Equal(t, e.name, name)
		got, err := r.ReadAll()
		require.NoError(t, err)
		require.Equal(t, e.body, got)
	}

	_, err := r.ReadEntry()
	require.ErrorIs(t, err, io.EOF)
}

func TestArReaderBadMagic(t *testing.T) {
	r := NewArReader(bytes.NewReader([]byte("not an archive................")))
	err := r.ReadMagic()
	require.ErrorIs(t, err, ErrBadMagic)
}

func TestArReaderSkipsUnreadBytes(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString(globalMagic)
	writeArMember(t, &buf, "a", []byte("hello world"))
	writeArMember(t, &buf, "b", []byte("second"))

	r := NewArReader(&buf)
	require.NoError(t, r.ReadMagic())

	name, err := r.ReadEntry()
	require.NoError(t, err)
	require.Equal(t, "a", name)
	// Deliberately do not read "a"'s body; ReadEntry must skip it plus its pad.

	name, err = r.ReadEntry()
	require.NoError(t, err)
	require.Equal(t, "b", name)
	got, err := r.ReadAll()
	require.NoError(t, err)
	require.Equal(t, []byte("second"), got)
}
