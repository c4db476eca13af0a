package wireclient

import (
	"encoding/binary"
	"io"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func listen(t *testing.T) (net.Listener, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "propd.sock")
	ln, err := net.Listen("unix", path)
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	return ln, path
}

// serveV1Once accepts one connection, reads a v1 fixed frame, records
// it, then closes the connection to ack.
func serveV1Once(t *testing.T, ln net.Listener, got *[]byte) {
	t.Helper()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		frame := make([]byte, 4+v1NameFrameLen+v1ValueFrameLen)
		io.ReadFull(conn, frame)
		*got = frame
	}()
}

func TestClientSetV1RoundTrip(t *testing.T) {
	ln, path := listen(t)
	var frame []byte
	serveV1Once(t, ln, &frame)

	c := New(path, 1)
	require.NoError(t, c.Set("sys.boot", "done"))

	// Give the server goroutine a moment to finish reading and close.
	time.Sleep(50 * time.Millisecond)
	require.NotEmpty(t, frame)
	require.Equal(t, CmdSetV1, binary.LittleEndian.Uint32(frame[0:4]))
	name := strings.TrimRight(string(frame[4:4+v1NameFrameLen]), "\x00")
	value := strings.TrimRight(string(frame[4+v1NameFrameLen:]), "\x00")
	require.Equal(t, "sys.boot", name)
	require.Equal(t, "done", value)
}

func TestClientSetV1TimeoutTreatedAsSuccess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "propd.sock")
	ln, err := net.Listen("unix", path)
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		// Accept but never close or respond — simulates a slow daemon.
		time.Sleep(2 * time.Second)
		conn.Close()
	}()

	c := New(path, 1)
	start := time.Now()
	err = c.Set("sys.slow", "v")
	require.NoError(t, err)
	require.Less(t, time.Since(start), time.Second)
}

func TestClientSetV2RoundTrip(t *testing.T) {
	ln, path := listen(t)

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		var hdr [4]byte
		io.ReadFull(conn, hdr[:])
		require.Equal(t, CmdSetV2, binary.LittleEndian.Uint32(hdr[:]))

		readLP := func() string {
			var lenBuf [4]byte
			io.ReadFull(conn, lenBuf[:])
			n := binary.LittleEndian.Uint32(lenBuf[:])
			buf := make([]byte, n)
			io.ReadFull(conn, buf)
			return string(buf)
		}
		name := readLP()
		value := readLP()
		require.Equal(t, "a.b", name)
		require.Equal(t, "hello", value)

		var result [4]byte
		conn.Write(result[:]) // 0 = success
	}()

	c := New(path, 2)
	require.NoError(t, c.Set("a.b", "hello"))
}

func TestClientSetV2FailureCode(t *testing.T) {
	ln, path := listen(t)

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		io.Copy(io.Discard, io.LimitReader(conn, 4+4+3+4+5))
		var result [4]byte
		binary.LittleEndian.PutUint32(result[:], 7)
		conn.Write(result[:])
	}()

	c := New(path, 2)
	err := c.Set("a.b", "hello")
	require.Error(t, err)
}

func TestClientRejectsOversizedValueForNonReadOnlyName(t *testing.T) {
	c := New("/nonexistent", 2)
	long := strings.Repeat("x", 92)
	err := c.Set("rw.thing", long)
	require.Error(t, err)
}

func TestClientAllowsOversizedValueForReadOnlyName(t *testing.T) {
	ln, path := listen(t)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		var hdr [4]byte
		io.ReadFull(conn, hdr[:])
		readLP := func() {
			var lenBuf [4]byte
			io.ReadFull(conn, lenBuf[:])
			n := binary.LittleEndian.Uint32(lenBuf[:])
			io.ReadFull(conn, make([]byte, n))
		}
		readLP() // name
		readLP() // value
		// Close without sending a result code, forcing the client's
		// result read to fail fast instead of blocking.
	}()

	c := New(path, 2)
	long := strings.Repeat("x", 92)
	err := c.Set("ro.thing", long)
	require.Error(t, err)
	require.NotContains(t, err.Error(), "too long")
}

func TestSelectVersion(t *testing.T) {
	require.Equal(t, 1, SelectVersion(""))
	require.Equal(t, 1, SelectVersion("1"))
	require.Equal(t, 2, SelectVersion("2"))
	require.Equal(t, 2, SelectVersion("3"))
	require.Equal(t, 1, SelectVersion("not-a-number"))
}
