package propapi

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oba-ldap/propd/internal/prop"
	"github.com/oba-ldap/propd/internal/propindex"
	"github.com/oba-ldap/propd/internal/propwait"
	"github.com/oba-ldap/propd/internal/router"
)

func newTestRouter(t *testing.T) *router.ContextRouter {
	t.Helper()
	dir := t.TempDir()
	idx := propindex.NewTextIndex()
	require.NoError(t, idx.AddEntry(propindex.Wildcard, "ctxDefault"))

	path := filepath.Join(dir, "ctxDefault")
	a, err := prop.CreateArea(path, "ctxDefault")
	require.NoError(t, err)
	require.NoError(t, a.Close())
	require.NoError(t, os.Chmod(path, 0644))

	return router.NewTextRouter(dir, idx, router.Options{ReadWrite: true})
}

func TestReaderWriterGetSetRoundTrip(t *testing.T) {
	r := newTestRouter(t)
	defer r.Close()

	w := NewWriterAPI(r)
	rd := NewReaderAPI(r)

	require.NoError(t, w.Add("any.name", "v1", "root"))

	value, _, err := rd.Get("any.name", "root")
	require.NoError(t, err)
	require.Equal(t, "v1", string(value))

	missing, _, err := rd.Get("nope.name", "root")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestWriterSetUpsert(t *testing.T) {
	r := newTestRouter(t)
	defer r.Close()

	w := NewWriterAPI(r)
	rd := NewReaderAPI(r)

	require.NoError(t, w.Set("x.y", "first", "root"))
	value, _, _ := rd.Get("x.y", "root")
	require.Equal(t, "first", string(value))

	require.NoError(t, w.Set("x.y", "second", "root"))
	value, _, _ = rd.Get("x.y", "root")
	require.Equal(t, "second", string(value))
}

func TestReaderForeachAndNth(t *testing.T) {
	r := newTestRouter(t)
	defer r.Close()

	w := NewWriterAPI(r)
	rd := NewReaderAPI(r)

	require.NoError(t, w.Add("a", "1", "root"))
	require.NoError(t, w.Add("b", "2", "root"))
	require.NoError(t, w.Add("c", "3", "root"))

	count := 0
	rd.Foreach("root", func(label string, name, value []byte, serial uint32) bool {
		count++
		return true
	})
	require.Equal(t, 3, count)

	_, name, _, _, ok := rd.Nth("root", 0)
	require.True(t, ok)
	require.NotEmpty(t, name)

	_, _, _, _, ok = rd.Nth("root", 99)
	require.False(t, ok)
}

func TestReadWithCallbackDeliversValue(t *testing.T) {
	r := newTestRouter(t)
	defer r.Close()

	w := NewWriterAPI(r)
	rd := NewReaderAPI(r)
	require.NoError(t, w.Add("cb.test", "hello", "root"))

	h, err := rd.Find("cb.test", "root")
	require.NoError(t, err)

	var got string
	require.NoError(t, rd.ReadWithCallback(h, func(value []byte, serial uint32) {
		got = string(value)
	}))
	require.Equal(t, "hello", got)
}

func TestWaitEntryWakesOnUpdateWithBroker(t *testing.T) {
	r := newTestRouter(t)
	defer r.Close()

	broker := propwait.NewBroker()
	defer broker.Close()

	w := NewWriterAPI(r)
	rd := NewReaderAPI(r)
	wa := NewWaitAPI(r, broker)

	require.NoError(t, w.Add("wait.test", "v1", "root"))
	h, err := rd.Find("wait.test", "root")
	require.NoError(t, err)
	_, serial, err := h.Read()
	require.NoError(t, err)

	done := make(chan uint32, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s, err := wa.WaitEntry(ctx, h, serial, time.Second)
		require.NoError(t, err)
		done <- s
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, w.Update("wait.test", "v2", "root"))

	select {
	case got := <-done:
		require.NotEqual(t, serial, got)
	case <-time.After(2 * time.Second):
		t.Fatal("WaitEntry did not wake on update")
	}
}

func TestWaitEntryWithoutBrokerReturnsImmediately(t *testing.T) {
	r := newTestRouter(t)
	defer r.Close()

	w := NewWriterAPI(r)
	rd := NewReaderAPI(r)
	wa := NewWaitAPI(r, nil)

	require.NoError(t, w.Add("wait.nobroker", "v1", "root"))
	h, err := rd.Find("wait.nobroker", "root")
	require.NoError(t, err)
	_, serial, err := h.Read()
	require.NoError(t, err)

	got, err := wa.WaitEntry(context.Background(), h, serial, 0)
	require.NoError(t, err)
	require.Equal(t, serial, got)
}

func TestWaitGlobalWakesOnAdd(t *testing.T) {
	r := newTestRouter(t)
	defer r.Close()

	broker := propwait.NewBroker()
	defer broker.Close()

	w := NewWriterAPI(r)
	rd := NewReaderAPI(r)
	wa := NewWaitAPI(r, broker)

	require.NoError(t, w.Add("seed", "v", "root"))
	h, err := rd.Find("seed", "root")
	require.NoError(t, err)
	area := h.Area()
	lastSeen := area.GlobalSerial()

	done := make(chan uint32, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s, err := wa.WaitGlobal(ctx, area, lastSeen, time.Second)
		require.NoError(t, err)
		done <- s
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, w.Add("another", "v", "root"))

	select {
	case got := <-done:
		require.NotEqual(t, lastSeen, got)
	case <-time.After(2 * time.Second):
		t.Fatal("WaitGlobal did not wake on add")
	}
}
