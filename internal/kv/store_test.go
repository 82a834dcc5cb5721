package kv

import (
	"bytes"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPutGetRoundTrip(t *testing.T) {
	s := openTestStore(t).Namespace("ns:")
	if err := s.Put([]byte("a"), []byte("1")); err != nil {
		t.Fatalf("put: %v", err)
	}
	v, ok, err := s.Get([]byte("a"))
	if err != nil || !ok {
		t.Fatalf("get: v=%v ok=%v err=%v", v, ok, err)
	}
	if !bytes.Equal(v, []byte("1")) {
		t.Fatalf("got %q want %q", v, "1")
	}
	if _, ok, _ := s.Get([]byte("missing")); ok {
		t.Fatalf("expected miss")
	}
}

func TestMultiGetPreservesOrder(t *testing.T) {
	s := openTestStore(t).Namespace("ns:")
	_ = s.Put([]byte("a"), []byte("1"))
	_ = s.Put([]byte("c"), []byte("3"))

	out, err := s.MultiGet([][]byte{[]byte("a"), []byte("b"), []byte("c")})
	if err != nil {
		t.Fatalf("multiget: %v", err)
	}
	if string(out[0]) != "1" || out[1] != nil || string(out[2]) != "3" {
		t.Fatalf("unexpected multiget result: %v", out)
	}
}

func TestBulkWriteAtomicity(t *testing.T) {
	s := openTestStore(t).Namespace("ns:")
	err := s.BulkWrite(func(b *Batch) {
		b.Put([]byte("x"), []byte("1"))
		b.Put([]byte("y"), []byte("2"))
	})
	if err != nil {
		t.Fatalf("bulk write: %v", err)
	}
	for _, k := range []string{"x", "y"} {
		if _, ok, _ := s.Get([]byte(k)); !ok {
			t.Fatalf("expected key %q after bulk write", k)
		}
	}
}

func TestScanPrefixAndIterPrefixRev(t *testing.T) {
	s := openTestStore(t).Namespace("ns:")
	for _, k := range []string{"p:01", "p:02", "p:03", "q:01"} {
		if err := s.Put([]byte(k), []byte(k)); err != nil {
			t.Fatalf("put %s: %v", k, err)
		}
	}

	fwd, err := s.ScanPrefix([]byte("p:"))
	if err != nil {
		t.Fatalf("scan prefix: %v", err)
	}
	if len(fwd) != 3 || string(fwd[0].Key) != "01" || string(fwd[2].Key) != "03" {
		t.Fatalf("unexpected forward scan: %+v", fwd)
	}

	rev, err := s.IterPrefixRev([]byte("p:"))
	if err != nil {
		t.Fatalf("iter prefix rev: %v", err)
	}
	if len(rev) != 3 || string(rev[0].Key) != "03" || string(rev[2].Key) != "01" {
		t.Fatalf("unexpected reverse scan: %+v", rev)
	}
}

func TestNamespaceIsolation(t *testing.T) {
	root := openTestStore(t)
	a := root.Namespace("a:")
	b := root.Namespace("b:")
	_ = a.Put([]byte("k"), []byte("in-a"))
	if _, ok, _ := b.Get([]byte("k")); ok {
		t.Fatalf("namespace b should not see namespace a's key")
	}
}
