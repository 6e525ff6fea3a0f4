package manager

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/larchio/larch"
	"github.com/larchio/larch/internal/archive"
	"github.com/larchio/larch/internal/tier"
)

type testTiers struct {
	primary, local, scratch, upload *tier.Root
}

func newTestManager(t *testing.T) (*Manager, testTiers) {
	t.Helper()
	tt := testTiers{
		primary: newRoot(t, tier.Primary),
		local:   newRoot(t, tier.Local),
		scratch: newRoot(t, tier.Scratch),
		upload:  newRoot(t, tier.Upload),
	}
	mgr := New(tt.primary, tt.local, tt.scratch, tt.upload, archive.Codec{}, prometheus.NewRegistry())
	return mgr, tt
}

func newRoot(t *testing.T, kind tier.Kind) *tier.Root {
	t.Helper()
	r, err := tier.Open(kind, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func testName(t *testing.T) larch.LayerName {
	t.Helper()
	n, err := larch.ParseLayerName("0123456789abcdef0123456789abcdef01234567")
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func writeTier(t *testing.T, r *tier.Root, name larch.LayerName, body []byte) {
	t.Helper()
	if err := r.EnsureFanoutDir(name); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(r.Name(), r.Resolve(name)), body, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestGetLayerLocalHit(t *testing.T) {
	mgr, tt := newTestManager(t)
	name := testName(t)
	writeTier(t, tt.local, name, []byte("hello"))

	size, stream, ok, err := mgr.GetLayer(context.Background(), name)
	if err != nil {
		t.Fatalf("GetLayer: %v", err)
	}
	if !ok {
		t.Fatal("expected hit")
	}
	defer stream.Close()
	if size != 5 {
		t.Errorf("size: got %d, want 5", size)
	}
	got, _ := io.ReadAll(stream)
	if string(got) != "hello" {
		t.Errorf("body: got %q, want %q", got, "hello")
	}
}

func TestGetLayerMiss(t *testing.T) {
	mgr, _ := newTestManager(t)
	_, _, ok, err := mgr.GetLayer(context.Background(), testName(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected miss")
	}
}

func TestGetLayerPrimaryHitPromotes(t *testing.T) {
	mgr, tt := newTestManager(t)
	name := testName(t)
	body := bytes.Repeat([]byte{0x42}, 4096)
	writeTier(t, tt.primary, name, body)

	size, stream, ok, err := mgr.GetLayer(context.Background(), name)
	if err != nil || !ok {
		t.Fatalf("GetLayer: ok=%v err=%v", ok, err)
	}
	if size != int64(len(body)) {
		t.Errorf("size: got %d, want %d", size, len(body))
	}
	got, _ := io.ReadAll(stream)
	stream.Close()
	if !bytes.Equal(got, body) {
		t.Error("primary stream body mismatch")
	}

	waitForLocal(t, tt.local, name, body)

	// scratch must end up empty
	entries, err := os.ReadDir(tt.scratch.Name())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("scratch: got %d leftover entries, want 0", len(entries))
	}
}

func TestStampedeDedup(t *testing.T) {
	mgr, tt := newTestManager(t)
	name := testName(t)
	body := bytes.Repeat([]byte{0x7}, 65536)
	writeTier(t, tt.primary, name, body)

	const n = 100
	var wg sync.WaitGroup
	errs := make([]error, n)
	oks := make([]bool, n)
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, stream, ok, err := mgr.GetLayer(context.Background(), name)
			oks[i] = ok
			errs[i] = err
			if stream != nil {
				io.Copy(io.Discard, stream)
				stream.Close()
			}
		}()
	}
	wg.Wait()

	for i := range errs {
		if errs[i] != nil {
			t.Errorf("result[%d]: unexpected error: %v", i, errs[i])
		}
		if !oks[i] {
			t.Errorf("result[%d]: expected ok", i)
		}
	}

	waitForLocal(t, tt.local, name, body)
}

func waitForLocal(t *testing.T, local *tier.Root, name larch.LayerName, want []byte) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if local.Exists(name) {
			got, err := os.ReadFile(filepath.Join(local.Name(), local.Resolve(name)))
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(got, want) {
				t.Fatalf("promoted body mismatch: got %d bytes, want %d", len(got), len(want))
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timed out waiting for promotion to local")
}

func TestUploadRoundTrip(t *testing.T) {
	mgr, tt := newTestManager(t)
	name := testName(t)
	body := []byte{0x00, 0x01, 0x02, 0x03}

	if err := mgr.UploadLayer(context.Background(), name, bytes.NewReader(body)); err != nil {
		t.Fatalf("UploadLayer: %v", err)
	}

	size, stream, ok, err := mgr.GetLayer(context.Background(), name)
	if err != nil || !ok {
		t.Fatalf("GetLayer after upload: ok=%v err=%v", ok, err)
	}
	defer stream.Close()
	if size != int64(len(body)) {
		t.Errorf("size: got %d, want %d", size, len(body))
	}
	got, _ := io.ReadAll(stream)
	if !bytes.Equal(got, body) {
		t.Errorf("body: got %v, want %v", got, body)
	}

	waitForLocal(t, tt.local, name, body)
}

func TestMoveUploadedOutsideLayerRejectsForeignPath(t *testing.T) {
	mgr, _ := newTestManager(t)
	err := mgr.MoveUploadedOutsideLayer(context.Background(), testName(t), "/etc/passwd")
	if err == nil {
		t.Fatal("expected rejection")
	}
	if _, err := os.Stat("/etc/passwd"); err != nil {
		t.Fatalf("/etc/passwd should be untouched: %v", err)
	}
}

func TestMoveUploadedOutsideLayerAcceptsUploadRootFile(t *testing.T) {
	mgr, tt := newTestManager(t)
	name := testName(t)

	const body = "spooled bytes"
	extPath := filepath.Join(tt.upload.Name(), "spooled-file")
	if err := os.WriteFile(extPath, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := mgr.MoveUploadedOutsideLayer(context.Background(), name, extPath); err != nil {
		t.Fatalf("MoveUploadedOutsideLayer: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(tt.primary.Name(), tt.primary.Resolve(name)))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != body {
		t.Errorf("body: got %q, want %q", got, body)
	}
}

func TestGetLayerFileAndRange(t *testing.T) {
	mgr, tt := newTestManager(t)
	name := testName(t)

	raw, err := archive.Build(map[larch.SubFileTag][]byte{
		larch.TagParent:          []byte("parent-bytes"),
		larch.TagDictNodesBlocks: bytes.Repeat([]byte{0x9}, 32),
	})
	if err != nil {
		t.Fatal(err)
	}
	writeTier(t, tt.primary, name, raw)

	size, stream, ok, err := mgr.GetLayerFile(context.Background(), name, larch.TagDictNodesBlocks)
	if err != nil || !ok {
		t.Fatalf("GetLayerFile: ok=%v err=%v", ok, err)
	}
	defer stream.Close()
	got, _ := io.ReadAll(stream)
	if int64(len(got)) != size || !bytes.Equal(got, bytes.Repeat([]byte{0x9}, 32)) {
		t.Errorf("sub-file body mismatch: got %d bytes", len(got))
	}

	rng, ok, err := mgr.GetLayerFileRange(context.Background(), name, larch.TagDictNodesBlocks)
	if err != nil || !ok {
		t.Fatalf("GetLayerFileRange: ok=%v err=%v", ok, err)
	}
	full, err := os.ReadFile(filepath.Join(tt.primary.Name(), tt.primary.Resolve(name)))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(full[rng.Start:rng.End], bytes.Repeat([]byte{0x9}, 32)) {
		t.Error("absolute range does not select the same bytes as GetLayerFile")
	}
}

func TestGetLayerFileUnknownSubFile(t *testing.T) {
	mgr, tt := newTestManager(t)
	name := testName(t)
	raw, err := archive.Build(map[larch.SubFileTag][]byte{larch.TagParent: []byte("x")})
	if err != nil {
		t.Fatal(err)
	}
	writeTier(t, tt.primary, name, raw)

	_, _, ok, err := mgr.GetLayerFile(context.Background(), name, larch.TagIDMapBits)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected ok=false for a sub-file absent from the header")
	}
}
