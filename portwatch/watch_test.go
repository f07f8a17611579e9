package portwatch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kbukum/serverkit/errors"
)

type result struct {
	port uint16
	err  error
}

func startWatch(t *testing.T, ctx context.Context, path string, opts ...Option) <-chan result {
	t.Helper()
	ch := make(chan result, 1)
	go func() {
		port, err := Watch(ctx, path, opts...)
		ch <- result{port, err}
	}()
	return ch
}

func TestWatchIgnoresGarbageThenResolves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "port")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	done := startWatch(t, ctx, path)

	if err := os.WriteFile(path, []byte("not-a-port"), 0o600); err != nil {
		t.Fatal(err)
	}
	select {
	case r := <-done:
		t.Fatalf("non-numeric content resolved the watch: %+v", r)
	case <-time.After(200 * time.Millisecond):
	}

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		if err := os.WriteFile(path, []byte("8080\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		select {
		case r := <-done:
			if r.err != nil {
				t.Fatalf("unexpected error: %v", r.err)
			}
			if r.port != 8080 {
				t.Fatalf("expected 8080, got %d", r.port)
			}
			// The watch is gone; a later write has nobody to resolve.
			_ = os.WriteFile(path, []byte("9090"), 0o600)
			select {
			case r := <-done:
				t.Fatalf("watch resolved twice: %+v", r)
			case <-time.After(100 * time.Millisecond):
			}
			return
		case <-ticker.C:
		case <-ctx.Done():
			t.Fatal("timed out waiting for the port")
		}
	}
}

func TestWatchOutOfRangeIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "port")
	done := startWatch(t, context.Background(), path, WithTimeout(400*time.Millisecond))

	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(path, []byte("70000"), 0o600); err != nil {
		t.Fatal(err)
	}

	r := <-done
	if !errors.Is(r.err, errors.ErrWatchFailure) {
		t.Fatalf("expected timeout WatchFailure, got %+v", r)
	}
}

func TestWatchPreexistingContentIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "port")
	if err := os.WriteFile(path, []byte("9090"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := Watch(context.Background(), path, WithTimeout(200*time.Millisecond))
	if !errors.Is(err, errors.ErrWatchFailure) {
		t.Fatalf("expected WatchFailure after timeout, got %v", err)
	}
}

func TestWatchContextCancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "port")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Watch(ctx, path)
	if !errors.Is(err, errors.ErrWatchFailure) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected WatchFailure wrapping context.Canceled, got %v", err)
	}
}

func TestWatchMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "port")
	_, err := Watch(context.Background(), path)
	if !errors.Is(err, errors.ErrWatchFailure) {
		t.Fatalf("expected WatchFailure, got %v", err)
	}
	if errors.DetailOf(err, errors.DetailPath) != path {
		t.Errorf("expected path detail %q, got %q", path, errors.DetailOf(err, errors.DetailPath))
	}
}

func TestReadPort(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		content string
		want    uint16
		ok      bool
	}{
		{"8080", 8080, true},
		{"  443 \n", 443, true},
		{"0", 0, true},
		{"65535", 65535, true},
		{"65536", 0, false},
		{"-1", 0, false},
		{"", 0, false},
		{"80 80", 0, false},
	}
	for i, tt := range tests {
		path := filepath.Join(dir, "p"+string(rune('a'+i)))
		if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
			t.Fatal(err)
		}
		got, ok := readPort(path)
		if got != tt.want || ok != tt.ok {
			t.Errorf("readPort(%q) = %d, %v; want %d, %v", tt.content, got, ok, tt.want, tt.ok)
		}
	}
	if _, ok := readPort(filepath.Join(dir, "absent")); ok {
		t.Error("missing file should not parse")
	}
}
