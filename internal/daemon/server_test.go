package daemon

import (
	"net"
	"os"
	"path/filepath"
	"testing"
)

func shortTempDir(t *testing.T) string {
	t.Helper()
	// Unix socket paths are limited to about 100 bytes.
	dir, err := os.MkdirTemp("", "rtlinkd")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return dir
}

func TestListenUnixReplacesStaleSocket(t *testing.T) {
	path := filepath.Join(shortTempDir(t), "d.sock")
	if err := os.WriteFile(path, nil, 0600); err != nil {
		t.Fatal(err)
	}

	ln, err := listenUnix(path)
	if err != nil {
		t.Fatalf("listenUnix() over a stale file error = %v", err)
	}
	defer ln.Close()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("socket mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestListenUnixRefusesLiveSocket(t *testing.T) {
	path := filepath.Join(shortTempDir(t), "d.sock")
	live, err := net.Listen("unix", path)
	if err != nil {
		t.Fatal(err)
	}
	defer live.Close()

	if ln, err := listenUnix(path); err == nil {
		ln.Close()
		t.Fatal("listenUnix() on a live socket should fail")
	}
}
