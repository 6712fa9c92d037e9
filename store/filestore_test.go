package store

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")
	s, err := OpenFile(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	s.PutString("boardId", "ir-bridge-abc")
	s.PutInt("port_count", 3)
	s.PutBool("adopted", true)

	again, err := OpenFile(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := again.GetString("boardId", ""); got != "ir-bridge-abc" {
		t.Errorf("boardId = %q", got)
	}
	// JSON numbers come back as float64; GetInt must still work.
	if got := again.GetInt("port_count", 0); got != 3 {
		t.Errorf("port_count = %d", got)
	}
	if !again.GetBool("adopted", false) {
		t.Error("adopted lost")
	}
}

func TestFileStoreDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.json")
	s, err := OpenFile(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if got := s.GetInt("port_count", 7); got != 7 {
		t.Errorf("default int = %d", got)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("file created by reads alone")
	}
}
