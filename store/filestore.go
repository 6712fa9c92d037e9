package store

import (
	"encoding/json"
	"os"
)

// File is a JSON-file-backed KV for host builds. Each Put rewrites the file;
// the write path is best-effort, matching the infallible-store contract the
// core assumes.
type File struct {
	path string
	m    map[string]any
}

func OpenFile(path string) (*File, error) {
	s := &File{path: path, m: map[string]any{}}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(b, &s.m); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *File) flush() {
	b, err := json.MarshalIndent(s.m, "", "  ")
	if err != nil {
		return
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return
	}
	_ = os.Rename(tmp, s.path)
}

func (s *File) GetString(key, def string) string {
	if v, ok := s.m[key].(string); ok {
		return v
	}
	return def
}

func (s *File) PutString(key, val string) { s.m[key] = val; s.flush() }

func (s *File) GetInt(key string, def int) int {
	switch v := s.m[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return def
}

func (s *File) PutInt(key string, val int) { s.m[key] = val; s.flush() }

func (s *File) GetBool(key string, def bool) bool {
	if v, ok := s.m[key].(bool); ok {
		return v
	}
	return def
}

func (s *File) PutBool(key string, val bool) { s.m[key] = val; s.flush() }
