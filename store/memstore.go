package store

// Mem is an in-memory KV used in tests and on targets whose persistence
// backend lives outside this module. The zero value is not usable; call
// NewMem.
type Mem struct {
	m map[string]any
}

func NewMem() *Mem { return &Mem{m: map[string]any{}} }

// Snapshot exposes the raw map so a boot can be simulated from a previous
// instance's contents.
func (s *Mem) Snapshot() map[string]any {
	out := make(map[string]any, len(s.m))
	for k, v := range s.m {
		out[k] = v
	}
	return out
}

// NewMemFrom seeds a store from a snapshot.
func NewMemFrom(seed map[string]any) *Mem {
	s := NewMem()
	for k, v := range seed {
		s.m[k] = v
	}
	return s
}

func (s *Mem) GetString(key, def string) string {
	if v, ok := s.m[key].(string); ok {
		return v
	}
	return def
}

func (s *Mem) PutString(key, val string) { s.m[key] = val }

func (s *Mem) GetInt(key string, def int) int {
	switch v := s.m[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return def
}

func (s *Mem) PutInt(key string, val int) { s.m[key] = val }

func (s *Mem) GetBool(key string, def bool) bool {
	if v, ok := s.m[key].(bool); ok {
		return v
	}
	return def
}

func (s *Mem) PutBool(key string, val bool) { s.m[key] = val }
