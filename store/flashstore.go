//go:build rp2040

package store

import (
	"encoding/binary"
	"encoding/json"
	"machine"
)

// Flash keeps the KV map in the MCU's spare flash region as one JSON blob
// behind a small header. Every Put rewrites the region; writes here are rare
// (port configuration, adoption), so wear is not a concern.
type Flash struct {
	m map[string]any
}

const flashMagic = 0x49524252 // "IRBR"

func OpenFlash() *Flash {
	s := &Flash{m: map[string]any{}}
	hdr := make([]byte, 8)
	if _, err := machine.Flash.ReadAt(hdr, 0); err != nil {
		return s
	}
	if binary.LittleEndian.Uint32(hdr[0:4]) != flashMagic {
		return s
	}
	n := binary.LittleEndian.Uint32(hdr[4:8])
	if n == 0 || int64(n) > machine.Flash.Size()-8 {
		return s
	}
	buf := make([]byte, n)
	if _, err := machine.Flash.ReadAt(buf, 8); err != nil {
		return s
	}
	if err := json.Unmarshal(buf, &s.m); err != nil {
		s.m = map[string]any{}
	}
	return s
}

func (s *Flash) flush() {
	data, err := json.Marshal(s.m)
	if err != nil {
		return
	}
	blob := make([]byte, 8+len(data))
	binary.LittleEndian.PutUint32(blob[0:4], flashMagic)
	binary.LittleEndian.PutUint32(blob[4:8], uint32(len(data)))
	copy(blob[8:], data)

	erase := machine.Flash.EraseBlockSize()
	blocks := (int64(len(blob)) + erase - 1) / erase
	if err := machine.Flash.EraseBlocks(0, blocks); err != nil {
		println("store: flash erase failed:", err.Error())
		return
	}
	// WriteAt needs whole write blocks; pad with 0xFF like erased flash.
	wb := machine.Flash.WriteBlockSize()
	if rem := int64(len(blob)) % wb; rem != 0 {
		pad := make([]byte, wb-rem)
		for i := range pad {
			pad[i] = 0xFF
		}
		blob = append(blob, pad...)
	}
	if _, err := machine.Flash.WriteAt(blob, 0); err != nil {
		println("store: flash write failed:", err.Error())
	}
}

func (s *Flash) GetString(key, def string) string {
	if v, ok := s.m[key].(string); ok {
		return v
	}
	return def
}

func (s *Flash) PutString(key, val string) { s.m[key] = val; s.flush() }

func (s *Flash) GetInt(key string, def int) int {
	switch v := s.m[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return def
}

func (s *Flash) PutInt(key string, val int) { s.m[key] = val; s.flush() }

func (s *Flash) GetBool(key string, def bool) bool {
	if v, ok := s.m[key].(bool); ok {
		return v
	}
	return def
}

func (s *Flash) PutBool(key string, val bool) { s.m[key] = val; s.flush() }
