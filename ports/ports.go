// Package ports owns the authoritative gpio → role mapping. Everything else
// (sender bindings, the active receiver, capability flags) derives from this
// table. Entries are never deleted, only re-roled.
package ports

import (
	"strconv"

	"irbridge-go/boards"
	"irbridge-go/errcode"
	"irbridge-go/store"
	"irbridge-go/types"
)

type Port struct {
	GPIO  int
	Role  types.Role
	Label string
}

// Table is the fixed-capacity port table for one board variant.
type Table struct {
	def     boards.Definition
	entries []Port
}

// New builds the first-boot default table: every known pin, role disabled.
func New(def boards.Definition) *Table {
	t := &Table{def: def}
	for _, gpio := range def.AllPins() {
		if len(t.entries) >= def.MaxPorts {
			break
		}
		t.entries = append(t.entries, Port{GPIO: gpio, Role: types.RoleDisabled})
	}
	return t
}

// Load restores the table from the store, falling back to the default table
// when nothing was persisted yet.
func Load(def boards.Definition, kv store.KV) *Table {
	n := kv.GetInt("port_count", 0)
	if n <= 0 {
		return New(def)
	}
	if n > def.MaxPorts {
		n = def.MaxPorts
	}
	t := &Table{def: def, entries: make([]Port, 0, n)}
	for i := 0; i < n; i++ {
		key := "port" + strconv.Itoa(i)
		role, _ := types.ParseRole(kv.GetString(key+"_mode", "disabled"))
		t.entries = append(t.entries, Port{
			GPIO:  kv.GetInt(key+"_gpio", 0),
			Role:  role,
			Label: kv.GetString(key+"_name", ""),
		})
	}
	return t
}

// Save writes the full table. Keys are independent so a partial write leaves
// previously saved fields intact.
func (t *Table) Save(kv store.KV) {
	kv.PutInt("port_count", len(t.entries))
	for i, p := range t.entries {
		key := "port" + strconv.Itoa(i)
		kv.PutInt(key+"_gpio", p.GPIO)
		kv.PutString(key+"_mode", p.Role.String())
		kv.PutString(key+"_name", p.Label)
	}
}

// Configure updates role and label in place. The caller is responsible for
// re-binding hardware and persisting; this method only validates and mutates.
func (t *Table) Configure(gpio int, role types.Role, label string) (types.PortSnapshot, error) {
	p, ok := t.find(gpio)
	if !ok {
		return types.PortSnapshot{}, errcode.UnknownPort
	}
	if role == types.RoleIrOutput && t.def.IsInputOnly(gpio) {
		return types.PortSnapshot{}, errcode.RoleNotSupported
	}
	p.Role = role
	p.Label = label
	return t.snapshot(*p), nil
}

// List returns snapshots in stable table order.
func (t *Table) List() []types.PortSnapshot {
	out := make([]types.PortSnapshot, 0, len(t.entries))
	for _, p := range t.entries {
		out = append(out, t.snapshot(p))
	}
	return out
}

// Get returns the snapshot for one gpio.
func (t *Table) Get(gpio int) (types.PortSnapshot, bool) {
	p, ok := t.find(gpio)
	if !ok {
		return types.PortSnapshot{}, false
	}
	return t.snapshot(*p), true
}

// Role reports the current role of a gpio present in the table.
func (t *Table) Role(gpio int) (types.Role, bool) {
	p, ok := t.find(gpio)
	if !ok {
		return types.RoleDisabled, false
	}
	return p.Role, true
}

// Each visits every entry in table order.
func (t *Table) Each(fn func(Port)) {
	for _, p := range t.entries {
		fn(p)
	}
}

// Counts returns how many ports hold each IR role.
func (t *Table) Counts() (outputs, inputs int) {
	for _, p := range t.entries {
		switch p.Role {
		case types.RoleIrOutput:
			outputs++
		case types.RoleIrInput:
			inputs++
		}
	}
	return
}

func (t *Table) Len() int { return len(t.entries) }

// Variant returns the board definition the table was built for.
func (t *Table) Variant() boards.Definition { return t.def }

func (t *Table) find(gpio int) (*Port, bool) {
	for i := range t.entries {
		if t.entries[i].GPIO == gpio {
			return &t.entries[i], true
		}
	}
	return nil, false
}

func (t *Table) snapshot(p Port) types.PortSnapshot {
	return types.PortSnapshot{
		GPIO:      p.GPIO,
		Role:      p.Role,
		Label:     p.Label,
		CanInput:  true,
		CanOutput: !t.def.IsInputOnly(p.GPIO),
	}
}
