package charting

import (
	"fmt"
	"log"

	"excelviz/domain/chart"
	"excelviz/domain/core"
	"excelviz/ports"
)

// Mode is the state of a slot
type Mode int

const (
	ModeEmpty Mode = iota
	ModeSingle
	ModeMulti
)

func (m Mode) String() string {
	switch m {
	case ModeSingle:
		return "single"
	case ModeMulti:
		return "multi"
	default:
		return "empty"
	}
}

type slotEntry struct {
	chart chart.Chart
	live  map[string]ports.ChartInstance
	gen   uint64
}

// Registry tracks at most one live chart per slot. A split (multi-pie) slot owns
// one instance per part under derived keys. The registry is not safe for
// concurrent use; the owning session serializes access.
type Registry struct {
	renderer ports.ChartRenderer
	slots    map[string]*slotEntry
	order    []string
	gen      uint64
}

// NewRegistry creates a registry drawing through renderer
func NewRegistry(renderer ports.ChartRenderer) *Registry {
	return &Registry{
		renderer: renderer,
		slots:    make(map[string]*slotEntry),
	}
}

// Render replaces whatever the slot shows with c. Every prior instance of the slot,
// parts included, is destroyed before the first new one is created.
func (r *Registry) Render(c chart.Chart) error {
	if c.Slot == "" {
		return fmt.Errorf("%w: empty slot key", core.ErrInvalidSettings)
	}

	entry, ok := r.slots[c.Slot]
	if !ok {
		entry = &slotEntry{}
		r.slots[c.Slot] = entry
		r.order = append(r.order, c.Slot)
	}
	r.teardown(entry)

	r.gen++
	gen := r.gen
	entry.gen = gen
	entry.chart = c

	created := make(map[string]ports.ChartInstance)
	keys, specs := instancesOf(c)
	for i, key := range keys {
		inst, err := r.renderer.Create(key, specs[i])
		if err != nil {
			destroyAll(created)
			r.teardown(entry)
			r.forget(c.Slot)
			return fmt.Errorf("render %s: %w", key, err)
		}
		created[key] = inst
	}

	// A render for the same slot started from inside Create has superseded this one.
	if entry.gen != gen || r.slots[c.Slot] != entry {
		destroyAll(created)
		return nil
	}
	entry.live = created

	log.Printf("[ChartRegistry] Rendered %s (%s, %d instance(s))", c.Slot, c.Spec.Kind, len(created))
	return nil
}

// Update re-renders an existing slot; unknown slots are an error
func (r *Registry) Update(c chart.Chart) error {
	if _, ok := r.slots[c.Slot]; !ok {
		return core.NewUnknownSlotError(c.Slot)
	}
	return r.Render(c)
}

// Remove tears down and forgets a slot. Unknown slots are a no-op that reports false.
func (r *Registry) Remove(slot string) bool {
	entry, ok := r.slots[slot]
	if !ok {
		return false
	}
	r.teardown(entry)
	r.forget(slot)
	log.Printf("[ChartRegistry] Removed %s", slot)
	return true
}

// Clear removes every slot
func (r *Registry) Clear() {
	for _, slot := range r.Keys() {
		r.Remove(slot)
	}
}

// Get returns the chart occupying slot
func (r *Registry) Get(slot string) (chart.Chart, bool) {
	entry, ok := r.slots[slot]
	if !ok {
		return chart.Chart{}, false
	}
	return entry.chart, true
}

// Keys returns slot keys in creation order
func (r *Registry) Keys() []string {
	return append([]string(nil), r.order...)
}

// Len returns the number of occupied slots
func (r *Registry) Len() int {
	return len(r.slots)
}

// Mode reports whether slot is empty, single-column or multi-column
func (r *Registry) Mode(slot string) Mode {
	entry, ok := r.slots[slot]
	if !ok {
		return ModeEmpty
	}
	if entry.chart.Spec.Multi() {
		return ModeMulti
	}
	return ModeSingle
}

// LiveCount returns the number of live instances attached to slot, parts included
func (r *Registry) LiveCount(slot string) int {
	entry, ok := r.slots[slot]
	if !ok {
		return 0
	}
	return len(entry.live)
}

// LiveKeys returns the instance keys attached to slot
func (r *Registry) LiveKeys(slot string) []string {
	entry, ok := r.slots[slot]
	if !ok {
		return nil
	}
	keys, _ := instancesOf(entry.chart)
	out := keys[:0]
	for _, k := range keys {
		if _, live := entry.live[k]; live {
			out = append(out, k)
		}
	}
	return out
}

func (r *Registry) teardown(entry *slotEntry) {
	live := entry.live
	entry.live = nil
	destroyAll(live)
}

func (r *Registry) forget(slot string) {
	delete(r.slots, slot)
	for i, k := range r.order {
		if k == slot {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

func instancesOf(c chart.Chart) ([]string, []chart.Spec) {
	if !c.Split() {
		return []string{c.Slot}, []chart.Spec{c.Spec}
	}
	keys := make([]string, len(c.Parts))
	for i := range c.Parts {
		keys[i] = chart.PartKey(c.Slot, i)
	}
	return keys, c.Parts
}

func destroyAll(instances map[string]ports.ChartInstance) {
	for key, inst := range instances {
		if err := inst.Destroy(); err != nil {
			log.Printf("[ChartRegistry] Failed to destroy %s: %v", key, err)
		}
	}
}
