package workspace

import (
	"context"
	"fmt"
	"log"

	"excelviz/domain/core"
	"excelviz/internal/charting"
	"excelviz/internal/filter"
	"excelviz/internal/settings"
)

// restorer applies a settings plan to a session whose lock is already held
type restorer struct {
	session *Session
	drawn   *settings.Countdown
}

func (r *restorer) Prepare(_ context.Context, plan *settings.Plan) error {
	s := r.session

	s.registry.Clear()
	s.slots = make(map[string]*slotState)
	s.selected = nil
	s.filters = filter.NewEngine(s.table.Records)

	s.builder.Colors().Load(plan.ColorPreferences, plan.BaseColors)
	if plan.Theme != "" {
		if t, err := charting.ParseTheme(plan.Theme); err != nil {
			log.Printf("[Workspace] Ignoring saved theme: %v", err)
		} else {
			_ = s.builder.Palette().SetTheme(t)
		}
	}

	if len(plan.FilterColumns) > 0 {
		s.filters.Register(r.present(plan.FilterColumns))
		s.filters.Restore(plan.Filters)
	}

	if columns := r.present(plan.Columns); len(columns) > 0 {
		if _, err := s.generate(columns); err != nil {
			return err
		}
	}
	return nil
}

func (r *restorer) Single(_ context.Context, inst settings.Instruction) error {
	defer r.drawn.Mark()

	st, err := r.slot(inst)
	if err != nil {
		return err
	}
	st.kind = inst.Kind
	st.multi = false
	st.columns = nil
	st.options = inst.Options
	return r.session.draw(inst.Slot, st)
}

func (r *restorer) Multi(_ context.Context, inst settings.Instruction) error {
	st, err := r.slot(inst)
	if err != nil {
		return err
	}
	st.kind = inst.Kind
	st.options = inst.Options
	v, err := r.session.setMultiColumns(inst.Slot, inst.Columns)
	if err != nil {
		return err
	}
	return v.Err()
}

// slot returns the state for the instruction's slot, creating it when the saved
// key was not produced by generating the base columns.
func (r *restorer) slot(inst settings.Instruction) (*slotState, error) {
	s := r.session
	if st, ok := s.slots[inst.Slot]; ok {
		return st, nil
	}
	base := inst.Columns[0]
	if !s.table.HasColumn(base) {
		return nil, fmt.Errorf("%w: %s", core.ErrColumnNotFound, base)
	}
	st := &slotState{column: base, kind: inst.Kind}
	s.slots[inst.Slot] = st
	return st, nil
}

func (r *restorer) present(columns []string) []string {
	var out []string
	for _, col := range columns {
		if r.session.table.HasColumn(col) {
			out = append(out, col)
			continue
		}
		log.Printf("[Workspace] Saved column %q is not in %q", col, r.session.table.Source)
	}
	return out
}
