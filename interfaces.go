package vshader

import (
	"log/slog"
	"slices"
)

// InputInterface is the ordered list of values a stage consumes, either vertex attributes
// or values interpolated from the previous stage. Member order determines locations.
type InputInterface struct {
	script  *Script
	members []*InputVariable
}

// AddMember appends a new input of type dt. It returns nil for samplers, booleans and invalid types,
// which cannot cross stage boundaries.
func (ii *InputInterface) AddMember(dt DataType) *InputVariable {
	if !isInterfaceType(dt) {
		Logger().Debug("rejected input member", slog.String("type", dt.String()))
		return nil
	}
	iv := &InputVariable{variable: variable{kind: VariableInput, dt: dt}, iface: ii}
	iv.initPins(iv, nil, []DataType{dt})
	ii.script.register(iv, NodeVariable)
	ii.members = append(ii.members, iv)
	return iv
}

// RemoveMember destroys the input variable and removes it from the interface.
// Locations of the following members shift accordingly.
func (ii *InputInterface) RemoveMember(iv *InputVariable) bool {
	idx := slices.Index(ii.members, iv)
	if idx < 0 {
		return false
	}
	ii.members = slices.Delete(ii.members, idx, idx+1)
	iv.iface = nil
	ii.script.destroy(iv)
	return true
}

func (ii *InputInterface) MemberCount() int { return len(ii.members) }

// Member returns the i'th member or nil if i is out of range.
func (ii *InputInterface) Member(i int) *InputVariable {
	if i < 0 || i >= len(ii.members) {
		return nil
	}
	return ii.members[i]
}

// Members returns a snapshot of the members in declaration order.
func (ii *InputInterface) Members() []*InputVariable { return slices.Clone(ii.members) }

func (ii *InputInterface) location(iv *InputVariable) int {
	loc := 0
	for _, m := range ii.members {
		if m == iv {
			return loc
		}
		loc += m.dt.LocationSpan()
	}
	return -1
}

// OutputInterface is the ordered list of values a stage produces, either values interpolated
// into the next stage or framebuffer attachments. Member order determines locations.
type OutputInterface struct {
	script  *Script
	members []*OutputVariable
}

// AddMember appends a new output of type dt. It returns nil for samplers, booleans and invalid types.
// Fragment outputs are framebuffer attachments and may not be matrices.
func (oi *OutputInterface) AddMember(dt DataType) *OutputVariable {
	if !isInterfaceType(dt) || (dt == Mat4 && oi.script.stage == StageFragment) {
		Logger().Debug("rejected output member", slog.String("type", dt.String()))
		return nil
	}
	ov := &OutputVariable{variable: variable{kind: VariableOutput, dt: dt}, iface: oi}
	ov.initPins(ov, []DataType{dt}, nil)
	oi.script.register(ov, NodeVariable)
	oi.members = append(oi.members, ov)
	return ov
}

// RemoveMember destroys the output variable and removes it from the interface.
func (oi *OutputInterface) RemoveMember(ov *OutputVariable) bool {
	idx := slices.Index(oi.members, ov)
	if idx < 0 {
		return false
	}
	oi.members = slices.Delete(oi.members, idx, idx+1)
	ov.iface = nil
	oi.script.destroy(ov)
	return true
}

func (oi *OutputInterface) MemberCount() int { return len(oi.members) }

// Member returns the i'th member or nil if i is out of range.
func (oi *OutputInterface) Member(i int) *OutputVariable {
	if i < 0 || i >= len(oi.members) {
		return nil
	}
	return oi.members[i]
}

// Members returns a snapshot of the members in declaration order.
func (oi *OutputInterface) Members() []*OutputVariable { return slices.Clone(oi.members) }

func (oi *OutputInterface) location(ov *OutputVariable) int {
	loc := 0
	for _, m := range oi.members {
		if m == ov {
			return loc
		}
		loc += m.dt.LocationSpan()
	}
	return -1
}

func isInterfaceType(dt DataType) bool {
	return dt.IsValid() && !dt.IsSampler() && dt != Bool
}
