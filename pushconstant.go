package vshader

import (
	"log/slog"
	"slices"
)

// PushConstants is the push constant block of a stage: an ordered list of typed members.
// A member's byte offset is the running sum of the sizes of the members before it, so members should
// be declared in an order that keeps each offset aligned to the member's [DataType.Align].
type PushConstants struct {
	script  *Script
	members []*PushConstantVariable
}

// AddMember appends a member of type dt. It returns nil for samplers and invalid types.
func (pc *PushConstants) AddMember(dt DataType) *PushConstantVariable {
	if !dt.IsValid() || dt.IsSampler() {
		Logger().Debug("rejected push constant member", slog.String("type", dt.String()))
		return nil
	}
	pv := &PushConstantVariable{variable: variable{kind: VariablePushConstant, dt: dt}, block: pc}
	pv.initPins(pv, nil, []DataType{dt})
	pc.script.register(pv, NodeVariable)
	pc.members = append(pc.members, pv)
	return pv
}

// RemoveMember destroys the member. Offsets of the following members shift accordingly.
func (pc *PushConstants) RemoveMember(pv *PushConstantVariable) bool {
	idx := slices.Index(pc.members, pv)
	if idx < 0 {
		return false
	}
	pc.members = slices.Delete(pc.members, idx, idx+1)
	pv.block = nil
	pc.script.destroy(pv)
	return true
}

func (pc *PushConstants) MemberCount() int { return len(pc.members) }

// Member returns the i'th member or nil if i is out of range.
func (pc *PushConstants) Member(i int) *PushConstantVariable {
	if i < 0 || i >= len(pc.members) {
		return nil
	}
	return pc.members[i]
}

// Members returns a snapshot of the members in declaration order.
func (pc *PushConstants) Members() []*PushConstantVariable { return slices.Clone(pc.members) }

// Offset returns the byte offset of the i'th member or -1 if i is out of range.
func (pc *PushConstants) Offset(i int) int {
	if i < 0 || i >= len(pc.members) {
		return -1
	}
	off := 0
	for _, m := range pc.members[:i] {
		off += m.dt.Size()
	}
	return off
}

// Size returns the size of the block in bytes.
func (pc *PushConstants) Size() (size int) {
	for _, m := range pc.members {
		size += m.dt.Size()
	}
	return size
}

func (pc *PushConstants) offset(pv *PushConstantVariable) int {
	return pc.Offset(slices.Index(pc.members, pv))
}
