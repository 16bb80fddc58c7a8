package vshader

import (
	"fmt"
	"log/slog"
)

// PinDirection distinguishes pins consuming a value from pins producing one.
type PinDirection uint8

const (
	PinInput PinDirection = iota
	PinOutput
)

func (d PinDirection) String() string {
	if d == PinInput {
		return "input"
	}
	return "output"
}

// Pin is a typed connection point on a [Node]. Pins are implemented by [*InputPin] and [*OutputPin].
type Pin interface {
	// Node returns the node owning the pin.
	Node() Node
	Direction() PinDirection
	// Index is the position of the pin within its node's input or output pins.
	Index() int
	DataType() DataType
	// Connect connects the pin to other, which must be of the opposite direction and of a compatible
	// data type. Connecting an input pin replaces its existing upstream connection.
	// Connect reports whether the connection was made. On failure no edge state is modified.
	Connect(other Pin) bool
	// Disconnect removes the edge between the pin and other if it exists.
	Disconnect(other Pin) bool
	// DisconnectAll removes every edge touching the pin.
	DisconnectAll()
	// Connections returns the pins currently connected to this pin.
	Connections() []Pin
	IsConnected() bool
}

var (
	_ Pin = (*InputPin)(nil) // Interface implementation compile-time check.
	_ Pin = (*OutputPin)(nil)
)

// pinRef references a pin by owning node identity and index. A reference to
// a destroyed node no longer resolves since the node's slot generation changed.
type pinRef struct {
	node  NodeID
	index int
}

func (r pinRef) isZero() bool { return !r.node.IsValid() }

// InputPin consumes a single value. It holds at most one upstream connection.
type InputPin struct {
	owner Node
	index int
	typ   DataType
	def   Value
	link  pinRef
}

// OutputPin produces a value that may feed any number of input pins.
type OutputPin struct {
	owner Node
	index int
	typ   DataType
	links []pinRef
}

func (p *InputPin) Node() Node              { return p.owner }
func (p *InputPin) Direction() PinDirection { return PinInput }
func (p *InputPin) Index() int              { return p.index }
func (p *InputPin) DataType() DataType      { return p.typ }
func (p *InputPin) ref() pinRef             { return pinRef{node: p.owner.ID(), index: p.index} }
func (p *InputPin) script() *Script         { return p.owner.Script() }

func (p *OutputPin) Node() Node              { return p.owner }
func (p *OutputPin) Direction() PinDirection { return PinOutput }
func (p *OutputPin) Index() int              { return p.index }
func (p *OutputPin) DataType() DataType      { return p.typ }
func (p *OutputPin) ref() pinRef             { return pinRef{node: p.owner.ID(), index: p.index} }
func (p *OutputPin) script() *Script         { return p.owner.Script() }

func (p *InputPin) String() string {
	return fmt.Sprintf("%s.in%d(%s)", nodeString(p.owner), p.index, p.typ)
}

func (p *OutputPin) String() string {
	return fmt.Sprintf("%s.out%d(%s)", nodeString(p.owner), p.index, p.typ)
}

// Connect connects the input pin to other, which must be an [*OutputPin].
func (p *InputPin) Connect(other Pin) bool {
	out, ok := other.(*OutputPin)
	if !ok || p.script() == nil {
		return false
	}
	return p.script().connect(out, p) == nil
}

// Connect connects other, which must be an [*InputPin], to the output pin.
func (p *OutputPin) Connect(other Pin) bool {
	in, ok := other.(*InputPin)
	if !ok || p.script() == nil {
		return false
	}
	return p.script().connect(p, in) == nil
}

// Upstream returns the output pin feeding p or nil if p is not connected.
func (p *InputPin) Upstream() *OutputPin {
	s := p.script()
	if s == nil || p.link.isZero() {
		return nil
	}
	return s.resolveOutput(p.link)
}

// Downstream returns the input pins fed by p in the order they were connected.
func (p *OutputPin) Downstream() []*InputPin {
	s := p.script()
	if s == nil {
		return nil
	}
	ins := make([]*InputPin, 0, len(p.links))
	for _, r := range p.links {
		if in := s.resolveInput(r); in != nil {
			ins = append(ins, in)
		}
	}
	return ins
}

func (p *InputPin) Connections() []Pin {
	if up := p.Upstream(); up != nil {
		return []Pin{up}
	}
	return nil
}

func (p *OutputPin) Connections() []Pin {
	ins := p.Downstream()
	pins := make([]Pin, len(ins))
	for i := range ins {
		pins[i] = ins[i]
	}
	return pins
}

func (p *InputPin) IsConnected() bool  { return p.Upstream() != nil }
func (p *OutputPin) IsConnected() bool { return len(p.Downstream()) > 0 }

// Disconnect removes the edge between p and other.
func (p *InputPin) Disconnect(other Pin) bool {
	out, ok := other.(*OutputPin)
	if !ok || p.Upstream() != out {
		return false
	}
	p.script().disconnect(out, p)
	return true
}

// Disconnect removes the edge between p and other.
func (p *OutputPin) Disconnect(other Pin) bool {
	in, ok := other.(*InputPin)
	if !ok || in.Upstream() != p {
		return false
	}
	p.script().disconnect(p, in)
	return true
}

// DisconnectAll removes the upstream connection of p, if any.
func (p *InputPin) DisconnectAll() {
	if up := p.Upstream(); up != nil {
		p.script().disconnect(up, p)
	}
	p.link = pinRef{}
}

// DisconnectAll removes every downstream connection of p.
func (p *OutputPin) DisconnectAll() {
	for _, in := range p.Downstream() {
		p.script().disconnect(p, in)
	}
	p.links = p.links[:0]
}

// SetDefault sets the value used for p when it is left unconnected.
// It fails for sampler pins and for values not convertible to the pin's type.
func (p *InputPin) SetDefault(v Value) bool {
	cv, ok := v.Convert(p.typ)
	if !ok || p.typ.IsSampler() {
		Logger().Debug("rejected default value", slog.String("pin", p.String()), slog.String("value", v.String()))
		return false
	}
	p.def = cv
	if s := p.script(); s != nil {
		s.touch()
	}
	return true
}

// ClearDefault removes the default value of p.
func (p *InputPin) ClearDefault() {
	p.def = Value{}
	if s := p.script(); s != nil {
		s.touch()
	}
}

// Default returns the default value of p and whether one is set.
func (p *InputPin) Default() (Value, bool) { return p.def, p.def.IsValid() }

func (p *OutputPin) removeLink(r pinRef) {
	for i := range p.links {
		if p.links[i] == r {
			p.links = append(p.links[:i], p.links[i+1:]...)
			return
		}
	}
}
