package vsfile

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/moltenforge/vshader"
)

// Load reads the graph document at path and builds its script.
func Load(path string) (*vshader.Script, error) {
	g, err := LoadGraph(path)
	if err != nil {
		return nil, err
	}
	s, err := g.Build()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

type builder struct {
	s     *vshader.Script
	named map[string]*vshader.OutputPin
}

func (b *builder) declare(name string, n interface {
	vshader.Node
	Output() *vshader.OutputPin
}) error {
	if name == "" {
		return errors.New("unnamed node")
	} else if _, ok := b.named[name]; ok {
		return fmt.Errorf("%q: %w", name, ErrDuplicateName)
	}
	n.SetLabel(name)
	b.named[name] = n.Output()
	return nil
}

// connect feeds in from arg. An empty arg leaves in unconnected.
func (b *builder) connect(in *vshader.InputPin, arg Arg) error {
	if arg.From != "" {
		out, ok := b.named[arg.From]
		if !ok {
			return fmt.Errorf("%q: %w", arg.From, ErrUnknownName)
		}
		return b.s.Connect(out, in)
	} else if arg.Value == nil {
		return nil
	}
	v, err := vshader.ValueFromFloats(in.DataType(), arg.Value)
	if err != nil {
		return err
	}
	if !in.SetDefault(v) {
		return fmt.Errorf("default %s for %s input: %w", v, in.DataType(), vshader.ErrTypeMismatch)
	}
	return nil
}

// Build creates the script described by g. Declarations are validated first and
// stop the build. Connection errors are aggregated.
func (g *Graph) Build() (*vshader.Script, error) {
	var s *vshader.Script
	switch g.Stage {
	case vshader.StageVertex.String():
		s = vshader.NewVertexScript()
	case vshader.StageFragment.String():
		s = vshader.NewFragmentScript()
		if g.Position != "" {
			return nil, errors.New("position declared in fragment stage")
		}
	default:
		return nil, fmt.Errorf("unknown stage %q", g.Stage)
	}
	b := builder{s: s, named: make(map[string]*vshader.OutputPin)}

	for i, in := range g.Inputs {
		dt, err := parseType(in.Type)
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		iv := s.InputInterface().AddMember(dt)
		if iv == nil {
			return nil, fmt.Errorf("input %d: %s not allowed in stage interface: %w", i, dt, vshader.ErrInvalidType)
		}
		err = b.declare(in.Name, iv)
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
	}
	outputs := make([]*vshader.OutputVariable, len(g.Outputs))
	for i, out := range g.Outputs {
		dt, err := parseType(out.Type)
		if err != nil {
			return nil, fmt.Errorf("output %d: %w", i, err)
		}
		outputs[i] = s.OutputInterface().AddMember(dt)
		if outputs[i] == nil {
			return nil, fmt.Errorf("output %d: %s not allowed in stage interface: %w", i, dt, vshader.ErrInvalidType)
		}
	}
	for _, set := range g.Sets {
		err := b.addSet(set)
		if err != nil {
			return nil, fmt.Errorf("set %d: %w", set.ID, err)
		}
	}
	for i, m := range g.Push {
		dt, err := parseType(m.Type)
		if err != nil {
			return nil, fmt.Errorf("push constant %d: %w", i, err)
		}
		pv := s.PushConstants().AddMember(dt)
		if pv == nil {
			return nil, fmt.Errorf("push constant %d: %s: %w", i, dt, vshader.ErrInvalidType)
		}
		err = b.declare(m.Name, pv)
		if err != nil {
			return nil, fmt.Errorf("push constant %d: %w", i, err)
		}
	}
	for _, c := range g.Constants {
		err := b.addConstant(c)
		if err != nil {
			return nil, fmt.Errorf("constant %q: %w", c.Name, err)
		}
	}
	nodes := make([]vshader.Node, len(g.Nodes))
	for i, n := range g.Nodes {
		node, err := b.addNode(n)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", n.Name, err)
		}
		nodes[i] = node
	}

	// All names are known, wire the graph.
	var errs []error
	for i, n := range g.Nodes {
		if len(n.Inputs) > nodes[i].InputPinCount() {
			errs = append(errs, fmt.Errorf("node %q: %d inputs for %d pins", n.Name, len(n.Inputs), nodes[i].InputPinCount()))
			continue
		}
		for j, arg := range n.Inputs {
			err := b.connect(nodes[i].InputPin(j), arg)
			if err != nil {
				errs = append(errs, fmt.Errorf("node %q input %d: %w", n.Name, j, err))
			}
		}
	}
	for i, out := range g.Outputs {
		err := b.connect(outputs[i].Input(), out.arg())
		if err != nil {
			errs = append(errs, fmt.Errorf("output %d: %w", i, err))
		}
	}
	if g.Position != "" {
		err := b.connect(s.VertexOutput().Input(), Arg{From: g.Position})
		if err != nil {
			errs = append(errs, fmt.Errorf("position: %w", err))
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return s, nil
}

func (b *builder) addSet(set Set) error {
	ds := b.s.DescriptorSets().AddSet(set.ID)
	if ds == nil {
		return vshader.ErrDuplicateID
	}
	for _, u := range set.Uniforms {
		ub := ds.AddUniformBuffer(u.Binding)
		if ub == nil {
			return fmt.Errorf("binding %d: %w", u.Binding, vshader.ErrDuplicateID)
		}
		for i, m := range u.Members {
			dt, err := parseType(m.Type)
			if err != nil {
				return fmt.Errorf("binding %d member %d: %w", u.Binding, i, err)
			}
			uv := ub.AddMember(dt)
			if uv == nil {
				return fmt.Errorf("binding %d member %d: %s: %w", u.Binding, i, dt, vshader.ErrInvalidType)
			}
			err = b.declare(m.Name, uv)
			if err != nil {
				return fmt.Errorf("binding %d member %d: %w", u.Binding, i, err)
			}
		}
	}
	for _, smp := range set.Samplers {
		bt, ok := vshader.ParseBindingType(smp.Type)
		if !ok || !bt.IsSampler() {
			return fmt.Errorf("binding %d: unknown sampler type %q", smp.Binding, smp.Type)
		}
		binding := ds.AddBinding(bt, smp.Binding)
		if binding == nil {
			return fmt.Errorf("binding %d: %w", smp.Binding, vshader.ErrDuplicateID)
		}
		sb := binding.(interface{ Sampler() *vshader.SamplerVariable })
		err := b.declare(smp.Name, sb.Sampler())
		if err != nil {
			return fmt.Errorf("binding %d: %w", smp.Binding, err)
		}
	}
	return nil
}

func (b *builder) addConstant(c Constant) error {
	dt, err := parseType(c.Type)
	if err != nil {
		return err
	}
	v, err := vshader.ValueFromFloats(dt, c.Value)
	if err != nil {
		return err
	}
	if c.Global {
		return b.declare(c.Name, b.s.CreateConstantVariable(c.Name, v))
	}
	return b.declare(c.Name, b.s.CreateConstant(v))
}

func (b *builder) addNode(n Node) (vshader.Node, error) {
	types := make([]vshader.DataType, len(n.Types))
	for i, name := range n.Types {
		dt, err := parseType(name)
		if err != nil {
			return nil, err
		}
		types[i] = dt
	}
	switch {
	case n.Op != "" && n.Func != "":
		return nil, errors.New("both op and func set")
	case n.Op != "":
		op, ok := vshader.ParseOperatorKind(n.Op)
		if !ok {
			return nil, fmt.Errorf("unknown operator %q", n.Op)
		} else if len(types) != 2 {
			return nil, fmt.Errorf("operator takes 2 types, got %d", len(types))
		}
		node, err := b.s.CreateOperator(op, types[0], types[1])
		if err != nil {
			return nil, err
		}
		return node, b.declare(n.Name, node)
	case n.Func != "":
		fn, ok := vshader.ParseFunctionKind(n.Func)
		if !ok {
			return nil, fmt.Errorf("unknown function %q", n.Func)
		}
		node, err := b.s.CreateFunction(fn, types...)
		if err != nil {
			return nil, err
		}
		return node, b.declare(n.Name, node)
	}
	return nil, errors.New("node needs op or func")
}

func parseType(name string) (vshader.DataType, error) {
	dt, ok := vshader.ParseDataType(name)
	if !ok {
		return dt, fmt.Errorf("unknown type %q: %w", name, vshader.ErrInvalidType)
	}
	return dt, nil
}

// FromScript returns the document form of s. Nodes keep their label as name when it is
// unique, others are named after their kind and index.
func FromScript(s *vshader.Script) (*Graph, error) {
	g := &Graph{Stage: s.Stage().String()}
	names := make(map[vshader.NodeID]string)
	used := make(map[string]bool)
	name := func(n vshader.Node, fallback string) string {
		nm := n.Label()
		if nm == "" || used[nm] {
			nm = fallback
			for i := 1; used[nm]; i++ {
				nm = fallback + "_" + strconv.Itoa(i)
			}
		}
		used[nm] = true
		names[n.ID()] = nm
		return nm
	}

	for i, iv := range s.InputInterface().Members() {
		g.Inputs = append(g.Inputs, Input{Name: name(iv, "in"+strconv.Itoa(i)), Type: iv.DataType().String()})
	}
	for setID, ds := range s.DescriptorSets().All() {
		set := Set{ID: setID}
		for id, binding := range ds.All() {
			prefix := "s" + strconv.FormatUint(uint64(setID), 10) + "b" + strconv.FormatUint(uint64(id), 10)
			switch bd := binding.(type) {
			case *vshader.UniformBuffer:
				u := Uniform{Binding: id}
				for i, uv := range bd.Members() {
					u.Members = append(u.Members, Member{
						Name: name(uv, prefix+"m"+strconv.Itoa(i)),
						Type: uv.DataType().String(),
					})
				}
				set.Uniforms = append(set.Uniforms, u)
			case interface{ Sampler() *vshader.SamplerVariable }:
				set.Samplers = append(set.Samplers, Sampler{
					Binding: id,
					Name:    name(bd.Sampler(), prefix),
					Type:    binding.BindingType().String(),
				})
			}
		}
		g.Sets = append(g.Sets, set)
	}
	for i, pv := range s.PushConstants().Members() {
		g.Push = append(g.Push, Member{Name: name(pv, "pc"+strconv.Itoa(i)), Type: pv.DataType().String()})
	}

	// Name every computing node before resolving references to them.
	var ops []vshader.Node
	for _, n := range s.Nodes() {
		fallback := "n" + strconv.Itoa(n.ID().Index())
		switch node := n.(type) {
		case *vshader.Constant:
			g.Constants = append(g.Constants, Constant{
				Name:  name(node, fallback),
				Type:  node.DataType().String(),
				Value: floats(node.Value()),
			})
		case *vshader.ConstantVariable:
			g.Constants = append(g.Constants, Constant{
				Name:   name(node, fallback),
				Type:   node.DataType().String(),
				Value:  floats(node.Value()),
				Global: true,
			})
		case *vshader.Operator, *vshader.Function:
			name(node, fallback)
			ops = append(ops, node)
		}
	}
	arg := func(in *vshader.InputPin) Arg {
		if up := in.Upstream(); up != nil {
			return Arg{From: names[up.Node().ID()]}
		} else if v, ok := in.Default(); ok {
			return Arg{Value: floats(v)}
		}
		return Arg{}
	}
	for _, n := range ops {
		node := Node{Name: names[n.ID()]}
		switch op := n.(type) {
		case *vshader.Operator:
			node.Op = op.Op().String()
			node.Types = []string{op.Left().DataType().String(), op.Right().DataType().String()}
		case *vshader.Function:
			node.Func = op.Func().String()
			for _, dt := range op.Signature().In {
				node.Types = append(node.Types, dt.String())
			}
		}
		for _, in := range n.InputPins() {
			node.Inputs = append(node.Inputs, arg(in))
		}
		g.Nodes = append(g.Nodes, node)
	}
	for _, ov := range s.OutputInterface().Members() {
		a := arg(ov.Input())
		g.Outputs = append(g.Outputs, Output{Type: ov.DataType().String(), From: a.From, Value: a.Value})
	}
	if s.Stage() == vshader.StageVertex {
		g.Position = arg(s.VertexOutput().Input()).From
	}
	return g, nil
}

func floats(v vshader.Value) []float64 {
	f32 := v.Floats()
	f64 := make([]float64, len(f32))
	for i, f := range f32 {
		// Shortest decimal of the float32 so documents read 0.1 and not 0.10000000149011612.
		f64[i], _ = strconv.ParseFloat(strconv.FormatFloat(float64(f), 'g', -1, 32), 64)
	}
	return f64
}
