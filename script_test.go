package vshader_test

import (
	"testing"

	"github.com/moltenforge/vshader"
)

func TestVertexScriptSentinel(t *testing.T) {
	s := vshader.NewVertexScript()
	vout := s.VertexOutput()
	if vout == nil {
		t.Fatal("nil vertex output")
	}
	if s.NodeCount() != 1 {
		t.Fatal("want only sentinel node, got", s.NodeCount())
	}
	if s.DestroyNode(vout) {
		t.Fatal("sentinel destroyed")
	}
	if s.VertexOutput() != vout || s.NodeCount() != 1 || !s.Contains(vout) {
		t.Fatal("sentinel affected by DestroyNode")
	}
	c := s.CreateConstant(vshader.ValueOf[float32](1))
	if s.NodeCount() != 2 {
		t.Fatal("want 2 nodes, got", s.NodeCount())
	}
	if !s.DestroyNode(c) || s.NodeCount() != 1 {
		t.Fatal("constant not destroyed")
	}
	if vshader.NewFragmentScript().VertexOutput() != nil {
		t.Fatal("fragment script has vertex output")
	}
}

func TestDestroyNodeCascade(t *testing.T) {
	s := vshader.NewFragmentScript()
	a := s.CreateConstant(vshader.ValueOf[float32](1))
	b := s.CreateConstant(vshader.ValueOf[float32](2))
	op, _ := s.CreateOperator(vshader.OpAdd, vshader.Float32, vshader.Float32)
	sum, _ := s.CreateOperator(vshader.OpMul, vshader.Float32, vshader.Float32)
	a.Output().Connect(op.Left())
	b.Output().Connect(op.Right())
	op.Output().Connect(sum.Left())
	op.Output().Connect(sum.Right())
	if s.EdgeCount() != 4 {
		t.Fatal("want 4 edges, got", s.EdgeCount())
	}
	id := op.ID()
	if !s.DestroyNode(op) {
		t.Fatal("destroy failed")
	}
	if s.EdgeCount() != 0 {
		t.Fatal("edges remain after destroy", s.EdgeCount())
	}
	if a.Output().IsConnected() || b.Output().IsConnected() || sum.Left().IsConnected() || sum.Right().IsConnected() {
		t.Fatal("dangling reference to destroyed node")
	}
	if s.Node(id) != nil || op.Script() != nil {
		t.Fatal("destroyed node still resolvable")
	}
	if s.DestroyNode(op) {
		t.Fatal("double destroy succeeded")
	}
	// Slot reuse must not resurrect the stale id.
	c := s.CreateConstant(vshader.ValueOf[float32](3))
	if c.ID() == id || s.Node(id) != nil {
		t.Fatal("stale id resolves after slot reuse")
	}
	if c.ID().Index() != id.Index() {
		t.Fatal("expected slot reuse")
	}
}

func TestDestroyForeignNode(t *testing.T) {
	s1 := vshader.NewFragmentScript()
	s2 := vshader.NewFragmentScript()
	c := s1.CreateConstant(vshader.ValueOf[float32](1))
	if s2.DestroyNode(c) || s2.DestroyNode(nil) {
		t.Fatal("destroyed node of another script")
	}
	if s1.NodeCount() != 1 {
		t.Fatal("foreign destroy affected owner")
	}
}

func TestNodesInsertionOrder(t *testing.T) {
	s := vshader.NewFragmentScript()
	var want []vshader.Node
	for i := range 5 {
		want = append(want, s.CreateConstant(vshader.ValueOf(float32(i))))
	}
	s.DestroyNode(want[2])
	want = append(want[:2], want[3:]...)
	got := s.Nodes()
	if len(got) != len(want) {
		t.Fatalf("want %d nodes, got %d", len(want), len(got))
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("node %d: want %s, got %s", i, vshader.Describe(want[i]), vshader.Describe(got[i]))
		}
	}
}

func TestVertexScenario(t *testing.T) {
	vs := vshader.NewVertexScript()
	fs := vshader.NewFragmentScript()
	pos := vs.InputInterface().AddMember(vshader.Vec3)
	color := vs.InputInterface().AddMember(vshader.Vec4)
	ub := vs.DescriptorSets().AddSet(0).AddUniformBuffer(0)
	mvp := ub.AddMember(vshader.Mat4)
	pack, err := vs.CreateFunction(vshader.FuncCreateVec4, vshader.Vec3, vshader.Float32)
	if err != nil {
		t.Fatal(err)
	}
	pack.InputPin(1).SetDefault(vshader.ValueOf[float32](1))
	mul, err := vs.CreateOperator(vshader.OpMul, vshader.Mat4, vshader.Vec4)
	if err != nil {
		t.Fatal(err)
	}
	outColor := fs.OutputInterface().AddMember(vshader.Vec4)
	fragColor := fs.InputInterface().AddMember(vshader.Vec4)
	vsColor := vs.OutputInterface().AddMember(vshader.Vec4)
	for _, ok := range []bool{
		pos.Output().Connect(pack.InputPin(0)),
		mvp.Output().Connect(mul.Left()),
		pack.Output().Connect(mul.Right()),
		mul.Output().Connect(vs.VertexOutput().Input()),
		color.Output().Connect(vsColor.Input()),
		fragColor.Output().Connect(outColor.Input()),
	} {
		if !ok {
			t.Fatal("connection rejected")
		}
	}
	if got := vs.VertexOutput().Input().Connections(); len(got) != 1 {
		t.Fatal("want one upstream on sentinel, got", len(got))
	}
	if fs.OutputInterface().MemberCount() != 1 {
		t.Fatal("want one fragment output")
	}
	if color.Location() != 1 || pos.Location() != 0 {
		t.Fatal("unexpected input locations", pos.Location(), color.Location())
	}
}

func TestInterfaceMembers(t *testing.T) {
	s := vshader.NewVertexScript()
	in := s.InputInterface()
	if in.AddMember(vshader.Sampler2D) != nil || in.AddMember(vshader.Bool) != nil || in.AddMember(vshader.DataTypeUndefined) != nil {
		t.Fatal("accepted non interface type")
	}
	m := in.AddMember(vshader.Mat4)
	v := in.AddMember(vshader.Vec2)
	if v.Location() != 4 {
		t.Fatal("mat4 should span 4 locations, got", v.Location())
	}
	if !s.DestroyNode(m) {
		t.Fatal("destroy member failed")
	}
	if in.MemberCount() != 1 || v.Location() != 0 || m.Location() != -1 {
		t.Fatal("member removal did not update interface")
	}
	if in.Member(1) != nil {
		t.Fatal("out of range member")
	}
}

func TestVersionTracksMutation(t *testing.T) {
	s := vshader.NewFragmentScript()
	c := s.CreateConstant(vshader.ValueOf[float32](1))
	v0 := s.Version()
	c.SetValue(vshader.ValueOf[float32](2))
	if s.Version() == v0 {
		t.Fatal("SetValue did not bump version")
	}
	if c.SetValue(vshader.ValueOf(true)) {
		t.Fatal("bool value accepted by float constant")
	}
	if c.Value().Float() != 2 {
		t.Fatal("value changed by rejected SetValue")
	}
}

func TestCreateUnsupported(t *testing.T) {
	s := vshader.NewFragmentScript()
	if _, err := s.CreateOperator(vshader.OpDiv, vshader.Vec4, vshader.Mat4); err == nil {
		t.Fatal("vec4/mat4 should be unsupported")
	}
	if _, err := s.CreateFunction(vshader.FuncCross, vshader.Vec2, vshader.Vec2); err == nil {
		t.Fatal("cross of vec2 should be unsupported")
	}
	if s.NodeCount() != 0 {
		t.Fatal("failed creation registered nodes")
	}
	if s.CreateConstant(vshader.Value{}) != nil {
		t.Fatal("invalid constant created")
	}
}

func TestSignaturesNotShared(t *testing.T) {
	sig, ok := vshader.LookupFunction(vshader.FuncCreateVec2, vshader.Float32, vshader.Float32)
	if !ok {
		t.Fatal("vec2(float, float) not found")
	}
	sig.In[0] = vshader.Mat4
	for _, s := range vshader.FunctionSignatures(vshader.FuncCreateVec2) {
		s.In[1] = vshader.Mat4
	}
	if _, ok := vshader.LookupFunction(vshader.FuncCreateVec2, vshader.Float32, vshader.Float32); !ok {
		t.Fatal("editing a returned signature changed the overload table")
	}
	if _, ok := vshader.LookupFunction(vshader.FuncCreateVec2, vshader.Mat4, vshader.Float32); ok {
		t.Fatal("edited signature became a supported overload")
	}
}

func TestSlotReuse(t *testing.T) {
	s := vshader.NewFragmentScript()
	var live []*vshader.Constant
	for i := 0; i < 32; i++ {
		c := s.CreateConstant(vshader.ValueOf(float32(i)))
		live = append(live, c)
		if i%3 == 0 {
			if !s.DestroyNode(live[0]) {
				t.Fatal("destroy failed")
			}
			live = live[1:]
		}
	}
	if s.NodeCount() != len(live) || len(s.Nodes()) != len(live) {
		t.Fatalf("want %d nodes, got count %d and %d listed", len(live), s.NodeCount(), len(s.Nodes()))
	}
	for _, c := range live {
		if s.Node(c.ID()) != c {
			t.Fatalf("node %s not stored", c.ID())
		}
	}
}

func TestFragmentMatrixOutput(t *testing.T) {
	fs := vshader.NewFragmentScript()
	if fs.OutputInterface().AddMember(vshader.Mat4) != nil {
		t.Fatal("fragment stage accepted a mat4 output")
	}
	if fs.NodeCount() != 0 || fs.OutputInterface().MemberCount() != 0 {
		t.Fatal("rejected output left state behind")
	}
	vs := vshader.NewVertexScript()
	if vs.OutputInterface().AddMember(vshader.Mat4) == nil {
		t.Fatal("vertex stage rejected a mat4 varying")
	}
}
