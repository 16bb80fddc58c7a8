package vsfile_test

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/moltenforge/vshader"
	"github.com/moltenforge/vshader/glbuild"
	"github.com/moltenforge/vshader/vsfile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func glsl(t *testing.T, s *vshader.Script) string {
	t.Helper()
	var buf bytes.Buffer
	_, _, err := glbuild.NewDefaultProgrammer().WriteGLSL(&buf, s)
	require.NoError(t, err)
	return buf.String()
}

func TestLoadTOML(t *testing.T) {
	s, err := vsfile.Load(filepath.Join("testdata", "triangle.vert.toml"))
	require.NoError(t, err)
	assert.Equal(t, vshader.StageVertex, s.Stage())
	assert.Equal(t, 2, s.InputInterface().MemberCount())
	assert.Equal(t, 1, s.OutputInterface().MemberCount())
	ub := vshader.GetBinding[*vshader.UniformBuffer](s.DescriptorSets().Set(0), 0)
	require.NotNil(t, ub)
	assert.Equal(t, "mvp", ub.Member(0).Label())

	src := glsl(t, s)
	assert.Contains(t, src, "uniform UB_s0_b0 {\n\tmat4 m0;\n} ub_s0_b0;")
	assert.Contains(t, src, "vec4 t0 = vec4(vin_0, 1.);")
	assert.Contains(t, src, "gl_Position = t1;")
}

func TestLoadYAML(t *testing.T) {
	s, err := vsfile.Load(filepath.Join("testdata", "textured.frag.yaml"))
	require.NoError(t, err)
	assert.Equal(t, vshader.StageFragment, s.Stage())
	assert.Equal(t, 1, s.PushConstants().MemberCount())
	smp := vshader.GetBinding[*vshader.Sampler2DBinding](s.DescriptorSets().Set(1), 0)
	require.NotNil(t, smp)
	assert.Equal(t, "albedo", smp.Sampler().Label())

	src := glsl(t, s)
	assert.Contains(t, src, "uniform sampler2D tex_s1_b0;")
	assert.Contains(t, src, "texture(tex_s1_b0, ")
	assert.Contains(t, src, "const float ")
}

func TestBuildErrors(t *testing.T) {
	load := func(t *testing.T) *vsfile.Graph {
		t.Helper()
		g, err := vsfile.LoadGraph(filepath.Join("testdata", "triangle.vert.toml"))
		require.NoError(t, err)
		return g
	}
	t.Run("unknown reference", func(t *testing.T) {
		g := load(t)
		g.Nodes[1].Inputs[0].From = "model"
		_, err := g.Build()
		assert.ErrorIs(t, err, vsfile.ErrUnknownName)
	})
	t.Run("duplicate name", func(t *testing.T) {
		g := load(t)
		g.Inputs[1].Name = "pos"
		_, err := g.Build()
		assert.ErrorIs(t, err, vsfile.ErrDuplicateName)
	})
	t.Run("aggregated connections", func(t *testing.T) {
		g := load(t)
		g.Nodes[0].Inputs[0].From = "uv"
		g.Position = "missing"
		_, err := g.Build()
		assert.ErrorIs(t, err, vshader.ErrTypeMismatch)
		assert.ErrorIs(t, err, vsfile.ErrUnknownName)
	})
	t.Run("bad default", func(t *testing.T) {
		g := load(t)
		g.Nodes[0].Inputs[1].Value = []float64{1, 2}
		_, err := g.Build()
		assert.Error(t, err)
	})
	t.Run("unknown function", func(t *testing.T) {
		g := load(t)
		g.Nodes[0].Func = "vec5"
		_, err := g.Build()
		assert.Error(t, err)
	})
	t.Run("position in fragment", func(t *testing.T) {
		g := load(t)
		g.Stage = "fragment"
		_, err := g.Build()
		assert.Error(t, err)
	})
	t.Run("sampler interface", func(t *testing.T) {
		g := load(t)
		g.Inputs[0].Type = "sampler2D"
		_, err := g.Build()
		assert.ErrorIs(t, err, vshader.ErrInvalidType)
	})
}

func TestDecodeStrict(t *testing.T) {
	_, err := vsfile.Decode(strings.NewReader("stage = \"vertex\"\ncolour = 1\n"), vsfile.FormatTOML)
	assert.Error(t, err)
	_, err = vsfile.Decode(strings.NewReader("stage: vertex\ncolour: 1\n"), vsfile.FormatYAML)
	assert.Error(t, err)
	g, err := vsfile.Decode(strings.NewReader("stage: fragment\n"), vsfile.FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, "fragment", g.Stage)
}

func TestFromScript(t *testing.T) {
	for _, path := range []string{"triangle.vert.toml", "textured.frag.yaml"} {
		t.Run(path, func(t *testing.T) {
			s, err := vsfile.Load(filepath.Join("testdata", path))
			require.NoError(t, err)
			g, err := vsfile.FromScript(s)
			require.NoError(t, err)
			for _, format := range []vsfile.Format{vsfile.FormatTOML, vsfile.FormatYAML} {
				var buf bytes.Buffer
				require.NoError(t, vsfile.Encode(&buf, g, format))
				g2, err := vsfile.Decode(&buf, format)
				require.NoError(t, err, "%s document:\n%s", format, buf.String())
				assert.Equal(t, g, g2)
				s2, err := g2.Build()
				require.NoError(t, err)
				assert.Equal(t, glsl(t, s), glsl(t, s2))
			}
		})
	}
}

func TestFromScriptNames(t *testing.T) {
	s := vshader.NewFragmentScript()
	a := s.CreateConstant(vshader.ValueOf[float32](0.1))
	a.SetLabel("k")
	b := s.CreateConstant(vshader.ValueOf[float32](2))
	b.SetLabel("k")
	add, err := s.CreateOperator(vshader.OpAdd, vshader.Float32, vshader.Float32)
	require.NoError(t, err)
	require.NoError(t, s.Connect(a.Output(), add.Left()))
	require.NoError(t, s.Connect(b.Output(), add.Right()))

	g, err := vsfile.FromScript(s)
	require.NoError(t, err)
	require.Len(t, g.Constants, 2)
	assert.Equal(t, "k", g.Constants[0].Name)
	assert.NotEqual(t, "k", g.Constants[1].Name)
	assert.Equal(t, []float64{0.1}, g.Constants[0].Value)
	require.Len(t, g.Nodes, 1)
	assert.Equal(t, []vsfile.Arg{{From: "k"}, {From: g.Constants[1].Name}}, g.Nodes[0].Inputs)
}

func TestFormatFromPath(t *testing.T) {
	f, err := vsfile.FormatFromPath("a/b.YML")
	require.NoError(t, err)
	assert.Equal(t, vsfile.FormatYAML, f)
	_, err = vsfile.FormatFromPath("graph.json")
	assert.ErrorIs(t, err, vsfile.ErrUnknownFormat)
}
