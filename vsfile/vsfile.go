// Package vsfile reads and writes shader graphs as TOML or YAML documents.
//
// A document describes one stage. Every node that produces a value has a unique name
// and inputs reference their upstream node by that name:
//
//	stage = "vertex"
//	position = "clip"
//
//	[[inputs]]
//	name = "pos"
//	type = "vec3"
//
//	[[sets]]
//	id = 0
//	[[sets.uniforms]]
//	binding = 0
//	members = [{name = "mvp", type = "mat4"}]
//
//	[[nodes]]
//	name = "pos4"
//	func = "vec4"
//	types = ["vec3", "float32"]
//	inputs = [{from = "pos"}, {value = [1.0]}]
//
//	[[nodes]]
//	name = "clip"
//	op = "mul"
//	types = ["mat4", "vec4"]
//	inputs = [{from = "mvp"}, {from = "pos4"}]
package vsfile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownName   = errors.New("reference to undeclared name")
	ErrDuplicateName = errors.New("name declared more than once")
	ErrUnknownFormat = errors.New("unknown graph file format")
)

// Format is the serialization format of a graph document.
type Format uint8

const (
	FormatTOML Format = iota
	FormatYAML
)

func (f Format) String() string {
	switch f {
	case FormatTOML:
		return "toml"
	case FormatYAML:
		return "yaml"
	}
	return fmt.Sprintf("Format(%d)", uint8(f))
}

// FormatFromPath returns the format implied by the file extension of path.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return 0, fmt.Errorf("%q: %w", path, ErrUnknownFormat)
}

// Graph is the document form of a [vshader.Script].
type Graph struct {
	// Stage is "vertex" or "fragment".
	Stage string `toml:"stage" yaml:"stage"`
	// Position names the node connected to the vertex output. Vertex stage only.
	Position  string     `toml:"position,omitempty" yaml:"position,omitempty"`
	Inputs    []Input    `toml:"inputs,omitempty" yaml:"inputs,omitempty"`
	Outputs   []Output   `toml:"outputs,omitempty" yaml:"outputs,omitempty"`
	Sets      []Set      `toml:"sets,omitempty" yaml:"sets,omitempty"`
	Push      []Member   `toml:"push_constants,omitempty" yaml:"push_constants,omitempty"`
	Constants []Constant `toml:"constants,omitempty" yaml:"constants,omitempty"`
	Nodes     []Node     `toml:"nodes,omitempty" yaml:"nodes,omitempty"`
}

// Input is a member of the stage input interface. Location follows declaration order.
type Input struct {
	Name string `toml:"name" yaml:"name"`
	Type string `toml:"type" yaml:"type"`
}

// Output is a member of the stage output interface fed by an upstream node or a default value.
type Output struct {
	Type  string    `toml:"type" yaml:"type"`
	From  string    `toml:"from,omitempty" yaml:"from,omitempty"`
	Value []float64 `toml:"value,omitempty" yaml:"value,omitempty,flow"`
}

func (o Output) arg() Arg { return Arg{From: o.From, Value: o.Value} }

// Set is a descriptor set with its bindings.
type Set struct {
	ID       uint32    `toml:"id" yaml:"id"`
	Uniforms []Uniform `toml:"uniforms,omitempty" yaml:"uniforms,omitempty"`
	Samplers []Sampler `toml:"samplers,omitempty" yaml:"samplers,omitempty"`
}

// Uniform is a uniform buffer binding whose named members can be read by nodes.
type Uniform struct {
	Binding uint32   `toml:"binding" yaml:"binding"`
	Members []Member `toml:"members" yaml:"members"`
}

// Sampler is a combined texture sampler binding. Type is sampler1D, sampler2D or sampler3D.
type Sampler struct {
	Binding uint32 `toml:"binding" yaml:"binding"`
	Name    string `toml:"name" yaml:"name"`
	Type    string `toml:"type" yaml:"type"`
}

// Member is a named typed value of a uniform buffer or the push constant block.
type Member struct {
	Name string `toml:"name" yaml:"name"`
	Type string `toml:"type" yaml:"type"`
}

// Constant is a constant node. Global constants are declared once in generated
// source and referenced by name.
type Constant struct {
	Name   string    `toml:"name" yaml:"name"`
	Type   string    `toml:"type" yaml:"type"`
	Value  []float64 `toml:"value" yaml:"value,flow"`
	Global bool      `toml:"global,omitempty" yaml:"global,omitempty"`
}

// Node is an operator (Op set) or function (Func set) node. Types are the input pin types
// selecting the overload.
type Node struct {
	Name   string   `toml:"name" yaml:"name"`
	Op     string   `toml:"op,omitempty" yaml:"op,omitempty"`
	Func   string   `toml:"func,omitempty" yaml:"func,omitempty"`
	Types  []string `toml:"types" yaml:"types,flow"`
	Inputs []Arg    `toml:"inputs,omitempty" yaml:"inputs,omitempty"`
}

// Arg feeds an input pin. From names the upstream node, otherwise Value is the pin default.
// Both empty leaves the pin unconnected.
type Arg struct {
	From  string    `toml:"from,omitempty" yaml:"from,omitempty"`
	Value []float64 `toml:"value,omitempty" yaml:"value,omitempty,flow"`
}

// Decode reads a graph document. Unknown fields are an error.
func Decode(r io.Reader, format Format) (*Graph, error) {
	g := new(Graph)
	var err error
	switch format {
	case FormatTOML:
		err = toml.NewDecoder(r).DisallowUnknownFields().Decode(g)
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		err = dec.Decode(g)
	default:
		return nil, ErrUnknownFormat
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s graph: %w", format, err)
	}
	return g, nil
}

// Encode writes g as a document.
func Encode(w io.Writer, g *Graph, format Format) error {
	switch format {
	case FormatTOML:
		enc := toml.NewEncoder(w)
		enc.SetIndentTables(true)
		return enc.Encode(g)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		err := enc.Encode(g)
		return errors.Join(err, enc.Close())
	}
	return ErrUnknownFormat
}

// LoadGraph reads the graph document at path, choosing the format by extension.
func LoadGraph(path string) (*Graph, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	fp, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	return Decode(fp, format)
}

// SaveGraph writes g to path, choosing the format by extension.
func SaveGraph(path string, g *Graph) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	fp, err := os.Create(path)
	if err != nil {
		return err
	}
	defer fp.Close()
	err = Encode(fp, g, format)
	if err != nil {
		return err
	}
	return fp.Sync()
}
