package glbackend_test

import (
	"testing"

	"github.com/moltenforge/vshader"
	"github.com/moltenforge/vshader/glbackend"
)

func TestCreateShaderProgramStages(t *testing.T) {
	vs, fs := vshader.NewVertexScript(), vshader.NewFragmentScript()
	if _, err := glbackend.CreateShaderProgram(fs, vs); err == nil {
		t.Fatal("expected error for swapped stages")
	}
	if _, err := glbackend.CreateShaderProgram(vs, nil); err == nil {
		t.Fatal("expected error for missing fragment script")
	}
}
