//go:build tinygo || !cgo

package vsaux

import (
	"errors"

	"github.com/moltenforge/vshader"
)

func preview(vertex, fragment *vshader.Script, cfg PreviewConfig) error {
	return errors.New("require cgo for preview rendering")
}
