package keymap

import (
	"path/filepath"
	"strings"

	"github.com/roach88/tapdance/internal/compiler"
	"github.com/roach88/tapdance/internal/ir"
)

// BuiltinPrefix marks a keymap reference that names a built-in table.
const BuiltinPrefix = "builtin:"

// Resolve turns a keymap reference into a table. "builtin:NAME" selects a
// built-in table; anything else is a directory of CUE files, resolved
// against baseDir when relative.
func Resolve(ref, baseDir string) (*ir.DanceTable, error) {
	if name, ok := strings.CutPrefix(ref, BuiltinPrefix); ok {
		return Builtin(name)
	}
	dir := ref
	if !filepath.IsAbs(dir) && baseDir != "" {
		dir = filepath.Join(baseDir, dir)
	}
	return compiler.LoadDir(dir)
}
