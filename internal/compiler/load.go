package compiler

import (
	"errors"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/tapdance/internal/ir"
)

// Field names used for errors that happen before compilation starts.
const (
	FieldLoad  = "load"
	FieldBuild = "build"
)

// BuildDir loads the CUE package in dir and builds it into a single value.
// All .cue files of the package are unified.
func BuildDir(dir string) (cue.Value, error) {
	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return cue.Value{}, &CompileError{Field: FieldLoad, Message: "no CUE instances loaded"}
	}

	inst := instances[0]
	if inst.Err != nil {
		return cue.Value{}, &CompileError{Field: FieldLoad, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		var ce *CompileError
		if errors.As(formatCUEError(err), &ce) {
			ce.Field = FieldBuild
			return cue.Value{}, ce
		}
		return cue.Value{}, &CompileError{Field: FieldBuild, Message: fmt.Sprintf("building CUE value: %v", err)}
	}
	return value, nil
}

// LoadDir builds the CUE package in dir and compiles it into a table.
func LoadDir(dir string) (*ir.DanceTable, error) {
	v, err := BuildDir(dir)
	if err != nil {
		return nil, err
	}
	return CompileTable(v)
}
