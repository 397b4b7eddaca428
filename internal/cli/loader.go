package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue/token"

	"github.com/roach88/tapdance/internal/compiler"
	"github.com/roach88/tapdance/internal/ir"
	"github.com/roach88/tapdance/internal/keymap"
)

// LoadResult is a keymap loaded for a command.
type LoadResult struct {
	Source    string // directory or builtin:NAME
	Table     *ir.DanceTable
	Hash      string
	FileCount int // CUE files found; zero for built-in tables

	// Findings are validation errors and warnings for Table.
	Findings []compiler.ValidationError
}

// LoadError represents an error that occurred while loading a keymap.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric       = "E001" // Generic/unknown error
	ErrCodeScanError     = "E002" // Directory scan error
	ErrCodeNoFiles       = "E003" // No CUE files found
	ErrCodeLoadFailed    = "E004" // CUE load failed
	ErrCodeNotFound      = "E005" // Path, keymap or session not found
	ErrCodeBuildFailed   = "E006" // CUE build failed
	ErrCodeWriteFailed   = "E007" // File write error
	ErrCodeCompileFailed = "E008" // CUE value is not a valid keymap
	ErrCodeStore         = "E009" // Session database error
	ErrCodeScript        = "E010" // Event script could not be loaded or run
)

// LoadKeymap loads a keymap reference: "builtin:NAME" or a directory of
// CUE files. The table is validated; findings are returned, not treated as
// load errors.
func LoadKeymap(ref string) (*LoadResult, error) {
	if name, ok := strings.CutPrefix(ref, keymap.BuiltinPrefix); ok {
		table, err := keymap.Builtin(name)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: err.Error()}
		}
		return newLoadResult(ref, table, 0)
	}

	dir := ref
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("keymap directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing keymap directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(cueFiles) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	table, err := compiler.LoadDir(dir)
	if err != nil {
		return nil, convertCompileError(err)
	}
	return newLoadResult(dir, table, len(cueFiles))
}

func newLoadResult(source string, table *ir.DanceTable, files int) (*LoadResult, error) {
	hash, err := ir.TableHash(table)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("hashing table: %v", err)}
	}
	return &LoadResult{
		Source:    source,
		Table:     table,
		Hash:      hash,
		FileCount: files,
		Findings:  compiler.Validate(table),
	}, nil
}

// FindCUEFiles returns the .cue files directly in dir. CUE loads one
// package per directory, so subdirectories are not searched.
func FindCUEFiles(dir string) ([]string, error) {
	return filepath.Glob(filepath.Join(dir, "*.cue"))
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: err.Error(),
	}
}

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch field {
	case compiler.FieldLoad:
		return ErrCodeLoadFailed
	case compiler.FieldBuild:
		return ErrCodeBuildFailed
	default:
		return ErrCodeCompileFailed
	}
}

// loadErrorCode returns the code of a LoadError, or ErrCodeGeneric.
func loadErrorCode(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		msg := loadErr.Message
		if loadErr.Pos.IsValid() {
			msg = fmt.Sprintf("%s:%d:%d: %s", loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column(), msg)
		}
		return loadErr.Code, msg
	}
	return ErrCodeGeneric, err.Error()
}
