package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue/token"

	"github.com/roach88/lazyset/internal/collection"
	"github.com/roach88/lazyset/internal/config"
	"github.com/roach88/lazyset/internal/model"
	"github.com/roach88/lazyset/internal/store"
)

// LoadResult contains the models loaded from a directory.
type LoadResult struct {
	Registry  *model.Registry
	FileCount int
}

// LoadError represents an error that occurred while loading models or data.
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

// LoadModels compiles the CUE entity declarations in dir.
func LoadModels(dir string) (*LoadResult, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("models directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing models directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	files, err := model.FindCUEFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(files) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	reg, err := model.LoadDir(dir)
	if err != nil {
		return nil, convertCompileError(err)
	}
	return &LoadResult{Registry: reg, FileCount: len(files)}, nil
}

// convertCompileError converts a model error to a LoadError with position info.
func convertCompileError(err error) *LoadError {
	var compileErr *model.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
}

// openStore opens the configured database. path overrides the config.
func openStore(cfg *config.Config, path string) (*store.Store, error) {
	if path == "" {
		path = cfg.Database.Path
	}
	st, err := store.Open(path, store.WithBusyTimeout(cfg.Database.BusyTimeout))
	if err != nil {
		return nil, &LoadError{Code: ErrCodeStoreFailed, Message: fmt.Sprintf("opening database %s: %v", path, err)}
	}
	return st, nil
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeStoreFailed = "E006" // Database open or query failed
	ErrCodeFixtures    = "E007" // Fixture file invalid or insert failed

	// Model errors
	ErrCodeEntity      = "E101" // Invalid or duplicate entity declaration
	ErrCodeInheritance = "E102" // Invalid proxy_of/parent chain
	ErrCodeReferences  = "E103" // references names undeclared fields
	ErrCodeInvalidType = "E104" // Invalid field type (e.g., float)

	// Collection and candidate errors
	ErrCodeInvalidCollection = "E201" // Collection flags do not describe a valid collection
	ErrCodeInvalidCandidate  = "E202" // Candidate is not an entity of a known type
)

// MapFieldToErrorCode maps a model error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "type":
		return ErrCodeInvalidType
	case field == "references":
		return ErrCodeReferences
	case field == "cue":
		return ErrCodeLoadFailed
	case strings.HasSuffix(field, ".proxy_of"), strings.HasSuffix(field, ".parent"), strings.HasSuffix(field, ".pk"):
		return ErrCodeInheritance
	case field == "entity", strings.HasPrefix(field, "entity."):
		return ErrCodeEntity
	default:
		return ErrCodeGeneric
	}
}

// resolveErrorCode maps a collection error to an error code.
func resolveErrorCode(err error) string {
	switch {
	case collection.IsInvalidCandidate(err):
		return ErrCodeInvalidCandidate
	case collection.IsStoreFailure(err):
		return ErrCodeStoreFailed
	default:
		return ErrCodeGeneric
	}
}

// outputLoadError reports err through the formatter and returns the
// matching exit error.
func outputLoadError(f *OutputFormatter, err error) error {
	code, message := ErrCodeGeneric, err.Error()
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		code, message = loadErr.Code, loadErr.Message
		if loadErr.Pos.IsValid() {
			message = fmt.Sprintf("%s:%d:%d: %s", loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column(), message)
		}
	}
	if outErr := f.Error(code, message, nil); outErr != nil {
		return outErr
	}
	return WrapExitError(ExitCommandError, "command failed", err)
}
