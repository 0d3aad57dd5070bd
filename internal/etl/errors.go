package etl

import (
	"errors"
	"fmt"

	"github.com/BartekS5/cleanetl/pkg/database"
)

// Error kinds a run can fail with. Match them with errors.Is.
var (
	ErrSourceNotFound   = errors.New("source not found")
	ErrSourceParse      = errors.New("source parse error")
	ErrLoad             = errors.New("load error")
	ErrConnectionConfig = database.ErrConnectionConfig
)

// StageError tags a failure with the stage it happened in and its kind.
type StageError struct {
	Stage string
	Kind  error
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func (e *StageError) Is(target error) bool { return target == e.Kind }

func extractErr(kind, err error) error {
	return &StageError{Stage: "extract", Kind: kind, Err: err}
}

func loadErr(err error) error {
	return &StageError{Stage: "load", Kind: ErrLoad, Err: err}
}
