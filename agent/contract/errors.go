package contract

import "errors"

var (
	ErrValidation        = errors.New("validation failed")
	ErrModelInvoke       = errors.New("model invoke failed")
	ErrSchemaViolation   = errors.New("model response violates schema")
	ErrEngineTransient   = errors.New("transient engine failure")
	ErrRunTimeout        = errors.New("run exceeded time budget")
	ErrExtraction        = errors.New("extraction failed")
	ErrIdentityAmbiguous = errors.New("identity match is ambiguous")
	ErrStoreConflict     = errors.New("concurrent store write conflict")
)
