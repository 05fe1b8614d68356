package jobModel

import (
	"context"
	"errors"
)

var (
	ErrUnsupportedType    = errors.New("unsupported document type")
	ErrExtractionFailure  = errors.New("document could not be read")
	ErrTransientAPI       = errors.New("completion service temporarily unavailable")
	ErrFatalAPI           = errors.New("completion service rejected the request")
	ErrParseLowConfidence = errors.New("model reply contained no loader rows")
	ErrOutputWriteFailure = errors.New("loader output could not be written")
	ErrTimeout            = errors.New("batch deadline reached before the document finished")
)

type ErrorCode string

const (
	CodeUnsupportedType    ErrorCode = "UNSUPPORTED_TYPE"
	CodeExtractionFailure  ErrorCode = "EXTRACTION_FAILURE"
	CodeTransientAPI       ErrorCode = "TRANSIENT_API"
	CodeFatalAPI           ErrorCode = "FATAL_API"
	CodeParseLowConfidence ErrorCode = "PARSE_LOW_CONFIDENCE"
	CodeOutputWriteFailure ErrorCode = "OUTPUT_WRITE_FAILURE"
	CodeTimeout            ErrorCode = "TIMEOUT"
	CodeInternal           ErrorCode = "INTERNAL"
)

type JobError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Detail  string    `json:"detail,omitempty"`
	Retry   bool      `json:"retry"`
}

var taxonomy = []struct {
	target error
	code   ErrorCode
	retry  bool
}{
	{ErrUnsupportedType, CodeUnsupportedType, false},
	{ErrExtractionFailure, CodeExtractionFailure, false},
	{ErrTransientAPI, CodeTransientAPI, true},
	{ErrFatalAPI, CodeFatalAPI, false},
	{ErrParseLowConfidence, CodeParseLowConfidence, true},
	{ErrOutputWriteFailure, CodeOutputWriteFailure, true},
	{ErrTimeout, CodeTimeout, true},
	{context.DeadlineExceeded, CodeTimeout, true},
}

// NewJobError maps an error onto the taxonomy. Detail keeps the full chain.
func NewJobError(err error) JobError {
	if err == nil {
		return JobError{Code: CodeInternal, Message: "unknown failure"}
	}
	for _, t := range taxonomy {
		if errors.Is(err, t.target) {
			msg := t.target.Error()
			if t.target == context.DeadlineExceeded {
				msg = ErrTimeout.Error()
			}
			return JobError{Code: t.code, Message: msg, Detail: err.Error(), Retry: t.retry}
		}
	}
	return JobError{Code: CodeInternal, Message: "internal error", Detail: err.Error()}
}
