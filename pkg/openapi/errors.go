package openapi

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a ParseError.
type ErrorCode string

const (
	// ErrorCodeYAMLParse is returned when the raw text is neither JSON nor YAML.
	ErrorCodeYAMLParse ErrorCode = "yaml-parse"
	// ErrorCodeV2Conversion is returned when a Swagger 2.0 document could not be upgraded.
	ErrorCodeV2Conversion ErrorCode = "v2-conversion"
	// ErrorCodeInvalid is returned by the OpenAPI 3 parser for documents it rejects.
	ErrorCodeInvalid ErrorCode = "invalid"
	// ErrorCodeUnsupportedVersion is returned when no parser handles the document version.
	ErrorCodeUnsupportedVersion ErrorCode = "unsupported-version"
)

var (
	ErrEmptyDocument = errors.New("document is empty")
	ErrNotAnObject   = errors.New("document is not an object")
	ErrDocumentCycle = errors.New("document contains a cycle")
	ErrSharedNode    = errors.New("document reuses a node in more than one place")
)

// ParseError is the classified failure returned across the parser boundary.
// RootURL is empty when the origin of the document is unknown.
type ParseError struct {
	Code    ErrorCode
	RootURL string
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	msg := e.Message
	if e.RootURL != "" {
		msg = fmt.Sprintf("%s: %s", e.RootURL, msg)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

func newParseError(code ErrorCode, rootURL, message string, cause error) *ParseError {
	return &ParseError{
		Code:    code,
		RootURL: rootURL,
		Message: message,
		Cause:   cause,
	}
}

// ErrorCodeOf returns the code of the first ParseError in err's chain, if any.
func ErrorCodeOf(err error) (ErrorCode, bool) {
	var perr *ParseError
	if errors.As(err, &perr) {
		return perr.Code, true
	}
	return "", false
}
