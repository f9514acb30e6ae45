package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
)

// Validation errors
var (
	ErrInvalidFileType      = NewDomainError(ErrCodeValidation, "invalid file type")
	ErrEmptyDocument        = NewDomainError(ErrCodeValidation, "document contains no extractable text")
	ErrInvalidChunkConfig   = NewDomainError(ErrCodeValidation, "chunk overlap must be smaller than chunk size")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
	ErrEmptyQuery           = NewDomainError(ErrCodeValidation, "search query cannot be empty")
)

// Not found errors
var (
	ErrDocumentNotFound = NewDomainError(ErrCodeNotFound, "document not found")
	ErrChunkNotFound    = NewDomainError(ErrCodeNotFound, "chunk not found")
)

// Operation errors
var (
	ErrDocumentNotIndexed = NewDomainError(ErrCodeInvalidOperation, "document has no indexed chunks")
	ErrEmbeddingDisabled  = NewDomainError(ErrCodeInvalidOperation, "embedding client is not configured")
)

// Storage errors
var (
	ErrStorageOperationFail = NewDomainError(ErrCodeInternalError, "storage operation failed")
)

// ExtractionError identifies a failed text extraction, carrying the
// originating filename and declared type so logs can point at the upload.
type ExtractionError struct {
	Filename string
	FileType FileType
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting %q (%s): %v", e.Filename, e.FileType, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// NewExtractionError wraps err as an extraction failure for the given file.
func NewExtractionError(filename string, fileType FileType, err error) *ExtractionError {
	return &ExtractionError{Filename: filename, FileType: fileType, Err: err}
}

// UnsupportedFileTypeError reports a declared type the extractor cannot
// handle. Callers must treat this as fatal, never as empty content.
type UnsupportedFileTypeError struct {
	Filename string
	FileType FileType
}

func (e *UnsupportedFileTypeError) Error() string {
	return fmt.Sprintf("unsupported file type %q for %q", e.FileType, e.Filename)
}

// NewUnsupportedFileTypeError creates an UnsupportedFileTypeError.
func NewUnsupportedFileTypeError(filename string, fileType FileType) *UnsupportedFileTypeError {
	return &UnsupportedFileTypeError{Filename: filename, FileType: fileType}
}
