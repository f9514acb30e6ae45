package domain

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// FileType represents the declared format of an uploaded document
type FileType string

const (
	FileTypeTXT  FileType = "txt"
	FileTypeMD   FileType = "md"
	FileTypeCSV  FileType = "csv"
	FileTypeXLSX FileType = "xlsx"
	FileTypeDOCX FileType = "docx"
	FileTypePDF  FileType = "pdf"
)

// Document represents one uploaded file owned by a user. The row is created
// once ingestion accepts the upload and is never mutated afterwards;
// re-indexing replaces its chunks but leaves the document intact.
type Document struct {
	ID           string
	UserID       string
	Filename     string
	OriginalName string
	FileType     FileType
	StoragePath  string
	SizeBytes    int64
	CreatedAt    time.Time
}

// NewDocument creates a new Document instance
func NewDocument(
	id, userID, filename, originalName string,
	fileType FileType,
	storagePath string,
	sizeBytes int64,
	createdAt time.Time,
) *Document {
	return &Document{
		ID:           id,
		UserID:       userID,
		Filename:     filename,
		OriginalName: originalName,
		FileType:     fileType,
		StoragePath:  storagePath,
		SizeBytes:    sizeBytes,
		CreatedAt:    createdAt,
	}
}

// ValidateDocument validates a Document instance
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}

	if d.ID == "" {
		return fmt.Errorf("document ID is required")
	}

	if d.UserID == "" {
		return fmt.Errorf("document UserID is required")
	}

	if d.Filename == "" {
		return fmt.Errorf("document Filename is required")
	}

	if d.StoragePath == "" {
		return fmt.Errorf("document StoragePath is required")
	}

	if d.SizeBytes < 0 {
		return fmt.Errorf("document SizeBytes cannot be negative")
	}

	if !IsValidFileType(d.FileType) {
		return fmt.Errorf("document FileType is invalid: %s", d.FileType)
	}

	return nil
}

// IsValidFileType checks if a FileType is one the system knows about.
// PDF is a known type even though extraction for it is not implemented;
// the extractor reports it as unsupported rather than unknown.
func IsValidFileType(t FileType) bool {
	switch t {
	case FileTypeTXT, FileTypeMD, FileTypeCSV, FileTypeXLSX, FileTypeDOCX, FileTypePDF:
		return true
	}
	return false
}

// FileTypeFromName derives a FileType from a filename extension.
// Returns an empty FileType when the extension is unknown.
func FileTypeFromName(name string) FileType {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	switch ext {
	case "txt", "text":
		return FileTypeTXT
	case "md", "markdown":
		return FileTypeMD
	case "csv":
		return FileTypeCSV
	case "xlsx":
		return FileTypeXLSX
	case "docx":
		return FileTypeDOCX
	case "pdf":
		return FileTypePDF
	}
	return ""
}

// DisplayName returns the name shown to users: the original upload name,
// falling back to the stored filename.
func (d *Document) DisplayName() string {
	if d.OriginalName != "" {
		return d.OriginalName
	}
	return d.Filename
}
