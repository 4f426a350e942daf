// internal/models/export.go
package models

import (
	"time"
)

// Export formats.
const (
	ExportFormatDoc       = "doc"
	ExportFormatClipboard = "clipboard"
	ExportFormatPrint     = "print"
)

// ExportResult is one rendered export of a draft.
type ExportResult struct {
	DraftID     string    `json:"draft_id"`
	Format      string    `json:"format"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Content     string    `json:"content"`
	PlainText   string    `json:"plain_text,omitempty"` // clipboard fallback
	GeneratedAt time.Time `json:"generated_at"`
	FilePath    string    `json:"file_path,omitempty"` // saved copy under data/exports
	FileSize    int64     `json:"file_size"`
}
