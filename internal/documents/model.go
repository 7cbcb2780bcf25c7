package documents

import "time"

// Convention tags which storage layout a document lives under. Legacy
// documents predate the structured layout and sit in flat customer folders.
type Convention string

const (
	ConventionLegacy     Convention = "existing-structure"
	ConventionStructured Convention = "new-structure"
)

// Document represents one uploaded file's metadata. Records are insert-only;
// the only mutation after creation is the IsActive soft-delete flag.
type Document struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	LoanID       string    `bson:"loanId" json:"loanId"`
	FileName     string    `bson:"fileName" json:"fileName"`
	OriginalName string    `bson:"originalName" json:"originalName"`
	MimeType     string    `bson:"mimeType" json:"mimeType"`
	FileSize     int64     `bson:"fileSize" json:"fileSize"`
	StorageKey   string    `bson:"storageKey" json:"storageKey"`
	FolderPath   string    `bson:"folderPath,omitempty" json:"folderPath,omitempty"`
	DocumentType string    `bson:"documentType" json:"documentType"`
	Description  string    `bson:"description,omitempty" json:"description,omitempty"`
	UploadedBy   string    `bson:"uploadedBy,omitempty" json:"uploadedBy,omitempty"`
	UploaderName string    `bson:"uploaderName,omitempty" json:"uploaderName,omitempty"`
	UploadedAt   time.Time `bson:"uploadedAt" json:"uploadedAt"`
	IsActive     bool      `bson:"isActive" json:"isActive"`
	SearchTerms  []string  `bson:"searchTerms,omitempty" json:"-"`
}
