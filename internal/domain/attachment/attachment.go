package attachment

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/fulfildesk/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// MaxFileSize is the maximum allowed upload size (25MB)
const MaxFileSize = 25 * 1024 * 1024

// Status is the linkage state of an uploaded file.
//
// Uploads happen before the owning record exists, so a file starts
// unlinked and is linked once the order, fulfilment, dispute or chat message
// is written. Files that stay unlinked past the retention window are
// reclaimed by the orphan sweep.
type Status string

const (
	StatusUnlinked Status = "unlinked"
	StatusLinked   Status = "linked"
	StatusDeleted  Status = "deleted"
)

// EntityType is the kind of record a file is linked to
type EntityType string

const (
	EntityOrder      EntityType = "order"
	EntityFulfilment EntityType = "fulfilment"
	EntityDispute    EntityType = "dispute"
	EntityChat       EntityType = "chat"
)

// IsValid checks if the entity type is valid
func (t EntityType) IsValid() bool {
	switch t {
	case EntityOrder, EntityFulfilment, EntityDispute, EntityChat:
		return true
	default:
		return false
	}
}

// Attachment is the metadata of a stored blob. The blob itself lives in
// object storage under StorageKey.
type Attachment struct {
	shared.BaseAggregateRoot
	UploadedByUserID uuid.UUID
	FileName         string
	ContentType      string
	SizeBytes        int64
	StorageKey       string
	Status           Status
	EntityType       EntityType
	EntityID         *uuid.UUID
	OrderID          *uuid.UUID
	LinkedAt         *time.Time
}

// NewAttachment creates an unlinked attachment and assigns its storage key
func NewAttachment(uploadedBy uuid.UUID, fileName, contentType string, size int64) (*Attachment, error) {
	if uploadedBy == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_UPLOADER", "Uploader cannot be empty")
	}
	fileName = strings.TrimSpace(fileName)
	if err := validateFileName(fileName); err != nil {
		return nil, err
	}
	if err := validateContentType(contentType); err != nil {
		return nil, err
	}
	if err := validateFileSize(size); err != nil {
		return nil, err
	}

	a := &Attachment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		UploadedByUserID:  uploadedBy,
		FileName:          fileName,
		ContentType:       contentType,
		SizeBytes:         size,
		Status:            StatusUnlinked,
	}
	a.StorageKey = path.Join("attachments", a.CreatedAt.Format("2006/01"), a.ID.String(), fileName)
	return a, nil
}

// Link attaches the file to its owning record. Only the uploader may link
// their own files, and only once.
func (a *Attachment) Link(entityType EntityType, entityID, orderID, actor uuid.UUID) error {
	if !entityType.IsValid() {
		return shared.NewDomainError("INVALID_ENTITY_TYPE", "Invalid attachment entity type")
	}
	if actor != a.UploadedByUserID {
		return shared.NewDomainError("ATTACHMENT_NOT_OWNED", fmt.Sprintf("Attachment %s was uploaded by another user", a.ID))
	}
	switch a.Status {
	case StatusLinked:
		return shared.NewDomainError("ATTACHMENT_ALREADY_LINKED", fmt.Sprintf("Attachment %s is already linked", a.ID))
	case StatusDeleted:
		return shared.NewDomainError("ATTACHMENT_DELETED", fmt.Sprintf("Attachment %s has been deleted", a.ID))
	}

	now := time.Now().UTC()
	a.Status = StatusLinked
	a.EntityType = entityType
	a.EntityID = &entityID
	a.OrderID = &orderID
	a.LinkedAt = &now
	a.Touch(now)
	return nil
}

// MarkDeleted flags the attachment after its blob was removed
func (a *Attachment) MarkDeleted() error {
	if a.Status == StatusDeleted {
		return shared.NewDomainError("ALREADY_DELETED", "Attachment is already deleted")
	}
	a.Status = StatusDeleted
	a.Touch(time.Now().UTC())
	return nil
}

// IsOrphan reports whether the file stayed unlinked for longer than ttl
func (a *Attachment) IsOrphan(now time.Time, ttl time.Duration) bool {
	return a.Status == StatusUnlinked && now.Sub(a.CreatedAt) > ttl
}

func validateFileName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_FILE_NAME", "File name cannot be empty")
	}
	if len(name) > 255 {
		return shared.NewDomainError("INVALID_FILE_NAME", "File name cannot exceed 255 characters")
	}
	for _, r := range name {
		if r < 32 || r == 127 {
			return shared.NewDomainError("INVALID_FILE_NAME", "File name contains invalid characters")
		}
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return shared.NewDomainError("INVALID_FILE_NAME", "File name cannot contain path separators")
	}
	return nil
}

func validateFileSize(size int64) error {
	if size <= 0 {
		return shared.NewDomainError("INVALID_FILE_SIZE", "File size must be greater than 0")
	}
	if size > MaxFileSize {
		return shared.NewDomainError("FILE_TOO_LARGE", "File size cannot exceed 25MB")
	}
	return nil
}

func validateContentType(contentType string) error {
	if contentType == "" || len(contentType) > 100 {
		return shared.NewDomainError("INVALID_CONTENT_TYPE", "Content type must be 1 to 100 characters")
	}
	parts := strings.Split(contentType, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return shared.NewDomainError("INVALID_CONTENT_TYPE", "Content type must be in type/subtype format")
	}
	return nil
}
