package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/medium-stack/mstack/common/cid"
	"github.com/medium-stack/mstack/common/errs"
)

// FileUploadType selects which probe and file collection a finished upload
// flows into.
type FileUploadType string

// Upload payload types
const (
	FileTypeAudio FileUploadType = "audio"
	FileTypeImage FileUploadType = "image"
	FileTypeText  FileUploadType = "text"
	FileTypeVideo FileUploadType = "video"
)

// Valid reports whether t is a known payload type
func (t FileUploadType) Valid() bool {
	switch t {
	case FileTypeAudio, FileTypeImage, FileTypeText, FileTypeVideo:
		return true
	}
	return false
}

// FileUploadStatus is the upload session state.
//
//	uploading -> process_queue -> processing -> complete
//	          \------------------------------> error
type FileUploadStatus string

// Upload session states
const (
	StatusUploading    FileUploadStatus = "uploading"
	StatusProcessQueue FileUploadStatus = "process_queue"
	StatusProcessing   FileUploadStatus = "processing"
	StatusComplete     FileUploadStatus = "complete"
	StatusError        FileUploadStatus = "error"
)

// ErrorUploadOverflow is the session error message recorded when a chunk
// pushes past the declared size.
const ErrorUploadOverflow = "file upload is over upload size"

// ErrorUploadTimeout is the session error message recorded by the cleanup job.
const ErrorUploadTimeout = "timeout"

// FileUpload is a resumable upload session. Mutable, so not a content model.
type FileUpload struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Type          FileUploadType     `bson:"type" json:"type"`
	Ext           string             `bson:"ext,omitempty" json:"ext,omitempty"`
	UserCid       cid.ContentID      `bson:"user_cid" json:"user_cid"`
	TotalSize     int64              `bson:"total_size" json:"total_size"`
	TotalUploaded int64              `bson:"total_uploaded" json:"total_uploaded"`
	Status        FileUploadStatus   `bson:"status" json:"status"`
	Error         string             `bson:"error,omitempty" json:"error,omitempty"`
	Created       time.Time          `bson:"created" json:"created"`
	Modified      time.Time          `bson:"modified" json:"modified"`
	ResultCid     *cid.ContentID     `bson:"result_cid,omitempty" json:"result_cid,omitempty"`
	Lock          string             `bson:"lock,omitempty" json:"lock,omitempty"`
}

// Collection returns the upload session collection name
func (*FileUpload) Collection() string { return CollectionFileUploads }

// ObjectID returns the storage id
func (u *FileUpload) ObjectID() primitive.ObjectID { return u.ID }

// SetObjectID sets the storage id
func (u *FileUpload) SetObjectID(id primitive.ObjectID) { u.ID = id }

// Terminal reports whether the session has reached a final state
func (u *FileUpload) Terminal() bool {
	return u.Status == StatusComplete || u.Status == StatusError
}

// StagingName is the filename chunks are appended to until ingest renames
// the payload to its cid.
func (u *FileUpload) StagingName() string { return u.ID.Hex() }

// Touch bumps the modified timestamp
func (u *FileUpload) Touch() { u.Modified = UTCNow() }

// Fail moves the session to error with the given message
func (u *FileUpload) Fail(msg string) {
	u.Status = StatusError
	u.Error = msg
	u.Touch()
}

// FileUploaderCreator carries the client-declared shape of an upload.
type FileUploaderCreator struct {
	Type      FileUploadType `json:"type"`
	Ext       string         `json:"ext,omitempty"`
	TotalSize int64          `json:"total_size"`
}

// Validate checks the creator fields
func (c *FileUploaderCreator) Validate() error {
	if !c.Type.Valid() {
		return errs.Wrap(errs.ErrBadInput, "unknown upload type %q", c.Type)
	}
	if c.TotalSize <= 0 {
		return errs.Wrap(errs.ErrBadInput, "total_size must be positive")
	}
	return nil
}

// NewFileUpload builds a fresh session in the uploading state.
func NewFileUpload(c FileUploaderCreator, userCid cid.ContentID) (*FileUpload, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if userCid.IsZero() {
		return nil, errs.Wrap(errs.ErrBadInput, "upload requires an owner")
	}

	now := UTCNow()
	return &FileUpload{
		Type:      c.Type,
		Ext:       c.Ext,
		UserCid:   userCid,
		TotalSize: c.TotalSize,
		Status:    StatusUploading,
		Created:   now,
		Modified:  now,
	}, nil
}
