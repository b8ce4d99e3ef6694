// Package models defines the persistent record types and the content id
// derivation rule they share.
package models

import (
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/medium-stack/mstack/common/cid"
	"github.com/medium-stack/mstack/common/errs"
)

// Collection names. One collection per record type.
const (
	CollectionUsers         = "users"
	CollectionPasswordHash  = "user_password_hashes"
	CollectionProfiles      = "profiles"
	CollectionFileUploads   = "file_uploads"
	CollectionImageFiles    = "image_files"
	CollectionAudioFiles    = "audio_files"
	CollectionVideoFiles    = "video_files"
	CollectionTextFiles     = "text_files"
	CollectionImageRelease  = "image_release"
	CollectionAudioRelease  = "audio_release"
	CollectionVideoReleases = "video_releases"
)

// ContentCollections lists every collection that carries a unique cid index.
var ContentCollections = []string{
	CollectionUsers,
	CollectionProfiles,
	CollectionImageFiles,
	CollectionAudioFiles,
	CollectionVideoFiles,
	CollectionTextFiles,
	CollectionImageRelease,
	CollectionAudioRelease,
	CollectionVideoReleases,
}

// Model is any record persisted in its own collection.
type Model interface {
	Collection() string
	ObjectID() primitive.ObjectID
	SetObjectID(id primitive.ObjectID)
}

// ContentModel is a record whose identity is its content: the cid is derived
// from every field except the storage keys and never changes after creation.
type ContentModel interface {
	Model
	ContentCid() cid.ContentID
}

// Record carries the storage keys shared by all models.
type Record struct {
	ID  primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Cid cid.ContentID      `bson:"cid" json:"cid"`
}

// ObjectID returns the storage id
func (r *Record) ObjectID() primitive.ObjectID { return r.ID }

// SetObjectID sets the storage id
func (r *Record) SetObjectID(id primitive.ObjectID) { r.ID = id }

// ContentCid returns the derived content id
func (r *Record) ContentCid() cid.ContentID { return r.Cid }

// DeriveCid computes the content id of a model from its JSON form with the
// storage keys ("id", "cid") removed. Callers set the result on the record
// exactly once, at construction.
func DeriveCid(m Model) (cid.ContentID, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return cid.ContentID{}, errs.Wrap(errs.ErrBadCanonical, "%v", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return cid.ContentID{}, errs.Wrap(errs.ErrBadCanonical, "%v", err)
	}
	delete(fields, "id")
	delete(fields, "cid")

	return cid.FromJSON(fields)
}

// UTCNow returns the current time in UTC truncated to millisecond precision,
// matching what the document store can faithfully round-trip.
func UTCNow() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
