package models

import (
	"github.com/medium-stack/mstack/common/cid"
	"github.com/medium-stack/mstack/common/errs"
)

// MaxAltFormats caps the alternate format list on a release.
const MaxAltFormats = 10

// Release is a published grouping of one master media file and up to
// MaxAltFormats alternates, all owned by the same user.
type Release interface {
	ContentModel
	Owner() cid.ContentID
	MasterCid() cid.ContentID
	Alternates() []cid.ContentID
	MediaCids() []cid.ContentID
}

type ReleaseBase struct {
	Record     `bson:",inline"`
	UserCid    cid.ContentID   `bson:"user_cid" json:"user_cid"`
	Master     cid.ContentID   `bson:"master" json:"master"`
	AltFormats []cid.ContentID `bson:"alt_formats,omitempty" json:"alt_formats,omitempty"`
}

// Owner returns the cid of the owning user
func (r *ReleaseBase) Owner() cid.ContentID { return r.UserCid }

// MasterCid returns the cid of the master media file
func (r *ReleaseBase) MasterCid() cid.ContentID { return r.Master }

// Alternates returns the alternate format cids
func (r *ReleaseBase) Alternates() []cid.ContentID { return r.AltFormats }

// MediaCids returns the master plus all alternates, master first.
func (r *ReleaseBase) MediaCids() []cid.ContentID {
	return append([]cid.ContentID{r.Master}, r.AltFormats...)
}

func newReleaseBase(userCid, master cid.ContentID, altFormats []cid.ContentID) (ReleaseBase, error) {
	if userCid.IsZero() {
		return ReleaseBase{}, errs.Wrap(errs.ErrBadInput, "release requires an owner")
	}
	if master.IsZero() {
		return ReleaseBase{}, errs.Wrap(errs.ErrBadInput, "release requires a master file")
	}
	if len(altFormats) > MaxAltFormats {
		return ReleaseBase{}, errs.Wrap(errs.ErrBadInput, "at most %d alt formats allowed, got %d", MaxAltFormats, len(altFormats))
	}
	for _, alt := range altFormats {
		if alt.IsZero() {
			return ReleaseBase{}, errs.Wrap(errs.ErrBadInput, "alt format cid must not be empty")
		}
		if alt.Equal(master) {
			return ReleaseBase{}, errs.Wrap(errs.ErrBadInput, "alt format duplicates the master")
		}
	}
	return ReleaseBase{UserCid: userCid, Master: master, AltFormats: altFormats}, nil
}

// ImageRelease publishes an image file with alternate renditions.
type ImageRelease struct {
	ReleaseBase `bson:",inline"`
}

// Collection returns the image release collection name
func (*ImageRelease) Collection() string { return CollectionImageRelease }

// NewImageRelease builds an image release and derives its cid.
func NewImageRelease(userCid, master cid.ContentID, altFormats []cid.ContentID) (*ImageRelease, error) {
	base, err := newReleaseBase(userCid, master, altFormats)
	if err != nil {
		return nil, err
	}

	r := &ImageRelease{ReleaseBase: base}
	if r.Cid, err = DeriveCid(r); err != nil {
		return nil, err
	}
	return r, nil
}

// AudioRelease publishes an audio file with alternate encodings.
type AudioRelease struct {
	ReleaseBase `bson:",inline"`
}

// Collection returns the audio release collection name
func (*AudioRelease) Collection() string { return CollectionAudioRelease }

// NewAudioRelease builds an audio release and derives its cid.
func NewAudioRelease(userCid, master cid.ContentID, altFormats []cid.ContentID) (*AudioRelease, error) {
	base, err := newReleaseBase(userCid, master, altFormats)
	if err != nil {
		return nil, err
	}

	r := &AudioRelease{ReleaseBase: base}
	if r.Cid, err = DeriveCid(r); err != nil {
		return nil, err
	}
	return r, nil
}

// VideoRelease publishes a video file with alternate encodings.
type VideoRelease struct {
	ReleaseBase `bson:",inline"`
}

// Collection returns the video release collection name
func (*VideoRelease) Collection() string { return CollectionVideoReleases }

// NewVideoRelease builds a video release and derives its cid.
func NewVideoRelease(userCid, master cid.ContentID, altFormats []cid.ContentID) (*VideoRelease, error) {
	base, err := newReleaseBase(userCid, master, altFormats)
	if err != nil {
		return nil, err
	}

	r := &VideoRelease{ReleaseBase: base}
	if r.Cid, err = DeriveCid(r); err != nil {
		return nil, err
	}
	return r, nil
}

// ReleaseCreator carries the client-supplied release fields.
type ReleaseCreator struct {
	Master     cid.ContentID   `json:"master"`
	AltFormats []cid.ContentID `json:"alt_formats,omitempty"`
}
