package models

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/medium-stack/mstack/common/cid"
	"github.com/medium-stack/mstack/common/errs"
)

// User is the account record. Identity fields only; credentials live in a
// separate collection so user documents can be returned to clients whole.
type User struct {
	Record      `bson:",inline"`
	Email       string `bson:"email" json:"email"`
	PhoneNumber string `bson:"phone_number,omitempty" json:"phone_number,omitempty"`
	FirstName   string `bson:"first_name" json:"first_name"`
	LastName    string `bson:"last_name" json:"last_name"`
	MiddleName  string `bson:"middle_name,omitempty" json:"middle_name,omitempty"`
}

// Collection returns the user collection name
func (*User) Collection() string { return CollectionUsers }

// UserCreator carries the fields a client supplies to register.
type UserCreator struct {
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number,omitempty"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	MiddleName  string `json:"middle_name,omitempty"`
	Password    string `json:"password"`
}

// Validate checks the creator fields
func (c *UserCreator) Validate() error {
	if !strings.Contains(c.Email, "@") {
		return errs.Wrap(errs.ErrBadInput, "invalid email %q", c.Email)
	}
	if c.FirstName == "" || c.LastName == "" {
		return errs.Wrap(errs.ErrBadInput, "first and last name are required")
	}
	if len(c.Password) < 8 {
		return errs.Wrap(errs.ErrBadInput, "password must be at least 8 characters")
	}
	return nil
}

// NewUser builds a user record and derives its cid.
func NewUser(c UserCreator) (*User, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	u := &User{
		Email:       strings.ToLower(strings.TrimSpace(c.Email)),
		PhoneNumber: c.PhoneNumber,
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		MiddleName:  c.MiddleName,
	}

	contentCid, err := DeriveCid(u)
	if err != nil {
		return nil, err
	}
	u.Cid = contentCid
	return u, nil
}

// UserPasswordHash stores the argon2id hash of a user's password. Not a
// content model: the hash is replaceable and salted, so it has no stable cid.
// Never returned by any endpoint.
type UserPasswordHash struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserCid cid.ContentID      `bson:"user_cid" json:"user_cid"`
	Hash    string             `bson:"hash" json:"hash"`
}

// Collection returns the password hash collection name
func (*UserPasswordHash) Collection() string { return CollectionPasswordHash }

// ObjectID returns the storage id
func (h *UserPasswordHash) ObjectID() primitive.ObjectID { return h.ID }

// SetObjectID sets the storage id
func (h *UserPasswordHash) SetObjectID(id primitive.ObjectID) { h.ID = id }

// Profile is the public presence a user curates.
type Profile struct {
	Record  `bson:",inline"`
	UserCid cid.ContentID `bson:"user_cid" json:"user_cid"`
	Name    string        `bson:"name" json:"name"`
	Text    string        `bson:"text,omitempty" json:"text,omitempty"`
}

// Collection returns the profile collection name
func (*Profile) Collection() string { return CollectionProfiles }

// ProfileCreator carries the client-supplied profile fields.
type ProfileCreator struct {
	Name string `json:"name"`
	Text string `json:"text,omitempty"`
}

// Validate checks the creator fields
func (c *ProfileCreator) Validate() error {
	if c.Name == "" {
		return errs.Wrap(errs.ErrBadInput, "profile name is required")
	}
	return nil
}

// NewProfile builds a profile owned by the given user and derives its cid.
func NewProfile(c ProfileCreator, userCid cid.ContentID) (*Profile, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if userCid.IsZero() {
		return nil, errs.Wrap(errs.ErrBadInput, "profile requires an owner")
	}

	p := &Profile{
		UserCid: userCid,
		Name:    c.Name,
		Text:    c.Text,
	}

	contentCid, err := DeriveCid(p)
	if err != nil {
		return nil, err
	}
	p.Cid = contentCid
	return p, nil
}
