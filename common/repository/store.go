// Package repository is the document-store access layer. One generic store
// covers the per-model CRUD surface; upload sessions get a dedicated
// repository for their claim and sweep operations.
package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/medium-stack/mstack/common/cid"
	"github.com/medium-stack/mstack/common/db"
	"github.com/medium-stack/mstack/common/errs"
	"github.com/medium-stack/mstack/common/logger"
	"github.com/medium-stack/mstack/common/models"
)

// Find pagination bounds.
const (
	DefaultPageSize = 50
	MaxPageSize     = 1000
)

// Store provides CRUD over any model collection.
type Store struct {
	db  *db.DB
	log *logger.Logger
}

// NewStore creates a model store
func NewStore(database *db.DB, log *logger.Logger) *Store {
	return &Store{db: database, log: log}
}

// Create inserts a new record and sets its storage id on the model. Content
// models with a cid already present in the collection are rejected.
func (s *Store) Create(ctx context.Context, m models.Model) error {
	res, err := s.db.Collection(m.Collection()).InsertOne(ctx, m)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errs.Wrap(errs.ErrBadInput, "duplicate cid in %s", m.Collection())
		}
		return errs.Wrap(errs.ErrStore, "insert into %s: %v", m.Collection(), err)
	}

	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		m.SetObjectID(oid)
	}
	return nil
}

// Read loads a record by id, cid, or both, decoding into m. At least one key
// is required; when both are given both must match.
func (s *Store) Read(ctx context.Context, m models.Model, id string, contentCid string) error {
	filter, err := keyFilter(id, contentCid)
	if err != nil {
		return err
	}

	err = s.db.Collection(m.Collection()).FindOne(ctx, filter).Decode(m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return errs.Wrap(errs.ErrNotFound, "%s: no record for %v", m.Collection(), filter)
	}
	if err != nil {
		return errs.Wrap(errs.ErrStore, "read %s: %v", m.Collection(), err)
	}
	return nil
}

// Update replaces the stored record by its object id.
func (s *Store) Update(ctx context.Context, m models.Model) error {
	if m.ObjectID().IsZero() {
		return errs.Wrap(errs.ErrMissingKey, "update requires a stored record")
	}

	res, err := s.db.Collection(m.Collection()).ReplaceOne(ctx, bson.M{"_id": m.ObjectID()}, m)
	if err != nil {
		return errs.Wrap(errs.ErrStore, "update %s: %v", m.Collection(), err)
	}
	if res.MatchedCount == 0 {
		return errs.Wrap(errs.ErrNotFound, "%s: no record %s", m.Collection(), m.ObjectID().Hex())
	}
	return nil
}

// Delete removes a record by id, cid, or both. Deleting an absent record is
// not an error.
func (s *Store) Delete(ctx context.Context, m models.Model, id string, contentCid string) error {
	filter, err := keyFilter(id, contentCid)
	if err != nil {
		return err
	}

	if _, err := s.db.Collection(m.Collection()).DeleteOne(ctx, filter); err != nil {
		return errs.Wrap(errs.ErrStore, "delete from %s: %v", m.Collection(), err)
	}
	return nil
}

// Find loads a page of records matching filter into out, which must be a
// pointer to a slice of the model type. Offset and size are clamped to the
// pagination bounds.
func (s *Store) Find(ctx context.Context, proto models.Model, out any, filter bson.M, offset, size int64) error {
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	if filter == nil {
		filter = bson.M{}
	}

	opts := options.Find().
		SetSkip(offset).
		SetLimit(size).
		SetSort(bson.D{{Key: "_id", Value: 1}})

	cur, err := s.db.Collection(proto.Collection()).Find(ctx, filter, opts)
	if err != nil {
		return errs.Wrap(errs.ErrStore, "find in %s: %v", proto.Collection(), err)
	}
	defer cur.Close(ctx)

	if err := cur.All(ctx, out); err != nil {
		return errs.Wrap(errs.ErrStore, "decode %s page: %v", proto.Collection(), err)
	}
	return nil
}

// DeleteMany removes every record in proto's collection matching filter and
// returns the number removed.
func (s *Store) DeleteMany(ctx context.Context, proto models.Model, filter bson.M) (int64, error) {
	res, err := s.db.Collection(proto.Collection()).DeleteMany(ctx, filter)
	if err != nil {
		return 0, errs.Wrap(errs.ErrStore, "delete many from %s: %v", proto.Collection(), err)
	}
	return res.DeletedCount, nil
}

// WithTransaction runs fn in a multi-document transaction.
func (s *Store) WithTransaction(ctx context.Context, fn func(sc mongo.SessionContext) error) error {
	return s.db.WithTransaction(ctx, fn)
}

// RunTransaction is WithTransaction for callers that only need a plain
// context. Operations issued with txCtx join the transaction.
func (s *Store) RunTransaction(ctx context.Context, fn func(txCtx context.Context) error) error {
	return s.db.WithTransaction(ctx, func(sc mongo.SessionContext) error {
		return fn(sc)
	})
}

// keyFilter builds the lookup filter for id and/or cid keys.
func keyFilter(id string, contentCid string) (bson.M, error) {
	filter := bson.M{}

	if id != "" {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return nil, errs.Wrap(errs.ErrBadInput, "invalid id %q", id)
		}
		filter["_id"] = oid
	}
	if contentCid != "" {
		parsed, err := cid.Parse(contentCid)
		if err != nil {
			return nil, err
		}
		filter["cid"] = parsed.String()
	}

	if len(filter) == 0 {
		return nil, errs.ErrMissingKey
	}
	return filter, nil
}

// OwnerFilter scopes a query to records owned by the given user.
func OwnerFilter(userCid cid.ContentID) bson.M {
	return bson.M{"user_cid": userCid.String()}
}
