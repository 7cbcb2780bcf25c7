package documents

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const documentsCollection = "documents"

// MongoRepo implements Repo on a MongoDB collection.
type MongoRepo struct {
	coll *mongo.Collection
}

// NewMongoRepo constructs a MongoRepo on the documents collection.
func NewMongoRepo(db *mongo.Database) *MongoRepo {
	return &MongoRepo{coll: db.Collection(documentsCollection)}
}

// Insert persists a new record. Always an insert, never an upsert.
func (r *MongoRepo) Insert(ctx context.Context, doc Document) error {
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert document storage_key=%s: %w", doc.StorageKey, err)
	}
	return nil
}

// FindByLoan matches active records on either the loanId field or the
// loanNumber field used by earlier writers.
func (r *MongoRepo) FindByLoan(ctx context.Context, loanID string) ([]Document, error) {
	filter := bson.M{
		"$or": bson.A{
			bson.M{"loanId": loanID},
			bson.M{"loanNumber": loanID},
		},
		"isActive": true,
	}
	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find documents loan=%s: %w", loanID, err)
	}
	defer cursor.Close(ctx)

	var out []Document
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode documents loan=%s: %w", loanID, err)
	}
	return out, nil
}

// FindByID returns a record by id.
func (r *MongoRepo) FindByID(ctx context.Context, id string) (Document, error) {
	var doc Document
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("find document id=%s: %w", id, err)
	}
	return doc, nil
}

// FindByStorageKey returns a record by its storage key.
func (r *MongoRepo) FindByStorageKey(ctx context.Context, storageKey string) (Document, error) {
	var doc Document
	err := r.coll.FindOne(ctx, bson.M{"storageKey": storageKey}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("find document storage_key=%s: %w", storageKey, err)
	}
	return doc, nil
}

// Search matches active records whose searchTerms array contains the term.
func (r *MongoRepo) Search(ctx context.Context, term string) ([]Document, error) {
	filter := bson.M{
		"searchTerms": term,
		"isActive":    true,
	}
	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("search documents term=%s: %w", term, err)
	}
	defer cursor.Close(ctx)

	var out []Document
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode search results term=%s: %w", term, err)
	}
	return out, nil
}

// Deactivate flips the soft-delete flag; the record itself stays.
func (r *MongoRepo) Deactivate(ctx context.Context, id string) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"isActive": false}})
	if err != nil {
		return fmt.Errorf("deactivate document id=%s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

var _ Repo = (*MongoRepo)(nil)
