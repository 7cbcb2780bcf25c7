package users

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const usersCollection = "users"

// MongoRepo implements Repo on a MongoDB collection.
type MongoRepo struct {
	coll *mongo.Collection
}

// NewMongoRepo constructs a MongoRepo on the users collection.
func NewMongoRepo(db *mongo.Database) *MongoRepo {
	return &MongoRepo{coll: db.Collection(usersCollection)}
}

func (r *MongoRepo) Create(ctx context.Context, user User) error {
	count, err := r.coll.CountDocuments(ctx, bson.M{"username": user.Username})
	if err != nil {
		return fmt.Errorf("check username %s: %w", user.Username, err)
	}
	if count > 0 {
		return ErrUsernameTaken
	}
	if _, err := r.coll.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrUsernameTaken
		}
		return fmt.Errorf("insert user %s: %w", user.Username, err)
	}
	return nil
}

func (r *MongoRepo) GetByID(ctx context.Context, id string) (User, error) {
	var user User
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("find user id=%s: %w", id, err)
	}
	return user, nil
}

func (r *MongoRepo) GetByUsername(ctx context.Context, username string) (User, error) {
	var user User
	err := r.coll.FindOne(ctx, bson.M{"username": username}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("find user username=%s: %w", username, err)
	}
	return user, nil
}

func (r *MongoRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("find user email=%s: %w", email, err)
	}
	return user, nil
}

func (r *MongoRepo) List(ctx context.Context) ([]User, error) {
	cursor, err := r.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer cursor.Close(ctx)

	var out []User
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return out, nil
}

func (r *MongoRepo) UpdateLoanAccess(ctx context.Context, id string, loanAccess []string) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"loanAccess": loanAccess}})
	if err != nil {
		return fmt.Errorf("update loan access id=%s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepo) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete user id=%s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

var _ Repo = (*MongoRepo)(nil)
