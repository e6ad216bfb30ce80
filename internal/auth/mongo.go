package auth

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoUserStore struct {
	coll *mongo.Collection
}

func NewMongoUserStore(ctx context.Context, db *mongo.Database, collName string) (*MongoUserStore, error) {
	coll := db.Collection(collName)

	// Ensure lookups by id and email stay cheap; email doubles as identity.
	_, _ = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	_, _ = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "id", Value: 1}},
	})

	return &MongoUserStore{coll: coll}, nil
}

func (s *MongoUserStore) FindByID(ctx context.Context, id string) (*User, error) {
	return s.findOne(ctx, bson.M{"id": id})
}

func (s *MongoUserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	return s.findOne(ctx, bson.M{"email": normalizeEmail(email)})
}

func (s *MongoUserStore) findOne(ctx context.Context, filter bson.M) (*User, error) {
	var u User
	err := s.coll.FindOne(ctx, filter).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *MongoUserStore) Insert(ctx context.Context, u *User) error {
	u.Email = normalizeEmail(u.Email)
	_, err := s.coll.InsertOne(ctx, u)
	if wex, ok := err.(mongo.WriteException); ok {
		for _, we := range wex.WriteErrors {
			if we.Code == 11000 { // duplicate key
				return errors.New("email already exists")
			}
		}
	}
	return err
}

func (s *MongoUserStore) SetAppLockHash(ctx context.Context, userID, hash string) error {
	update := bson.M{"$set": bson.M{"app_lock_hash": hash}}
	if hash == "" {
		update = bson.M{"$unset": bson.M{"app_lock_hash": ""}}
	}
	res, err := s.coll.UpdateOne(ctx, bson.M{"id": userID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type MongoSessionStore struct {
	coll *mongo.Collection
}

func NewMongoSessionStore(ctx context.Context, db *mongo.Database, collName string) (*MongoSessionStore, error) {
	coll := db.Collection(collName)

	// Every authenticated request resolves a token; index it.
	_, _ = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "session_token", Value: 1}},
	})

	return &MongoSessionStore{coll: coll}, nil
}

func (s *MongoSessionStore) Insert(ctx context.Context, sess *Session) error {
	_, err := s.coll.InsertOne(ctx, sess)
	return err
}

func (s *MongoSessionStore) FindByToken(ctx context.Context, token string) (*Session, error) {
	var sess Session
	err := s.coll.FindOne(ctx, bson.M{"session_token": token}).Decode(&sess)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *MongoSessionStore) DeleteByToken(ctx context.Context, token string) error {
	_, err := s.coll.DeleteMany(ctx, bson.M{"session_token": token})
	return err
}
