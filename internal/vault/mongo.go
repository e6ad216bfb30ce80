package vault

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const listLimit = 1000

// MongoEntryStore persists entries as flat documents: id, user_id, the
// kind's fields at top level, and created/updated timestamps. Flat fields
// keep the search filter a plain $or of per-field regexes.
type MongoEntryStore struct {
	db *mongo.Database
}

func NewMongoEntryStore(ctx context.Context, db *mongo.Database, collections []string) (*MongoEntryStore, error) {
	for _, name := range collections {
		coll := db.Collection(name)
		_, _ = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
		})
		_, _ = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true),
		})
	}
	return &MongoEntryStore{db: db}, nil
}

func (m *MongoEntryStore) Insert(ctx context.Context, collection string, e Entry) error {
	_, err := m.db.Collection(collection).InsertOne(ctx, entryToDoc(e))
	return err
}

func (m *MongoEntryStore) List(ctx context.Context, collection, userID string, searchFields []string, term string) ([]Entry, error) {
	filter := bson.M{"user_id": userID}
	if term != "" {
		or := make(bson.A, 0, len(searchFields))
		for _, f := range searchFields {
			or = append(or, bson.M{f: bson.M{"$regex": regexp.QuoteMeta(term), "$options": "i"}})
		}
		filter["$or"] = or
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(listLimit)
	cur, err := m.db.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []Entry
	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, docToEntry(doc))
	}
	return out, cur.Err()
}

func (m *MongoEntryStore) Replace(ctx context.Context, collection, userID, id string, fields map[string]string, updatedAt time.Time) (Entry, error) {
	set := bson.M{"updated_at": updatedAt}
	for k, v := range fields {
		set[k] = v
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	res := m.db.Collection(collection).FindOneAndUpdate(
		ctx,
		bson.M{"id": id, "user_id": userID},
		bson.M{"$set": set},
		opts,
	)

	var doc bson.M
	err := res.Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, err
	}
	return docToEntry(doc), nil
}

func (m *MongoEntryStore) Delete(ctx context.Context, collection, userID, id string) error {
	res, err := m.db.Collection(collection).DeleteOne(ctx, bson.M{"id": id, "user_id": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func entryToDoc(e Entry) bson.M {
	doc := bson.M{
		"id":         e.ID,
		"user_id":    e.UserID,
		"created_at": e.CreatedAt,
		"updated_at": e.UpdatedAt,
	}
	for k, v := range e.Fields {
		doc[k] = v
	}
	return doc
}

func docToEntry(doc bson.M) Entry {
	e := Entry{Fields: map[string]string{}}
	for k, v := range doc {
		switch k {
		case "_id":
		case "id":
			e.ID, _ = v.(string)
		case "user_id":
			e.UserID, _ = v.(string)
		case "created_at":
			e.CreatedAt = asTime(v)
		case "updated_at":
			e.UpdatedAt = asTime(v)
		default:
			if s, ok := v.(string); ok {
				e.Fields[k] = s
			}
		}
	}
	return e
}

func asTime(v any) time.Time {
	switch t := v.(type) {
	case primitive.DateTime:
		return t.Time().UTC()
	case time.Time:
		return t.UTC()
	default:
		return time.Time{}
	}
}
