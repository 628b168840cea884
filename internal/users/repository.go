package users

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/reelhouse/go-services/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UserRepository defines persistence operations for users
type UserRepository interface {
	UpsertBySub(ctx context.Context, u *models.User) (*models.User, error)
	GetBySub(ctx context.Context, sub string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, u *models.User) (*models.User, error)
	List(ctx context.Context, limit int, startAfter string) ([]*models.User, error)
	Update(ctx context.Context, id string, fields map[string]interface{}) (*models.User, error)
	SetClaims(ctx context.Context, id string, claims map[string]interface{}) error
	Delete(ctx context.Context, id string) error
}

// MongoUserRepository implements UserRepository using MongoDB
type MongoUserRepository struct {
	col *mongo.Collection
}

// NewMongoUserRepository creates a new repository for the given collection and
// ensures the unique indexes on sub and email.
func NewMongoUserRepository(col *mongo.Collection) *MongoUserRepository {
	_, _ = col.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{Keys: bson.D{{Key: "sub", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	return &MongoUserRepository{col: col}
}

func (r *MongoUserRepository) UpsertBySub(ctx context.Context, u *models.User) (*models.User, error) {
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now

	filter := bson.M{"sub": u.Sub}
	repl := bson.M{
		"$set": bson.M{
			"email":     u.Email,
			"name":      u.Name,
			"updatedAt": u.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"_id":       uuid.NewString(),
			"createdAt": u.CreatedAt,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var updated models.User
	if err := r.col.FindOneAndUpdate(ctx, filter, repl, opts).Decode(&updated); err != nil {
		if err == mongo.ErrNoDocuments {
			// Shouldn't happen because of upsert, but handle gracefully
			return u, nil
		}
		return nil, err
	}
	return &updated, nil
}

func (r *MongoUserRepository) GetBySub(ctx context.Context, sub string) (*models.User, error) {
	var u models.User
	if err := r.col.FindOne(ctx, bson.M{"sub": sub}).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *MongoUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *MongoUserRepository) Create(ctx context.Context, u *models.User) (*models.User, error) {
	now := time.Now().UTC()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Sub == "" {
		u.Sub = u.ID
	}
	u.CreatedAt = now
	u.UpdatedAt = now
	if _, err := r.col.InsertOne(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// List returns up to limit users ordered by id, starting after the given id.
func (r *MongoUserRepository) List(ctx context.Context, limit int, startAfter string) ([]*models.User, error) {
	filter := bson.M{}
	if startAfter != "" {
		filter["_id"] = bson.M{"$gt": startAfter}
	}
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*models.User{}
	for cur.Next(ctx) {
		var u models.User
		if err := cur.Decode(&u); err != nil {
			return nil, err
		}
		out = append(out, &u)
	}
	return out, cur.Err()
}

func (r *MongoUserRepository) Update(ctx context.Context, id string, fields map[string]interface{}) (*models.User, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	for k, v := range fields {
		set[k] = v
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var u models.User
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *MongoUserRepository) SetClaims(ctx context.Context, id string, claims map[string]interface{}) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"customClaims": claims,
		"updatedAt":    time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *MongoUserRepository) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
