package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/iliyamo/backend-scaffold/internal/model"
	"github.com/iliyamo/backend-scaffold/internal/utils"
)

// MongoUserRepo is the MongoDB identity store over the 'users' collection.
type MongoUserRepo struct {
	cli        *mongo.Client
	coll       *mongo.Collection
	bcryptCost int
}

var _ UserStore = (*MongoUserRepo)(nil)

// userDoc is the stored document; model.User keeps ID out of bson.
type userDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	model.User `bson:",inline"`
}

// NewMongoUserRepo connects to uri, verifies the connection and ensures the
// unique indexes on username and email.
func NewMongoUserRepo(ctx context.Context, uri, dbName string, bcryptCost int) (*MongoUserRepo, error) {
	cli, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := cli.Ping(pctx, nil); err != nil {
		_ = cli.Disconnect(ctx)
		return nil, err
	}

	coll := cli.Database(dbName).Collection("users")
	_, err = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		_ = cli.Disconnect(ctx)
		return nil, fmt.Errorf("create user indexes: %w", err)
	}
	return newMongoUserRepo(cli, coll, bcryptCost), nil
}

// newMongoUserRepo wraps an existing collection; it does not touch indexes.
func newMongoUserRepo(cli *mongo.Client, coll *mongo.Collection, bcryptCost int) *MongoUserRepo {
	return &MongoUserRepo{cli: cli, coll: coll, bcryptCost: bcryptCost}
}

// Close disconnects the client.
func (r *MongoUserRepo) Close(ctx context.Context) error { return r.cli.Disconnect(ctx) }

// Ping checks the server is reachable.
func (r *MongoUserRepo) Ping(ctx context.Context) error { return r.cli.Ping(ctx, nil) }

func (r *MongoUserRepo) Create(ctx context.Context, u *model.User) error {
	plain, ok := u.PendingPassword()
	if !ok {
		return errors.New("create user: password not set")
	}
	u.Normalize()
	hash, err := utils.HashPassword(plain, r.bcryptCost)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	doc := userDoc{User: *u}
	doc.PasswordHash = hash
	doc.CreatedAt, doc.UpdatedAt = now, now

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Errorf("insert user: unexpected id type %T", res.InsertedID)
	}
	u.ID = oid.Hex()
	u.ApplyPasswordHash(hash)
	u.CreatedAt, u.UpdatedAt = now, now
	return nil
}

func (r *MongoUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *MongoUserRepo) FindByUsernameOrEmail(ctx context.Context, username, email string) (*model.User, error) {
	username, email = model.NormalizeKey(username), model.NormalizeKey(email)
	var or bson.A
	if username != "" {
		or = append(or, bson.M{"username": username})
	}
	if email != "" {
		or = append(or, bson.M{"email": email})
	}
	if len(or) == 0 {
		return nil, ErrNotFound
	}
	return r.findOne(ctx, bson.M{"$or": or})
}

func (r *MongoUserRepo) Save(ctx context.Context, u *model.User) error {
	oid, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return ErrNotFound
	}
	u.Normalize()
	now := time.Now().UTC().Truncate(time.Millisecond)
	set := bson.M{
		"username":   u.Username,
		"email":      u.Email,
		"full_name":  u.FullName,
		"role":       u.Role,
		"updated_at": now,
	}
	plain, changed := u.PendingPassword()
	var hash string
	if changed {
		if hash, err = utils.HashPassword(plain, r.bcryptCost); err != nil {
			return err
		}
		set["password_hash"] = hash
	}
	res, err := r.coll.UpdateByID(ctx, oid, bson.M{"$set": set})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	if changed {
		u.ApplyPasswordHash(hash)
	}
	u.UpdatedAt = now
	return nil
}

func (r *MongoUserRepo) SetRefreshToken(ctx context.Context, id, token string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	update := bson.M{"$set": bson.M{"refresh_token": token}}
	if token == "" {
		update = bson.M{"$unset": bson.M{"refresh_token": ""}}
	}
	res, err := r.coll.UpdateByID(ctx, oid, update)
	if err != nil {
		return fmt.Errorf("update refresh token: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoUserRepo) findOne(ctx context.Context, filter any) (*model.User, error) {
	var doc userDoc
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u := doc.User
	u.ID = doc.ID.Hex()
	return &u, nil
}
