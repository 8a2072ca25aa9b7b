package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"authgate/internal/models"
)

var (
	// ErrNotFound is returned when no account matches the lookup.
	ErrNotFound = errors.New("account not found")
	// ErrEmailExists is returned when an insert collides with the unique email index.
	ErrEmailExists = errors.New("email already registered")
)

// AccountUpdate lists the fields UpdateByID may change. Zero values are left untouched.
type AccountUpdate struct {
	PasswordHash string
	UpdatedAt    time.Time
	LastLoginAt  time.Time
}

func (u AccountUpdate) set() bson.M {
	set := bson.M{}
	if u.PasswordHash != "" {
		set["password"] = u.PasswordHash
	}
	if !u.UpdatedAt.IsZero() {
		set["updateAt"] = u.UpdatedAt
	}
	if !u.LastLoginAt.IsZero() {
		set["lastLoginAt"] = u.LastLoginAt
	}
	return set
}

// Accounts is the MongoDB-backed account store.
type Accounts struct {
	col     *mongo.Collection
	timeout time.Duration
}

// NewAccounts returns a store over col. Every query runs under its own timeout.
func NewAccounts(col *mongo.Collection, timeout time.Duration) *Accounts {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Accounts{col: col, timeout: timeout}
}

// FindByEmail looks an account up by its exact email.
func (a *Accounts) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return a.findOne(ctx, bson.M{"email": email})
}

// FindByID looks an account up by its hex object id. Ids that do not parse are reported as ErrNotFound.
func (a *Accounts) FindByID(ctx context.Context, id string) (*models.Account, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return a.findOne(ctx, bson.M{"_id": oid})
}

// FindSummaryByID fetches only the public fields of an account.
func (a *Accounts) FindSummaryByID(ctx context.Context, id string) (*models.Summary, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	projection := bson.M{"_id": 1, "username": 1, "email": 1, "role": 1}
	acc, err := a.findOne(ctx, bson.M{"_id": oid}, options.FindOne().SetProjection(projection))
	if err != nil {
		return nil, err
	}
	summary := acc.Summary()
	return &summary, nil
}

// Create inserts acc and sets its ID. A duplicate email yields ErrEmailExists.
func (a *Accounts) Create(ctx context.Context, acc *models.Account) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	res, err := a.col.InsertOne(ctx, acc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("error inserting account: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		acc.ID = oid
	}
	return nil
}

// UpdateByID applies upd to the account with the given hex id.
func (a *Accounts) UpdateByID(ctx context.Context, id string, upd AccountUpdate) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	set := upd.set()
	if len(set) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	res, err := a.col.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("error updating account: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (a *Accounts) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*models.Account, error) {
	var acc models.Account
	err := a.col.FindOne(ctx, filter, opts...).Decode(&acc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error retrieving account: %w", err)
	}
	return &acc, nil
}
