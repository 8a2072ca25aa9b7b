package database

import (
	"context"
	"net/url"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// UserCollection is the collection accounts are stored in.
const UserCollection = "users"

// ConnectMongoDB establishes a connection to MongoDB and returns the client.
func ConnectMongoDB(ctx context.Context, uri string, log *zap.Logger) (*mongo.Client, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}
	// Ping the database to verify connection.
	if err := Ping(ctx, client); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	log.Info("connected to MongoDB", zap.String("uri", redactURI(uri)))
	return client, nil
}

// Ping checks that the deployment is reachable within five seconds.
func Ping(ctx context.Context, client *mongo.Client) error {
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return client.Ping(ctxPing, nil)
}

// GetUserCollection returns the MongoDB collection for users.
func GetUserCollection(client *mongo.Client, dbName string) *mongo.Collection {
	return client.Database(dbName).Collection(UserCollection)
}

// EnsureIndexes creates the unique email index that backs the one-account-per-email rule.
// Concurrent registrations for the same address rely on it: only one insert can win.
func EnsureIndexes(ctx context.Context, col *mongo.Collection) error {
	_, err := col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	})
	return err
}

// redactURI strips the password from a connection string before it is logged.
func redactURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return "unparseable"
	}
	return u.Redacted()
}
