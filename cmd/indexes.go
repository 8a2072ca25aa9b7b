package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"authgate/internal/database"
)

func newEnsureIndexesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ensure-indexes",
		Short: "Create the unique email index on the users collection and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			client, err := database.ConnectMongoDB(ctx, a.cfg.MongoURI, a.log)
			if err != nil {
				return fmt.Errorf("failed to connect to MongoDB: %w", err)
			}
			defer func(c *mongo.Client) { _ = c.Disconnect(context.Background()) }(client)

			if err := database.EnsureIndexes(ctx, database.GetUserCollection(client, a.cfg.MongoDB)); err != nil {
				return fmt.Errorf("failed to create indexes: %w", err)
			}
			a.log.Info("indexes ensured", zap.String("db", a.cfg.MongoDB), zap.String("collection", database.UserCollection))
			return nil
		},
	}
}
