package app

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/config"
	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/store"
)

const redisPrefix = "ytautoreply:"

func newDynamoClient(awsCfg aws.Config) *dynamodb.Client {
	return dynamodb.NewFromConfig(awsCfg)
}

// openStore connects the configured backend. The returned func, if any,
// releases its connections.
func openStore(ctx context.Context, cfg config.Config, awsCfg aws.Config) (store.Store, func(), error) {
	switch cfg.Store.Backend {
	case config.BackendDynamoDB:
		return store.NewDynamo(newDynamoClient(awsCfg), cfg.Store.DynamoTable), nil, nil

	case config.BackendRedis:
		client, err := store.DialRedis(ctx, cfg.Store.RedisAddr)
		if err != nil {
			return nil, nil, err
		}
		return store.NewRedis(client, redisPrefix), func() { _ = client.Close() }, nil

	case config.BackendPostgres:
		pool, err := store.ConnectPostgres(ctx, cfg.Store.PGDSN)
		if err != nil {
			return nil, nil, err
		}
		pg := store.NewPostgres(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return pg, pool.Close, nil

	case config.BackendMemory:
		return store.NewMemory(), nil, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}
