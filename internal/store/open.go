package store

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	DriverDynamoDB = "dynamodb"
	DriverBolt     = "bolt"
	DriverRedis    = "redis"
)

// Options selects and configures a backend.
type Options struct {
	Driver    string
	Table     string
	Path      string // bolt file
	RedisAddr string
	Endpoint  string // DynamoDB endpoint override
	AWS       aws.Config
}

// Open builds the Store named by opts.Driver. DynamoDB and Redis connect
// lazily; bolt opens its file immediately.
func Open(opts Options, l *zap.Logger) (Store, error) {
	switch opts.Driver {
	case DriverDynamoDB, "":
		return NewDynamoStore(NewDynamoClient(opts.AWS, opts.Endpoint), opts.Table, l), nil
	case DriverBolt:
		s, err := OpenBolt(opts.Path, opts.Table, l)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverRedis:
		rdb := redis.NewClient(&redis.Options{Addr: opts.RedisAddr})
		return NewRedisStore(rdb, opts.Table, l), nil
	default:
		return nil, fmt.Errorf("store: %w: %q", ErrUnknownDriver, opts.Driver)
	}
}
