package scheduler

import (
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// redisClientOpt converts a redis URL into asynq connection options,
// preserving any TLS settings encoded in the URL scheme.
func redisClientOpt(redisURL string) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}, nil
}
