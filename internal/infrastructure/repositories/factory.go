package repositories

import (
	"context"

	"notemesh/internal/core/ports"
	"notemesh/internal/infrastructure/repositories/memory"
	redisrepo "notemesh/internal/infrastructure/repositories/redis"
	"notemesh/pkg/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RepositoryFactory creates repositories with fallback support
type RepositoryFactory struct {
	useRedis    bool
	redisClient *redis.Client
	logger      *zap.SugaredLogger
}

// NewRepositoryFactory creates a new repository factory
func NewRepositoryFactory(cfg *config.Config, logger *zap.SugaredLogger) (*RepositoryFactory, error) {
	factory := &RepositoryFactory{
		useRedis: cfg.Redis.Enabled,
		logger:   logger,
	}

	// Try to connect to Redis if enabled
	if cfg.Redis.Enabled {
		client, err := redisrepo.NewRedisClient(
			cfg.Redis.Address,
			cfg.Redis.Password,
			cfg.Redis.DB,
			cfg.Redis.PoolSize,
			logger,
		)
		if err != nil {
			logger.Warnw("failed to connect to Redis, falling back to memory repositories",
				"error", err,
			)
			factory.useRedis = false
		} else {
			factory.redisClient = client
			logger.Info("using Redis repositories")
		}
	}

	if !factory.useRedis {
		logger.Info("using memory repositories")
	}

	return factory, nil
}

// RedisClient exposes the underlying client for components that share the
// connection, like the cross-node relay. Nil when running on memory.
func (f *RepositoryFactory) RedisClient() *redis.Client {
	if f.useRedis {
		return f.redisClient
	}
	return nil
}

// CreateNoteRepository creates a note repository (Redis or memory with fallback)
func (f *RepositoryFactory) CreateNoteRepository() ports.NoteRepository {
	if f.useRedis && f.redisClient != nil {
		return redisrepo.NewRedisNoteRepository(f.redisClient)
	}
	return memory.NewMemoryNoteRepository()
}

// CreateCategoryRepository creates a category repository (Redis or memory with fallback)
func (f *RepositoryFactory) CreateCategoryRepository() ports.CategoryRepository {
	if f.useRedis && f.redisClient != nil {
		return redisrepo.NewRedisCategoryRepository(f.redisClient)
	}
	return memory.NewMemoryCategoryRepository()
}

// CreateUserRepository creates a user repository (Redis or memory with fallback)
func (f *RepositoryFactory) CreateUserRepository() ports.UserRepository {
	if f.useRedis && f.redisClient != nil {
		return redisrepo.NewRedisUserRepository(f.redisClient)
	}
	return memory.NewMemoryUserRepository()
}

// CreateInviteRepository creates an invite repository (Redis or memory with fallback)
func (f *RepositoryFactory) CreateInviteRepository() ports.InviteRepository {
	if f.useRedis && f.redisClient != nil {
		return redisrepo.NewRedisInviteRepository(f.redisClient)
	}
	return memory.NewMemoryInviteRepository()
}

// CreateShareRepository creates a share repository (Redis or memory with fallback)
func (f *RepositoryFactory) CreateShareRepository() ports.ShareRepository {
	if f.useRedis && f.redisClient != nil {
		return redisrepo.NewRedisShareRepository(f.redisClient)
	}
	return memory.NewMemoryShareRepository()
}

// Close closes Redis connection if used
func (f *RepositoryFactory) Close() error {
	if f.redisClient != nil {
		return redisrepo.CloseRedisClient(f.redisClient)
	}
	return nil
}

// HealthCheck checks Redis connection health
func (f *RepositoryFactory) HealthCheck(ctx context.Context) error {
	if f.useRedis && f.redisClient != nil {
		return f.redisClient.Ping(ctx).Err()
	}
	return nil
}
