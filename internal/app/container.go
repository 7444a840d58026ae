// Package app wires configuration into the engine, reconciler and stores
package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/yourusername/netreconcile/internal/approval"
	"github.com/yourusername/netreconcile/internal/aws"
	"github.com/yourusername/netreconcile/internal/config"
	"github.com/yourusername/netreconcile/internal/detector"
	"github.com/yourusername/netreconcile/internal/logger"
	"github.com/yourusername/netreconcile/internal/models"
	"github.com/yourusername/netreconcile/internal/netbox"
	"github.com/yourusername/netreconcile/internal/policy"
	"github.com/yourusername/netreconcile/internal/reconciler"
	"github.com/yourusername/netreconcile/internal/snapshot"
	"github.com/yourusername/netreconcile/internal/suzieq"
)

// Container holds all the application dependencies
type Container struct {
	cfg    *config.Config
	logger *logger.Logger

	// Collaborators
	ssot *netbox.Client
	live detector.Collector

	// Services
	policy *policy.Policy
	engine *detector.Engine
	store  approval.Store

	redis *redis.Client
}

// ContainerOption is a function that configures the container
type ContainerOption func(*Container) error

// WithLogger replaces the logger built from the log config
func WithLogger(l *logger.Logger) ContainerOption {
	return func(c *Container) error {
		if l == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		c.logger = l
		return nil
	}
}

// WithCollector replaces the live collector selected by engine.live_source
func WithCollector(live detector.Collector) ContainerOption {
	return func(c *Container) error {
		if live == nil {
			return fmt.Errorf("collector cannot be nil")
		}
		c.live = live
		return nil
	}
}

// WithApprovalStore replaces the store selected by the redis config
func WithApprovalStore(store approval.Store) ContainerOption {
	return func(c *Container) error {
		if store == nil {
			return fmt.Errorf("approval store cannot be nil")
		}
		c.store = store
		return nil
	}
}

// NewContainer creates a new application container with all dependencies
func NewContainer(ctx context.Context, cfg *config.Config, opts ...ContainerOption) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	container := &Container{cfg: cfg}

	for _, opt := range opts {
		if err := opt(container); err != nil {
			return nil, fmt.Errorf("applying container option: %w", err)
		}
	}

	if container.logger == nil {
		container.logger = logger.NewLogger(cfg.LoggerConfig())
	}

	container.policy = policy.Default()
	if cfg.Policy.File != "" {
		p, err := policy.LoadFile(cfg.Policy.File)
		if err != nil {
			return nil, fmt.Errorf("loading policy: %w", err)
		}
		container.policy = p
	}

	ssot, err := netbox.NewClient(netbox.Config{
		URL:       cfg.NetBox.URL,
		Token:     cfg.NetBox.Token,
		VerifySSL: cfg.NetBox.VerifySSL,
		Timeout:   cfg.NetBox.Timeout,
		PageSize:  cfg.NetBox.PageSize,
	}, netbox.WithLogger(container.logger))
	if err != nil {
		return nil, fmt.Errorf("creating netbox client: %w", err)
	}
	container.ssot = ssot

	if container.live == nil {
		live, err := newCollector(ctx, cfg, container.logger)
		if err != nil {
			return nil, err
		}
		container.live = live
	}

	if container.store == nil {
		if err := container.initStore(ctx); err != nil {
			return nil, err
		}
	}

	container.engine = detector.NewEngine(container.live, container.ssot,
		detector.WithPolicy(container.policy),
		detector.WithWorkers(cfg.Engine.Workers),
		detector.WithLogger(container.logger),
	)

	return container, nil
}

func newCollector(ctx context.Context, cfg *config.Config, log *logger.Logger) (detector.Collector, error) {
	switch cfg.Engine.LiveSource {
	case config.LiveSuzieQ:
		c, err := suzieq.NewClient(suzieq.Config{
			URL:       cfg.SuzieQ.URL,
			Token:     cfg.SuzieQ.Token,
			VerifySSL: cfg.SuzieQ.VerifySSL,
			Timeout:   cfg.SuzieQ.Timeout,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("creating suzieq client: %w", err)
		}
		return c, nil
	case config.LiveSnapshot:
		source, err := models.ParseDiffSource(cfg.Snapshot.Source)
		if err != nil {
			return nil, fmt.Errorf("snapshot.source: %w", err)
		}
		s, err := snapshot.NewSource(cfg.Snapshot.Dir, source)
		if err != nil {
			return nil, fmt.Errorf("opening snapshot: %w", err)
		}
		return s, nil
	case config.LiveEC2:
		c, err := aws.NewCollector(ctx, cfg.AWS.Region, cfg.AWS.Profile)
		if err != nil {
			return nil, fmt.Errorf("creating ec2 collector: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown live source %q", cfg.Engine.LiveSource)
	}
}

func (c *Container) initStore(ctx context.Context) error {
	if !c.cfg.Redis.Enabled {
		c.store = approval.NewMemoryStore()
		return nil
	}
	client, err := approval.NewRedisClient(ctx, c.cfg.Redis.Addr, c.cfg.Redis.Password, c.cfg.Redis.DB)
	if err != nil {
		return err
	}
	c.redis = client
	c.store = approval.NewRedisStore(client, approval.RedisOptions{
		KeyPrefix:   c.cfg.Redis.KeyPrefix,
		Channel:     c.cfg.Redis.Channel,
		DecisionTTL: c.cfg.Redis.DecisionTTL,
	})
	return nil
}

// NewReconciler builds a reconciler writing through the NetBox client.
// A nil channel leaves approval gated diffs pending.
func (c *Container) NewReconciler(dryRun bool, channel approval.Func) *reconciler.Reconciler {
	opts := []reconciler.Option{
		reconciler.WithDryRun(dryRun),
		reconciler.WithPolicy(c.policy),
		reconciler.WithLogger(c.logger),
	}
	if channel != nil {
		opts = append(opts, reconciler.WithApprovalChannel(channel))
	}
	return reconciler.New(c.ssot, opts...)
}

// GetEngine returns the comparison engine
func (c *Container) GetEngine() *detector.Engine {
	return c.engine
}

// GetApprovalStore returns the approval store
func (c *Container) GetApprovalStore() approval.Store {
	return c.store
}

// GetPolicy returns the effective policy
func (c *Container) GetPolicy() *policy.Policy {
	return c.policy
}

// GetLogger returns the application logger
func (c *Container) GetLogger() *logger.Logger {
	return c.logger
}

// GetConfig returns the loaded configuration
func (c *Container) GetConfig() *config.Config {
	return c.cfg
}

// Close releases the redis connection, if any, and flushes the logger
func (c *Container) Close() error {
	_ = c.logger.Sync()
	if c.redis != nil {
		return c.redis.Close()
	}
	return nil
}
