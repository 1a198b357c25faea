// Package redis implements the coordination interfaces in domain on top of
// go-redis/v9: message claims, request rate limits and reply fan-out. Market
// state is never cached here; every market read goes to the chain.
package redis

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultNamespace prefixes every key this package writes.
const DefaultNamespace = "predictd"

// ClientConfig holds connection parameters for the Redis client.
type ClientConfig struct {
	Addr       string
	Password   string
	DB         int
	PoolSize   int
	MaxRetries int
	TLSEnabled bool
	// Namespace overrides DefaultNamespace so several deployments can share
	// one database.
	Namespace string
}

// Client wraps a go-redis client with the key namespace.
type Client struct {
	rdb *redis.Client
	ns  string
}

// New dials Redis and pings it. The connection is closed again if the ping
// fails.
func New(ctx context.Context, cfg ClientConfig) (*Client, error) {
	opts := &redis.Options{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		PoolSize:   cfg.PoolSize,
		MaxRetries: cfg.MaxRetries,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	c := Wrap(redis.NewClient(opts), cfg.Namespace)
	if err := c.Ping(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// Wrap adopts an existing go-redis client.
func Wrap(rdb *redis.Client, namespace string) *Client {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &Client{rdb: rdb, ns: namespace}
}

// Ping checks the connection.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// key builds a namespaced key such as "predictd:lock:msg:42".
func (c *Client) key(kind, name string) string {
	return c.ns + ":" + kind + ":" + name
}
