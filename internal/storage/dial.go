package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	perrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/supabase/integrations/internal/conf"
)

// ErrNotFound is returned by a Store when a key is absent or has expired.
var ErrNotFound = errors.New("storage: key not found")

// Store is the interface an ephemeral key-value driver must implement.
// Values written with a positive ttl must become unreadable once the ttl
// elapses.
type Store interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Close() error
}

// Connection wraps the configured Store with JSON helpers.
type Connection struct {
	Store
}

// NewConnection wraps an already constructed store.
func NewConnection(store Store) *Connection {
	return &Connection{Store: store}
}

// Dial will connect to the configured cache driver.
func Dial(config *conf.GlobalConfiguration) (*Connection, error) {
	switch config.Cache.Driver {
	case conf.CacheDriverMemory:
		logrus.Warn("using in-memory cache driver, state and credentials are not shared between instances")
		return NewConnection(NewMemoryStore()), nil

	case conf.CacheDriverRedis, "":
		store, err := NewRedisStore(&config.Cache)
		if err != nil {
			return nil, perrors.Wrap(err, "opening cache connection")
		}
		return NewConnection(store), nil

	default:
		return nil, perrors.Errorf("unsupported cache driver %q", config.Cache.Driver)
	}
}

// SetJSON marshals value and stores it under key.
func (c *Connection) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return perrors.Wrapf(err, "encoding value for %q", key)
	}
	return c.Set(ctx, key, data, ttl)
}

// GetJSON reads key and unmarshals it into dst. ErrNotFound is returned
// unwrapped so callers can compare against it.
func (c *Connection) GetJSON(ctx context.Context, key string, dst interface{}) error {
	data, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return perrors.Wrapf(err, "decoding value for %q", key)
	}
	return nil
}
