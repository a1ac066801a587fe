package tokencache

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"
)

// ValkeyConfig holds connection settings for the valkey backend.
type ValkeyConfig struct {
	Addrs     []string
	Password  string
	DB        int
	TLS       bool
	KeyPrefix string
}

// Valkey is a Cache shared between replicas through a valkey (or Redis) server.
type Valkey struct {
	client valkey.Client
	prefix string
}

// NewValkey connects to the configured valkey server.
func NewValkey(cfg ValkeyConfig) (*Valkey, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("valkey address is required")
	}

	opt := valkey.ClientOption{
		InitAddress: cfg.Addrs,
		Password:    cfg.Password,
		SelectDB:    cfg.DB,
	}
	if cfg.TLS {
		opt.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client, err := valkey.NewClient(opt)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to valkey: %w", err)
	}

	return NewValkeyWithClient(client, cfg.KeyPrefix), nil
}

// NewValkeyWithClient wraps an existing client.
func NewValkeyWithClient(client valkey.Client, prefix string) *Valkey {
	return &Valkey{client: client, prefix: prefix}
}

// Get implements Cache.
func (v *Valkey) Get(ctx context.Context, key string) (string, error) {
	value, err := v.client.Do(ctx, v.client.B().Get().Key(v.prefix+key).Build()).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return "", ErrMiss
		}
		return "", fmt.Errorf("valkey get: %w", err)
	}
	return value, nil
}

// Set implements Cache. A non-positive ttl is ignored.
func (v *Valkey) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	cmd := v.client.B().Set().Key(v.prefix + key).Value(value).Px(ttl).Build()
	if err := v.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("valkey set: %w", err)
	}
	return nil
}

// Close implements Cache.
func (v *Valkey) Close() error {
	v.client.Close()
	return nil
}
