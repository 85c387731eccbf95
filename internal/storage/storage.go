// Package storage provides the durable key-value backends that hold the
// learner's progress blob.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when a key has never been written.
var ErrNotFound = errors.New("key not found")

// KV is a minimal durable key-value store. Values are opaque blobs written
// whole on every Set.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Ping(ctx context.Context) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Options selects and configures a backend.
type Options struct {
	Backend     string
	Path        string
	RedisURL    string
	RedisPrefix string
	DatabaseURL string
	MaxConns    int
	MinConns    int
}

// Open creates the backend named by opts.Backend.
func Open(ctx context.Context, opts Options) (KV, error) {
	switch opts.Backend {
	case BackendFile, "":
		return NewFileKV(opts.Path)
	case BackendMemory:
		return NewMemoryKV(), nil
	case BackendRedis:
		return NewRedisKV(ctx, opts.RedisURL, opts.RedisPrefix)
	case BackendPostgres:
		return NewPostgresKV(ctx, opts.DatabaseURL, opts.MaxConns, opts.MinConns)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}
