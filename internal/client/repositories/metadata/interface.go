// Package metadata stores small key/value settings of the local store, such
// as the bearer token and the identity of the signed-in user.
package metadata

import (
	"context"
)

type Repository interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, keys ...string) error
	List(ctx context.Context) (map[string]string, error)
	Clear(ctx context.Context) error
}
