package redis

// Package redis provides Redis-based adapters for the portal system.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/edbridge/portal-api/internal/ports"
	"github.com/redis/go-redis/v9"
)

// ProvisionLedger records partially provisioned accounts (created at the IdP
// but missing a password or group step) so operational tooling can find and
// repair them. Entries carry a retention TTL; the ledger never replays the
// failed step itself.
type ProvisionLedger struct {
	client    redis.UniversalClient
	prefix    string
	retention time.Duration
}

const (
	keyPrefix        = "provision_failure:"
	defaultRetention = 30 * 24 * time.Hour
)

// NewProvisionLedger creates a Redis-backed provisioning ledger.
func NewProvisionLedger(client redis.UniversalClient) *ProvisionLedger {
	return &ProvisionLedger{
		client:    client,
		prefix:    keyPrefix,
		retention: defaultRetention,
	}
}

var _ ports.ProvisionLedger = (*ProvisionLedger)(nil)

func (l *ProvisionLedger) Record(ctx context.Context, failure ports.ProvisionFailure) error {
	if failure.ID == "" {
		return errors.New("failure ID cannot be empty")
	}

	data, err := json.Marshal(failure)
	if err != nil {
		return fmt.Errorf("marshal provision failure: %w", err)
	}

	key := l.prefix + failure.ID
	return l.client.Set(ctx, key, data, l.retention).Err()
}

func (l *ProvisionLedger) List(ctx context.Context) ([]ports.ProvisionFailure, error) {
	var out []ports.ProvisionFailure
	iter := l.client.Scan(ctx, 0, l.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		data, err := l.client.Get(ctx, iter.Val()).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue // expired between scan and get
			}
			return nil, fmt.Errorf("redis get: %w", err)
		}
		var failure ports.ProvisionFailure
		if unmarshalErr := json.Unmarshal([]byte(data), &failure); unmarshalErr != nil {
			return nil, fmt.Errorf("unmarshal provision failure: %w", unmarshalErr)
		}
		out = append(out, failure)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	return out, nil
}

func (l *ProvisionLedger) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil // Nothing to delete
	}
	return l.client.Del(ctx, l.prefix+id).Err()
}
