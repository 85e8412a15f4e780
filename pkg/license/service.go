package license

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/jordanlanch/showcasely/pkg/domain"
	"github.com/jordanlanch/showcasely/pkg/store"
)

// Service issues and checks license keys. A key is an opaque credential
// bound 1:1 to a subscription projection row.
type Service struct {
	store store.Store
}

// NewService creates a new license service
func NewService(s store.Store) *Service {
	return &Service{store: s}
}

// Generate produces a fresh license key: 16 cryptographically random
// bytes, hex-encoded, split into 8-character groups joined by hyphens,
// upper-cased
func Generate() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	encoded := hex.EncodeToString(buf)

	segments := make([]string, 0, 4)
	for i := 0; i < len(encoded); i += 8 {
		segments = append(segments, encoded[i:i+8])
	}

	return strings.ToUpper(strings.Join(segments, "-")), nil
}

// Validate reports whether a license key belongs to a subscription whose
// status is active. A missing key is simply invalid, not an error.
func (s *Service) Validate(ctx context.Context, key string) (bool, error) {
	sub, err := s.store.GetSubscriptionByLicenseKey(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to look up license key: %w", err)
	}
	return sub.Status == store.SubscriptionStatusActive, nil
}

// Reset rotates the license key for a subscription. The overwrite is a
// single-row update, so the old key stops validating the moment the new
// one is stored. There is no grace period.
func (s *Service) Reset(ctx context.Context, externalSubscriptionID string) (string, error) {
	key, err := Generate()
	if err != nil {
		return "", err
	}

	if err := s.store.UpdateLicenseKey(ctx, externalSubscriptionID, key); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", domain.NewNotFoundError("subscription")
		}
		return "", fmt.Errorf("failed to rotate license key: %w", err)
	}

	return key, nil
}
