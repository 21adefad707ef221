package membership

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aether-community/backend/internal/store"
)

const (
	codePrefix      = "AX-"
	maxCodeAttempts = 10
)

// RandomCode returns a code of the form AX-#### from a cryptographic source.
func RandomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", fmt.Errorf("random code: %w", err)
	}
	return fmt.Sprintf("%s%04d", codePrefix, n.Int64()), nil
}

// fallbackCode is used when the four-digit space keeps colliding.
func fallbackCode() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return codePrefix + strings.ToUpper(hex[:8])
}

// allocateCode draws random codes until one is free in the store.
func (s *Service) allocateCode(ctx context.Context) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code, err := s.codes()
		if err != nil {
			return "", err
		}
		_, err = s.members.FindByCode(ctx, code)
		if errors.Is(err, store.ErrNotFound) {
			return code, nil
		}
		if err != nil {
			return "", fmt.Errorf("check member code: %w", err)
		}
	}
	code := fallbackCode()
	s.logger.Warn("member code space congested, using fallback code", zap.String("code", code))
	return code, nil
}
