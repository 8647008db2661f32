package service

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"

	"academy-commerce/internal/core/domain"
)

// SHA512SignatureService implements ports.SignatureService for gateway
// notifications: hex(sha512(order_id + status_code + gross_amount + server_key)).
type SHA512SignatureService struct {
	serverKey string
}

// NewSHA512SignatureService creates a signature service bound to the gateway server key.
func NewSHA512SignatureService(serverKey string) *SHA512SignatureService {
	return &SHA512SignatureService{serverKey: serverKey}
}

// Sign returns the lowercase hex signature for the given fields.
func (s *SHA512SignatureService) Sign(orderID, statusCode, grossAmount string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + s.serverKey))
	return hex.EncodeToString(sum[:])
}

// Verify checks the notification's signature_key.
// Uses constant-time comparison to prevent timing attacks.
func (s *SHA512SignatureService) Verify(n *domain.PaymentNotification) bool {
	expected := s.Sign(n.OrderID, n.StatusCode, n.GrossAmount)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(n.SignatureKey)) == 1
}
