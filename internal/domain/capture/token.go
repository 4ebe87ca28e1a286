package capture

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Token derives the verification token for a completed capture. It is an
// HMAC-SHA256 over "lat:lng:timestamp:id", hex encoded, so the token binds
// the capture's coordinates and time: the same capture always yields the
// same token, and any forged field invalidates it.
func Token(secret []byte, lat, lng float64, capturedAt time.Time, notificationID uuid.UUID) string {
	payload := strconv.FormatFloat(lat, 'f', -1, 64) + ":" +
		strconv.FormatFloat(lng, 'f', -1, 64) + ":" +
		capturedAt.UTC().Format(time.RFC3339) + ":" +
		notificationID.String()

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// ValidToken reports whether token matches the capture data it claims to
// attest. Comparison is constant time.
func ValidToken(secret []byte, token string, lat, lng float64, capturedAt time.Time, notificationID uuid.UUID) bool {
	expected := Token(secret, lat, lng, capturedAt, notificationID)
	return hmac.Equal([]byte(token), []byte(expected))
}
