package alumni

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"math/big"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// OTP purposes
const (
	PurposeRegister      = "register"
	PurposePasswordReset = "password_reset"
)

var (
	salt    = []byte("alumnihub.backend.core.alumni.otp")
	NowFunc = time.Now // mockable

	// GenerateOTPCode returns a random numeric code of the given length. mockable
	GenerateOTPCode = generateOTPCode

	// errors
	ErrOTPNotFound  = errors.New("otp not found")
	ErrOTPInvalid   = errors.New("invalid code")
	ErrOTPExpired   = errors.New("code expired")
	ErrOTPExhausted = errors.New("too many attempts, request a new code")
	ErrOTPCooldown  = errors.New("please wait before requesting another code")
)

// OTPRecord is an issued one-time password. Only the digest of the code is kept.
type OTPRecord struct {
	Purpose   string
	Email     string
	Digest    string
	SentAt    time.Time
	ExpiresAt time.Time
	Attempts  int
}

// OTPStore keeps at most one OTPRecord per (purpose, email).
type OTPStore interface {
	// SaveOTP replaces any record for (rec.Purpose, rec.Email). The store may forget it after retention.
	SaveOTP(ctx context.Context, rec OTPRecord, retention time.Duration) error
	// GetOTP returns ErrOTPNotFound when no record exists.
	GetOTP(ctx context.Context, purpose, email string) (OTPRecord, error)
	// IncrementOTPAttempts returns the number of failed attempts after the increment,
	// or ErrOTPNotFound without creating a record.
	IncrementOTPAttempts(ctx context.Context, purpose, email string) (int, error)
	// DeleteOTP reports whether a record was deleted. Of concurrent calls, at most one reports true.
	DeleteOTP(ctx context.Context, purpose, email string) (bool, error)
}

func generateOTPCode(length int) (string, error) {
	var code strings.Builder
	code.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", errors.Wrap(err, "generating otp digit")
		}
		code.WriteByte(byte('0' + n.Int64()))
	}
	return code.String(), nil
}

// digestOTP signs the code together with what it was issued for, so that a digest is useless for any other
// (purpose, email) pair.
func digestOTP(secretKey, purpose, email, code string) (string, error) {
	key := sha256.Sum256(append(append([]byte{}, salt...), secretKey...))
	h := hmac.New(sha256.New, key[:])
	if _, err := h.Write([]byte(purpose + "|" + email + "|" + code)); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil)), nil
}

func checkOTPDigest(secretKey string, rec OTPRecord, code string) bool {
	digest, err := digestOTP(secretKey, rec.Purpose, rec.Email, code)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(digest), []byte(rec.Digest))
}
