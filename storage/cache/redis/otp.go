package rediscache

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/alumnihub/backend/core/alumni"
)

var keyPrefix = "otp:"

// otpHash is the redis hash representation of an alumni.OTPRecord.
type otpHash struct {
	Purpose   string `redis:"purpose"`
	Email     string `redis:"email"`
	Digest    string `redis:"digest"`
	SentAt    int64  `redis:"sent_at"`    // unix ms
	ExpiresAt int64  `redis:"expires_at"` // unix ms
	Attempts  int    `redis:"attempts"`
}

type otpStore struct {
	client redis.Cmdable
}

var _ alumni.OTPStore = (*otpStore)(nil)

func NewOTPStore(client redis.Cmdable) *otpStore {
	return &otpStore{client: client}
}

func key(purpose, email string) string {
	return keyPrefix + purpose + ":" + email
}

func (s *otpStore) SaveOTP(ctx context.Context, rec alumni.OTPRecord, retention time.Duration) error {
	k := key(rec.Purpose, rec.Email)
	h := otpHash{
		Purpose:   rec.Purpose,
		Email:     rec.Email,
		Digest:    rec.Digest,
		SentAt:    rec.SentAt.UnixMilli(),
		ExpiresAt: rec.ExpiresAt.UnixMilli(),
		Attempts:  rec.Attempts,
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, k)
		pipe.HSet(ctx, k, h)
		pipe.Expire(ctx, k, retention)
		return nil
	})
	return errors.Wrap(err, "saving otp")
}

func (s *otpStore) GetOTP(ctx context.Context, purpose, email string) (alumni.OTPRecord, error) {
	res := s.client.HGetAll(ctx, key(purpose, email))
	vals, err := res.Result()
	if err != nil {
		return alumni.OTPRecord{}, errors.Wrap(err, "getting otp")
	}
	if len(vals) == 0 {
		return alumni.OTPRecord{}, alumni.ErrOTPNotFound
	}

	var h otpHash
	if err = res.Scan(&h); err != nil {
		return alumni.OTPRecord{}, errors.Wrap(err, "scanning otp")
	}
	return alumni.OTPRecord{
		Purpose:   h.Purpose,
		Email:     h.Email,
		Digest:    h.Digest,
		SentAt:    time.UnixMilli(h.SentAt).UTC(),
		ExpiresAt: time.UnixMilli(h.ExpiresAt).UTC(),
		Attempts:  h.Attempts,
	}, nil
}

// incrAttempts bumps the attempts of an existing record only, so that a concurrent delete
// cannot leave behind a partial hash without TTL.
var incrAttempts = redis.NewScript(`
if redis.call("HEXISTS", KEYS[1], "digest") == 0 then
	return -1
end
return redis.call("HINCRBY", KEYS[1], "attempts", 1)
`)

func (s *otpStore) IncrementOTPAttempts(ctx context.Context, purpose, email string) (int, error) {
	n, err := incrAttempts.Run(ctx, s.client, []string{key(purpose, email)}).Int()
	if err != nil {
		return 0, errors.Wrap(err, "incrementing otp attempts")
	}
	if n < 0 {
		return 0, alumni.ErrOTPNotFound
	}
	return n, nil
}

func (s *otpStore) DeleteOTP(ctx context.Context, purpose, email string) (bool, error) {
	n, err := s.client.Del(ctx, key(purpose, email)).Result()
	if err != nil {
		return false, errors.Wrap(err, "deleting otp")
	}
	return n > 0, nil
}
