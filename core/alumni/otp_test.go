package alumni

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_generateOTPCode(t *testing.T) {
	for _, length := range []int{4, 6, 8} {
		code, err := generateOTPCode(length)
		require.NoError(t, err)
		assert.Len(t, code, length)
		assert.Regexp(t, "^[0-9]+$", code)
	}
}

func Test_checkOTPDigest(t *testing.T) {
	digest, err := digestOTP("secret", PurposeRegister, "awe@test.cd", "123456")
	require.NoError(t, err)
	rec := OTPRecord{Purpose: PurposeRegister, Email: "awe@test.cd", Digest: digest}

	assert.True(t, checkOTPDigest("secret", rec, "123456"))
	assert.False(t, checkOTPDigest("secret", rec, "123457"))
	assert.False(t, checkOTPDigest("other-secret", rec, "123456"))

	// a digest is bound to what it was issued for
	reset := rec
	reset.Purpose = PurposePasswordReset
	assert.False(t, checkOTPDigest("secret", reset, "123456"))
	other := rec
	other.Email = "lol@test.cd"
	assert.False(t, checkOTPDigest("secret", other, "123456"))
}

func Test_humanizeDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{d: 30 * time.Second, want: "30 seconds"},
		{d: time.Minute, want: "1 minute"},
		{d: 10 * time.Minute, want: "10 minutes"},
		{d: 90 * time.Minute, want: "90 minutes"},
		{d: time.Hour, want: "1 hour"},
		{d: 48 * time.Hour, want: "48 hours"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, humanizeDuration(tt.d))
		})
	}
}
