package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/volatiletech/null/v8"
)

func Test_GenerateOTP(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		otp, err := GenerateOTP()
		assert.NoError(t, err)
		assert.Len(t, otp, 6)
		for _, c := range otp {
			assert.True(t, c >= '0' && c <= '9', "non-digit in OTP: %q", otp)
		}
		seen[otp] = true
	}
	assert.Greater(t, len(seen), 1, "OTPs never vary")
}

func Test_GenerateSignupToken(t *testing.T) {
	tok, err := GenerateSignupToken()
	assert.NoError(t, err)
	assert.Len(t, tok, 8)
	for _, c := range tok {
		valid := (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
		assert.True(t, valid, "invalid char in token: %q", tok)
	}
}

func Test_verifyOTP(t *testing.T) {
	now := time.Date(2021, time.March, 10, 12, 0, 0, 0, time.UTC)
	NowFunc = func() time.Time { return now }
	defer func() { NowFunc = time.Now }()

	usrWithOTP := func(otp string, createdAt time.Time) User {
		return User{
			ResetOTP:          null.StringFrom(otp),
			ResetOTPCreatedAt: null.TimeFrom(createdAt),
		}
	}

	tests := []struct {
		name    string
		usr     User
		otp     string
		wantErr error
	}{
		{name: "no OTP set", usr: User{}, otp: "123456", wantErr: ErrOTPInvalid},
		{name: "wrong OTP", usr: usrWithOTP("654321", now), otp: "123456", wantErr: ErrOTPInvalid},
		{name: "valid", usr: usrWithOTP("123456", now.Add(-5*time.Minute)), otp: "123456"},
		{name: "valid at exactly 10min", usr: usrWithOTP("123456", now.Add(-10*time.Minute)), otp: "123456"},
		{name: "expired past 10min", usr: usrWithOTP("123456", now.Add(-10*time.Minute-time.Second)), otp: "123456", wantErr: ErrOTPExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := verifyOTP(tt.usr, tt.otp)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
