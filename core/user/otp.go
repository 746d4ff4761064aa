package user

import (
	"crypto/rand"
	"crypto/subtle"
	"math/big"
	"time"

	"github.com/rahmanfaisal0414/backend-bimbel/core"
)

var NowFunc = time.Now // mockable

const (
	otpLen    = 6
	otpDigits = "0123456789"

	signupTokenLen      = 8
	signupTokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// GenerateOTP returns a random 6-digit one-time password for password resets.
func GenerateOTP() (string, error) {
	return randomString(otpLen, otpDigits)
}

// GenerateSignupToken returns a random 8-character A-Z0-9 signup token.
func GenerateSignupToken() (string, error) {
	return randomString(signupTokenLen, signupTokenAlphabet)
}

func randomString(n int, alphabet string) (string, error) {
	buf := make([]byte, n)
	max := big.NewInt(int64(len(alphabet)))
	for i := range buf {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = alphabet[idx.Int64()]
	}
	return string(buf), nil
}

// verifyOTP checks a submitted OTP against the user's stored one.
func verifyOTP(usr User, otp string) error {
	if !usr.ResetOTP.Valid || !usr.ResetOTPCreatedAt.Valid {
		return ErrOTPInvalid
	}
	if subtle.ConstantTimeCompare([]byte(usr.ResetOTP.String), []byte(otp)) == 0 {
		return ErrOTPInvalid
	}
	if NowFunc().After(usr.ResetOTPCreatedAt.Time.Add(core.Conf.PasswordResetOTPTimeout)) {
		return ErrOTPExpired
	}
	return nil
}
