package security

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

const DefaultOTPLength = 6

var otpDigitMax = big.NewInt(10)

// GenerateOTP returns a numeric code of the given length drawn from crypto/rand.
func GenerateOTP(length int) (string, error) {
	return generateOTP(rand.Reader, length)
}

func generateOTP(r io.Reader, length int) (string, error) {
	if length <= 0 {
		length = DefaultOTPLength
	}
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(r, otpDigitMax)
		if err != nil {
			return "", fmt.Errorf("generate otp: %w", err)
		}
		buf[i] = byte('0' + n.Int64())
	}
	return string(buf), nil
}
