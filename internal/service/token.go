package service

import (
	"crypto/rand"
	"math/big"
)

const (
	tokenLength            = 18
	verificationCodeLength = 24
	tokenAlphabet          = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// CreateToken genera un token de sesion alfanumerico de 18 caracteres.
func CreateToken() (string, error) {
	return randomString(tokenLength)
}

func newVerificationCode() (string, error) {
	return randomString(verificationCodeLength)
}

func randomString(n int) (string, error) {
	max := big.NewInt(int64(len(tokenAlphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = tokenAlphabet[idx.Int64()]
	}
	return string(out), nil
}
