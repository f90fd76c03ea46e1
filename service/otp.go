package service

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/georgepadayatti/esign/document"
)

// HashOTP returns the bcrypt hash stored on a signer for code.
func HashOTP(code string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(code), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// checkOTP verifies the one-time code presented by a signer of a document
// that requires one.
func checkOTP(signer *document.Signer, code string) *Error {
	if signer == nil || signer.OTPHash == "" {
		return newError(CodeUnauthorized, "no one-time code was issued to this signer", nil)
	}
	if code == "" {
		return newError(CodeUnauthorized, "one-time code required", nil)
	}
	err := bcrypt.CompareHashAndPassword([]byte(signer.OTPHash), []byte(code))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return newError(CodeUnauthorized, "invalid one-time code", nil)
	default:
		return newError(CodeInternal, "checking one-time code", err)
	}
}
