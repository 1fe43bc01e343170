// internal/app/admission/credentials.go
package admission

import (
	"context"
	"crypto/rand"
	"fmt"
)

// Check-in credentials are 8 characters drawn from [A-Z0-9], unique
// within an event. Codes issued from the guest path carry the GUEST_
// prefix so the two paths stay visually distinguishable.
const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 8

	// GuestCodePrefix marks credentials issued from the guest path.
	GuestCodePrefix = "GUEST_"
)

const maxCodeAttempts = 32

func randomCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate check-in code: %w", err)
	}
	out := make([]byte, codeLength)
	for i, b := range buf {
		out[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(out), nil
}

// newCode draws codes until exists reports a free one. The per-event
// space is 36^8, so collisions are rare; the attempt cap only guards
// against a broken exists check.
func newCode(ctx context.Context, prefix string, exists func(context.Context, string) (bool, error)) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code, err := randomCode()
		if err != nil {
			return "", err
		}
		code = prefix + code
		taken, err := exists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check code uniqueness: %w", err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("exhausted %d attempts generating a unique check-in code", maxCodeAttempts)
}
