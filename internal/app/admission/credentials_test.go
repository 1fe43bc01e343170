// internal/app/admission/credentials_test.go
package admission

import (
	"context"
	"strings"
	"testing"
)

func TestRandomCodeFormat(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := randomCode()
		if err != nil {
			t.Fatalf("randomCode: %v", err)
		}
		if len(code) != codeLength {
			t.Fatalf("code %q has length %d, want %d", code, len(code), codeLength)
		}
		for _, c := range code {
			if !strings.ContainsRune(codeAlphabet, c) {
				t.Fatalf("code %q contains %q outside [A-Z0-9]", code, c)
			}
		}
	}
}

func TestNewCodeUniquenessOverHundredIssues(t *testing.T) {
	ctx := context.Background()
	issued := make(map[string]bool)
	exists := func(_ context.Context, c string) (bool, error) {
		return issued[c], nil
	}

	for i := 0; i < 100; i++ {
		code, err := newCode(ctx, "", exists)
		if err != nil {
			t.Fatalf("issue %d: %v", i, err)
		}
		if issued[code] {
			t.Fatalf("duplicate code %q on issue %d", code, i)
		}
		issued[code] = true
	}
	if len(issued) != 100 {
		t.Fatalf("issued %d distinct codes, want 100", len(issued))
	}
}

func TestNewCodeRetriesOnCollision(t *testing.T) {
	calls := 0
	exists := func(_ context.Context, c string) (bool, error) {
		calls++
		return calls <= 3, nil // first three draws collide
	}
	code, err := newCode(context.Background(), GuestCodePrefix, exists)
	if err != nil {
		t.Fatalf("newCode: %v", err)
	}
	if calls != 4 {
		t.Errorf("exists called %d times, want 4", calls)
	}
	if !strings.HasPrefix(code, GuestCodePrefix) {
		t.Errorf("code %q missing guest prefix", code)
	}
}

func TestNewCodeGivesUpWhenSpaceExhausted(t *testing.T) {
	exists := func(_ context.Context, _ string) (bool, error) { return true, nil }
	if _, err := newCode(context.Background(), "", exists); err == nil {
		t.Fatal("expected an error when every draw collides")
	}
}
