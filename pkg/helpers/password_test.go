package helpers

import "testing"

func TestHashAndCompare(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "s3cret!" {
		t.Fatalf("hash must not equal the plain password")
	}
	if !CompareHashAndPassword(hash, "s3cret!") {
		t.Fatalf("expected password to match")
	}
	if CompareHashAndPassword(hash, "wrong") {
		t.Fatalf("expected mismatch for wrong password")
	}
}

func TestHashPasswordLengthBounds(t *testing.T) {
	for _, p := range []string{"short", string(make([]byte, MaxPasswordBytes+1))} {
		if _, err := HashPassword(p); err != ErrPasswordLength {
			t.Fatalf("len %d: expected ErrPasswordLength, got %v", len(p), err)
		}
	}
}
