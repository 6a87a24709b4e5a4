package service

import "testing"

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := hashPassword("s3cret!")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if hash == "s3cret!" {
		t.Fatalf("expected password to be hashed")
	}

	ok, err := checkPassword(hash, "s3cret!")
	if err != nil || !ok {
		t.Fatalf("expected match, got ok=%v err=%v", ok, err)
	}
	ok, err = checkPassword(hash, "wrong")
	if err != nil || ok {
		t.Fatalf("expected mismatch, got ok=%v err=%v", ok, err)
	}
	ok, err = checkPassword("", "s3cret!")
	if err != nil || ok {
		t.Fatalf("expected empty hash to never match, got ok=%v err=%v", ok, err)
	}
}

func TestCheckPassword_MalformedHash(t *testing.T) {
	if _, err := checkPassword("not-a-bcrypt-hash", "x"); err == nil {
		t.Fatalf("expected error for malformed hash")
	}
}
