package password

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerify(t *testing.T) {
	service := NewBcryptPasswordService(bcrypt.MinCost)

	hash, err := service.HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if hash == "" {
		t.Fatal("hash should not be empty")
	}
	if hash == "correct horse battery staple" {
		t.Fatal("hash should not equal the plaintext")
	}
	if !strings.HasPrefix(hash, "$2") {
		t.Errorf("expected a bcrypt hash, got %q", hash)
	}

	ok, err := service.VerifyPassword("correct horse battery staple", hash)
	if err != nil {
		t.Fatalf("VerifyPassword failed: %v", err)
	}
	if !ok {
		t.Error("correct password should verify")
	}

	ok, err = service.VerifyPassword("wrong password", hash)
	if err != nil {
		t.Fatalf("VerifyPassword failed: %v", err)
	}
	if ok {
		t.Error("wrong password should not verify")
	}
}

func TestHashesAreSalted(t *testing.T) {
	service := NewBcryptPasswordService(bcrypt.MinCost)

	first, err := service.HashPassword("same password")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	second, err := service.HashPassword("same password")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if first == second {
		t.Error("two hashes of the same password should differ")
	}

	for _, h := range []string{first, second} {
		ok, _ := service.VerifyPassword("same password", h)
		if !ok {
			t.Error("both hashes should verify the original password")
		}
	}
}

func TestEmptyPassword(t *testing.T) {
	service := NewBcryptPasswordService(bcrypt.MinCost)

	if _, err := service.HashPassword(""); err == nil {
		t.Error("hashing an empty password should fail")
	}

	ok, err := service.VerifyPassword("", "$2a$04$whatever")
	if err != nil || ok {
		t.Errorf("empty password should verify false without error, got ok=%v err=%v", ok, err)
	}
}

func TestMalformedHashVerifiesFalse(t *testing.T) {
	service := NewBcryptPasswordService(bcrypt.MinCost)

	for _, hash := range []string{"", "not-a-hash", "$2a$garbage", "plaintext"} {
		ok, err := service.VerifyPassword("anything", hash)
		if err != nil {
			t.Errorf("VerifyPassword(%q) returned error: %v", hash, err)
		}
		if ok {
			t.Errorf("VerifyPassword(%q) should be false", hash)
		}
	}
}

func TestCostClamping(t *testing.T) {
	for _, cost := range []int{-1, 0, bcrypt.MaxCost + 1} {
		service := NewBcryptPasswordService(cost)
		if service.cost != bcrypt.DefaultCost {
			t.Errorf("cost %d should clamp to default, got %d", cost, service.cost)
		}
	}

	service := NewBcryptPasswordService(bcrypt.MinCost)
	if service.cost != bcrypt.MinCost {
		t.Errorf("in-range cost should be kept, got %d", service.cost)
	}
}
