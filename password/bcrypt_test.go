package password

import "testing"

func TestAlgorithmOf(t *testing.T) {
	cases := []struct {
		encoded string
		want    Algorithm
	}{
		{"$argon2id$v=19$m=65536,t=3,p=4$salt$tag", AlgorithmArgon2id},
		{"$argon2i$v=19$m=65536,t=3,p=4$salt$tag", AlgorithmArgon2i},
		{"$argon2d$v=19$m=65536,t=3,p=4$salt$tag", AlgorithmArgon2d},
		{"$2a$10$abcdefghijklmnopqrstuv", AlgorithmBcrypt},
		{"$2b$10$abcdefghijklmnopqrstuv", AlgorithmBcrypt},
		{"$2y$10$abcdefghijklmnopqrstuv", AlgorithmBcrypt},
		{"plaintext", AlgorithmUnknown},
		{"", AlgorithmUnknown},
	}
	for _, tc := range cases {
		if got := AlgorithmOf(tc.encoded); got != tc.want {
			t.Fatalf("AlgorithmOf(%q) = %s, want %s", tc.encoded, got, tc.want)
		}
	}
}

func TestBcryptVerify(t *testing.T) {
	hash, err := Bcrypt{}.Hash("hunter2!", 4)
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if AlgorithmOf(hash) != AlgorithmBcrypt {
		t.Fatalf("expected bcrypt prefix, got %s", hash)
	}
	if !(Bcrypt{}).Verify("hunter2!", hash) {
		t.Fatal("expected bcrypt verification to succeed")
	}
	if (Bcrypt{}).Verify("hunter3!", hash) {
		t.Fatal("expected wrong password to fail")
	}
	if (Bcrypt{}).Verify("hunter2!", "$argon2id$v=19$garbage") {
		t.Fatal("expected non-bcrypt hash to fail")
	}
}

func TestBcryptHashRejectsEmpty(t *testing.T) {
	if _, err := (Bcrypt{}).Hash("", 4); err == nil {
		t.Fatal("expected empty password to be rejected")
	}
}
