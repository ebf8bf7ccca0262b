package channel

import "testing"

func TestSignatureDigest(t *testing.T) {
	key := "u9kqCo7qhKIQ8RML9xUGNmcZLVWmS8OsR2UN9jsZuaCY3aqPKGENRWmA36f9r47FHnqXlKuMvgsl0hnft7qCAN8iXHw94nHS4D6dxA07BX1lUjwuMJ0t73Z9wJY25Mpu"
	data := "f0e5d42369441879d7e176c96cbbff2d"
	want := "26f59cab4eab972ec7dacec39a4355a3d7627717"

	got := NewSignature(key).Digest(data)
	if got != want {
		t.Fatalf("Digest(%q) = %q, want %q", data, got, want)
	}
	if len(got) != 40 {
		t.Fatalf("Digest length = %d, want 40", len(got))
	}
}

func TestSignatureDigestMixedBody(t *testing.T) {
	key := "u9kqCo7qhKIQ8RML9xUGNmcZLVWmS8OsR2UN9jsZuaCY3aqPKGENRWmA36f9r47FHnqXlKuMvgsl0hnft7qCAN8iXHw94nHS4D6dxA07BX1lUjwuMJ0t73Z9wJY25Mpu"
	data := "3c8264bab589b0de7174e7b0523a40db:c18beb389c3e49131dbb2dde597df615"
	want := "e4e4307e2c1485c9310f3a726c5af17ba380b828"

	if got := NewSignature(key).Digest(data); got != want {
		t.Fatalf("Digest(%q) = %q, want %q", data, got, want)
	}
}

func TestSignatureEmptyKey(t *testing.T) {
	got := NewSignature("").Digest("anything")
	if len(got) != 40 {
		t.Fatalf("Digest length with empty key = %d, want 40", len(got))
	}
}

func TestSignatureKey(t *testing.T) {
	s := NewSignature("abc")
	if s.Key() != "abc" {
		t.Fatalf("Key() = %q, want %q", s.Key(), "abc")
	}
}
