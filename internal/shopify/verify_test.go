package shopify

import (
	"testing"
)

func TestVerifySignature(t *testing.T) {
	secret := "test-webhook-secret"
	body := []byte(`{"id":12345,"order_number":1001}`)

	validSig := Sign(body, secret)

	tests := []struct {
		name      string
		body      []byte
		signature string
		secret    string
		want      bool
	}{
		{
			name:      "valid signature",
			body:      body,
			signature: validSig,
			secret:    secret,
			want:      true,
		},
		{
			name:      "wrong signature",
			body:      body,
			signature: "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA=",
			secret:    secret,
			want:      false,
		},
		{
			name:      "tampered body",
			body:      []byte(`{"id":12345,"order_number":9999}`),
			signature: validSig,
			secret:    secret,
			want:      false,
		},
		{
			name:      "wrong secret",
			body:      body,
			signature: validSig,
			secret:    "other-secret",
			want:      false,
		},
		{
			name:      "empty signature",
			body:      body,
			signature: "",
			secret:    secret,
			want:      false,
		},
		{
			name:      "empty secret",
			body:      body,
			signature: validSig,
			secret:    "",
			want:      false,
		},
		{
			name:      "garbage signature",
			body:      body,
			signature: "not-base64-at-all!!!",
			secret:    secret,
			want:      false,
		},
		{
			name:      "empty body still verifiable",
			body:      []byte{},
			signature: Sign([]byte{}, secret),
			secret:    secret,
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerifySignature(tt.body, tt.signature, tt.secret); got != tt.want {
				t.Errorf("VerifySignature() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSign_Deterministic(t *testing.T) {
	body := []byte("test payload")
	secret := "test-secret"

	sig := Sign(body, secret)
	if sig == "" {
		t.Fatal("signature should not be empty")
	}
	if sig != Sign(body, secret) {
		t.Error("signature should be deterministic")
	}
	if sig == Sign([]byte("different"), secret) {
		t.Error("different body should produce different signature")
	}
	if sig == Sign(body, "different-secret") {
		t.Error("different secret should produce different signature")
	}
}

func TestVerifySignature_RoundTrip(t *testing.T) {
	// verify(body, sign(body, secret), secret) holds for arbitrary bytes.
	payloads := [][]byte{
		[]byte("{}"),
		[]byte(`{"id":1}`),
		{0x00, 0xff, 0x10, 0x80},
		[]byte("unicode: héllo wörld ☃"),
	}
	for _, body := range payloads {
		if !VerifySignature(body, Sign(body, "s3cret"), "s3cret") {
			t.Errorf("round trip failed for %q", body)
		}
	}
}
