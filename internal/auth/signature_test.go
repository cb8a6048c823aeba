package auth

import "testing"

func TestVerify(t *testing.T) {
	v := NewVerifier("topsecret")
	body := []byte(`{"transcriptId":"tr-1"}`)

	if !v.Verify(body, v.Sign(body)) {
		t.Fatal("valid signature rejected")
	}
	if v.Verify([]byte(`{"transcriptId":"tr-2"}`), v.Sign(body)) {
		t.Fatal("signature accepted for a different body")
	}
	if v.Verify(body, "") {
		t.Fatal("empty signature accepted")
	}
	if v.Verify(body, "zzzz-not-hex") {
		t.Fatal("non-hex signature accepted")
	}

	other := NewVerifier("othersecret")
	if other.Verify(body, v.Sign(body)) {
		t.Fatal("signature accepted across secrets")
	}

	unset := NewVerifier("")
	if unset.Verify(body, unset.Sign(body)) {
		t.Fatal("verifier without a secret must fail closed")
	}
}
