package validators

import (
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/tourbook-backend/pkg/errors"
)

type loginBody struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func TestDecodeJSONBody(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"email":"a@b.io","password":"x"}`))
	var body loginBody
	if err := DecodeJSONBody(r, &body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body.Email != "a@b.io" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestDecodeJSONBodyRejects(t *testing.T) {
	cases := map[string]string{
		"empty":   ``,
		"unknown": `{"email":"a@b.io","password":"x","role":"admin"}`,
		"syntax":  `{"email":`,
		"invalid": `{"email":"nope","password":""}`,
	}
	for name, raw := range cases {
		r := httptest.NewRequest("POST", "/", strings.NewReader(raw))
		var body loginBody
		err := DecodeJSONBody(r, &body)
		if pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestParseUUID(t *testing.T) {
	if _, err := ParseUUID("6f1c2a4e-0d7b-4b8e-9d2a-1f0a3c5e7b9d", "id"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseUUID("5c88fa8cf4afda39709c2955", "id"); pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
