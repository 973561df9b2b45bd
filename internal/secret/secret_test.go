package secret

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
)

const raw = "sk-live-0123456789"

func TestSecretNeverRendered(t *testing.T) {
	s := New(raw)

	type holder struct {
		Token String
	}

	cases := map[string]string{
		"%v":  fmt.Sprintf("%v", s),
		"%s":  fmt.Sprintf("%s", s),
		"%q":  fmt.Sprintf("%q", s),
		"%#v": fmt.Sprintf("%#v", s),
		"%+v": fmt.Sprintf("%+v", holder{Token: s}),
		"err": fmt.Errorf("send failed with %v", s).Error(),
	}
	for name, out := range cases {
		if strings.Contains(out, raw) {
			t.Errorf("%s leaked secret: %q", name, out)
		}
	}

	b, err := json.Marshal(holder{Token: s})
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	if strings.Contains(string(b), raw) {
		t.Fatalf("json leaked secret: %s", b)
	}
}

func TestSecretExposeAndUnmarshal(t *testing.T) {
	var s String
	if !s.IsZero() {
		t.Fatal("zero value should be empty")
	}
	if err := s.UnmarshalText([]byte(raw)); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if s.Expose() != raw {
		t.Fatalf("Expose = %q, want %q", s.Expose(), raw)
	}
	if s.IsZero() {
		t.Fatal("secret should not be zero after unmarshal")
	}
}
