package internal

import "testing"

func TestNewTokenShape(t *testing.T) {
	seen := make(map[string]struct{}, 64)
	for i := 0; i < 64; i++ {
		tok, err := NewToken()
		if err != nil {
			t.Fatalf("NewToken error: %v", err)
		}
		if len(tok) != 43 {
			t.Fatalf("expected 43 characters, got %d", len(tok))
		}
		if !WellFormedToken(tok) {
			t.Fatalf("expected %q to be well formed", tok)
		}
		if _, dup := seen[tok]; dup {
			t.Fatalf("duplicate token %q", tok)
		}
		seen[tok] = struct{}{}
	}
}

// FuzzWellFormedToken checks WellFormedToken never panics and only accepts
// 43-character base64url strings.
func FuzzWellFormedToken(f *testing.F) {
	f.Add("")
	f.Add("abc")
	f.Add("!!!not-base64!!!")
	f.Add("AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
	if tok, err := NewToken(); err == nil {
		f.Add(tok)
	}

	f.Fuzz(func(t *testing.T, input string) {
		if WellFormedToken(input) && len(input) != 43 {
			t.Fatalf("accepted token of length %d", len(input))
		}
	})
}
