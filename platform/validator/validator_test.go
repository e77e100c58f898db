package validator

import "testing"

func TestNotBlankRejectsWhitespace(t *testing.T) {
	type request struct {
		Name string `validate:"notblank"`
	}

	val := New()
	if err := val.Struct(request{Name: "   "}); err == nil {
		t.Fatal("expected whitespace-only value to fail notblank")
	}
	if err := val.Struct(request{Name: " Ana "}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
