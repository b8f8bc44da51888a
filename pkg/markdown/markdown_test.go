package markdown

import "testing"

func TestEscape(t *testing.T) {
	cases := map[string]string{
		"plain":         "plain",
		"a_b*c":         `a\_b\*c`,
		"1.5!":          `1\.5\!`,
		"[x](y)":        `\[x\]\(y\)`,
		`back\slash`:    `back\\slash`,
		"Спасибо 🎉":    "Спасибо 🎉",
		"price: 50 - 1": `price: 50 \- 1`,
	}
	for in, want := range cases {
		if got := Escape(in); got != want {
			t.Fatalf("Escape(%q) = %q want %q", in, got, want)
		}
	}
}

func TestCode(t *testing.T) {
	if got := Code("ABC123"); got != "`ABC123`" {
		t.Fatalf("unexpected code span %q", got)
	}
	if got := Code("a`b\\c_d"); got != "`a\\`b\\\\c_d`" {
		t.Fatalf("unexpected code span %q", got)
	}
}
