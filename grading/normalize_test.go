package grading

import "testing"

func TestNormalizeOCRTextPlainASCII(t *testing.T) {
	in := "The answer is 42."
	if got := NormalizeOCRText(in); got != in {
		t.Fatalf("expected ASCII to pass through, got %q", got)
	}
}

func TestNormalizeOCRTextFullwidth(t *testing.T) {
	got := NormalizeOCRText("ＡＢＣ１２３")
	if got != "ABC123" {
		t.Fatalf("expected fullwidth folded to ASCII, got %q", got)
	}
}

func TestNormalizeOCRTextStripsControlRunes(t *testing.T) {
	got := NormalizeOCRText("left\x00right\x07")
	if got != "leftright" {
		t.Fatalf("expected control runes stripped, got %q", got)
	}
}

func TestNormalizeOCRTextKeepsNewlinesAndTabs(t *testing.T) {
	in := "line one\nline two\tend"
	if got := NormalizeOCRText(in); got != in {
		t.Fatalf("expected newlines and tabs preserved, got %q", got)
	}
}
