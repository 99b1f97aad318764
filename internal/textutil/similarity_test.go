package textutil_test

import (
	"testing"

	"streamguide/internal/textutil"
)

func TestTitleWordsDropsShortWordsAndPunctuation(t *testing.T) {
	got := textutil.TitleWords("The Lord of the Rings: Schindler's Part 2")
	want := []string{"the", "lord", "rings", "schindlers", "part"}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for _, word := range want {
		if _, ok := got[word]; !ok {
			t.Fatalf("missing %q in %v", word, got)
		}
	}
}

func TestJaccard(t *testing.T) {
	tests := []struct {
		a, b   string
		want   float64
		wantOK bool
	}{
		{"Casablanca", "Casablanca", 1, true},
		{"Schindler's List", "Schindlers List", 1, true},
		{"The Thing", "The Thing from Another", 0.5, true},
		{"Casablanca", "Lethal Weapon", 0, true},
		{"Up", "Casablanca", 0, false},
	}
	for _, tt := range tests {
		got, ok := textutil.Jaccard(tt.a, tt.b)
		if ok != tt.wantOK || got != tt.want {
			t.Fatalf("Jaccard(%q, %q) = %v, %v; want %v, %v", tt.a, tt.b, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestTitlesAgree(t *testing.T) {
	if textutil.TitlesAgree("Casablanca", "Lethal Weapon 4", 0.25) {
		t.Fatal("expected disjoint titles to disagree")
	}
	if !textutil.TitlesAgree("M", "Casablanca", 0.25) {
		t.Fatal("expected untokenizable title to be accepted")
	}
	if !textutil.TitlesAgree("The Godfather Part II", "The Godfather: Part II", 0.25) {
		t.Fatal("expected punctuation variants to agree")
	}
}

func TestNormalizeTitle(t *testing.T) {
	if got := textutil.NormalizeTitle("Spider-Man: No Way Home"); got != "spidermannowayhome" {
		t.Fatalf("unexpected normalized title %q", got)
	}
}

func TestDisplayTitle(t *testing.T) {
	tests := map[string]string{
		"the godfather":   "The Godfather",
		"  CASABLANCA  ":  "Casablanca",
		"The Dark Knight": "The Dark Knight",
		"M*A*S*H season":  "M*A*S*H season",
	}
	for in, want := range tests {
		if got := textutil.DisplayTitle(in); got != want {
			t.Fatalf("DisplayTitle(%q) = %q, want %q", in, got, want)
		}
	}
}
