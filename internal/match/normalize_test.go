package match

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"particle stripped", "스테이지는", "스테이지"},
		{"no particle", "스테이지", "스테이지"},
		{"case folded", "K8S", "k8s"},
		{"whitespace removed", "보스 스테이지", "보스스테이지"},
		{"longest particle first", "던전에서", "던전"},
		{"only one particle", "스테이지는는", "스테이지는"},
		{"particle then whitespace", "레벨 디자인의", "레벨디자인"},
		{"bare particle kept", "의", "의"},
		{"empty", "   ", ""},
		{"full width folded", "ＡＢＣ", "abc"},
		{"trimmed", "  Gold  ", "gold"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalize_Equivalence(t *testing.T) {
	if Normalize("스테이지는") != Normalize("스테이지") {
		t.Error("expected particle variant to normalize to the same key")
	}
	if Normalize("K8S") != Normalize("k8s") {
		t.Error("expected case variants to normalize to the same key")
	}
}
