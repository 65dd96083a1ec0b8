package lang

import (
	"testing"

	"github.com/pemistahl/lingua-go"
)

func TestCodeToLanguage(t *testing.T) {
	tests := []struct {
		code string
		want lingua.Language
		ok   bool
	}{
		{code: "arabic", want: lingua.Arabic, ok: true},
		{code: "AR", want: lingua.Arabic, ok: true},
		{code: "english", want: lingua.English, ok: true},
		{code: "En", want: lingua.English, ok: true},
		{code: "french", want: lingua.French, ok: true},
		{code: "klingon", ok: false},
	}
	for _, tt := range tests {
		got, ok := CodeToLanguage(tt.code)
		if ok != tt.ok {
			t.Errorf("CodeToLanguage(%q) ok = %v, want %v", tt.code, ok, tt.ok)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("CodeToLanguage(%q) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestFilter_HasLanguage_WholeText(t *testing.T) {
	f := NewFilter()
	text := "This is a reasonably long passage of English text used for detection."
	if !f.HasLanguage(text, []lingua.Language{lingua.English}) {
		t.Error("expected English text to match English accept-list")
	}
}

func TestFilter_HasLanguage_NoMatch(t *testing.T) {
	f := NewFilter()
	text := "This is English text only."
	if f.HasLanguage(text, []lingua.Language{lingua.Arabic}) {
		t.Error("expected English-only text not to match Arabic-only accept-list")
	}
}
