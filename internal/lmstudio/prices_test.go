package lmstudio

import (
	"strings"
	"testing"
)

func TestExtractPrices(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantUSD    string
		wantCasino string
	}{
		{
			name:    "standard price",
			text:    "Hello,\nprice\nusd\n500\nthanks",
			wantUSD: "500",
		},
		{
			name:       "casino price alone is not the standard price",
			text:       "casino\nprice\nusd\n800\nregards",
			wantCasino: "800",
		},
		{
			name:       "both prices",
			text:       "casino\nprice\nusd\n800\n\nprice\nusd\n500\n",
			wantUSD:    "500",
			wantCasino: "800",
		},
		{
			name:    "case insensitive",
			text:    "Price\nUSD\n750",
			wantUSD: "750",
		},
		{
			name:    "extra spacing between labels",
			text:    "price  \n  usd  \n  650",
			wantUSD: "650",
		},
		{
			name: "no price blocks",
			text: "no numbers stated here",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotUSD, gotCasino := extractPrices(tt.text)
			if gotUSD != tt.wantUSD {
				t.Errorf("price_usd = %q, want %q", gotUSD, tt.wantUSD)
			}
			if gotCasino != tt.wantCasino {
				t.Errorf("price_usd_casino = %q, want %q", gotCasino, tt.wantCasino)
			}
		})
	}
}

func TestDigitsOnly(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"$1,200", "1200"},
		{"500", "500"},
		{"USD 750.00", "75000"},
		{"", ""},
		{"none", ""},
	}

	for _, tt := range tests {
		if got := digitsOnly(tt.in); got != tt.want {
			t.Errorf("digitsOnly(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuildPromptEmbedsBody(t *testing.T) {
	body := "price\nusd\n500"
	prompt := buildPrompt(body, nil)

	if !strings.Contains(prompt, body) {
		t.Errorf("prompt does not contain the email body")
	}
	if !strings.Contains(prompt, "Return ONLY the JSON response.") {
		t.Errorf("prompt missing the trailing instruction")
	}
}

func TestBuildPromptAppendsThreadContext(t *testing.T) {
	prompt := buildPrompt("body", map[string]string{
		"b_key": "two",
		"a_key": "one",
	})

	if !strings.Contains(prompt, "Thread context:") {
		t.Fatalf("prompt missing thread context section:\n%s", prompt)
	}
	aAt := strings.Index(prompt, "a_key: one")
	bAt := strings.Index(prompt, "b_key: two")
	if aAt == -1 || bAt == -1 || aAt > bAt {
		t.Errorf("context keys missing or unsorted (a at %d, b at %d)", aAt, bAt)
	}
}
