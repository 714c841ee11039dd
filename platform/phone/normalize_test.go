package phone

import "testing"

func TestNormalizeE164(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"us national format", "(415) 555-2671", "+14155552671"},
		{"already e164", "+14155552671", "+14155552671"},
		{"international prefix kept", "+31 20 794 0500", "+31207940500"},
		{"garbage returned trimmed", "  not-a-number  ", "not-a-number"},
		{"empty", "   ", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeE164(tc.in); got != tc.want {
				t.Fatalf("NormalizeE164(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
