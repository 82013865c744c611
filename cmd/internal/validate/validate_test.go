package validate

import "testing"

func TestNonEmptyString(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   any
		want bool
	}{
		{in: "x", want: true},
		{in: "  padded  ", want: true},
		{in: "", want: false},
		{in: "   ", want: false},
		{in: 42, want: false},
		{in: nil, want: false},
	}

	for _, tc := range cases {
		if got := NonEmptyString(tc.in); got != tc.want {
			t.Fatalf("NonEmptyString(%#v)=%v want=%v", tc.in, got, tc.want)
		}
	}
}

func TestEmail(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   any
		want bool
	}{
		{in: "a@example.com", want: true},
		{in: "first.last+tag@sub.example.org", want: true},
		{in: " a@example.com ", want: true},
		{in: "a@localhost", want: false},
		{in: "Ann <a@example.com>", want: false},
		{in: "no-at-sign", want: false},
		{in: "@example.com", want: false},
		{in: "", want: false},
		{in: 7, want: false},
	}

	for _, tc := range cases {
		if got := Email(tc.in); got != tc.want {
			t.Fatalf("Email(%#v)=%v want=%v", tc.in, got, tc.want)
		}
	}
}
