package utils

import "testing"

func TestAtoiDefault(t *testing.T) {
	cases := []struct {
		s    string
		def  int
		want int
	}{
		{"", 10, 10},
		{"42", 0, 42},
		{"-13", 1, -13},
		{"0012", 99, 12},
		{"x", 5, 5},
		{" 42", 7, 7},
		{"999999999999999999999999", -1, -1},
	}

	for _, tc := range cases {
		if got := AtoiDefault(tc.s, tc.def); got != tc.want {
			t.Fatalf("AtoiDefault(%q, %d) = %d; want %d", tc.s, tc.def, got, tc.want)
		}
	}
}

func TestParseIndex(t *testing.T) {
	cases := map[string]int{
		"0":   0,
		"3":   3,
		"007": 7,
		"":    -1,
		"-1":  -1,
		"+2":  -1,
		"1e2": -1,
		"two": -1,
		" 1":  -1,
	}
	for in, want := range cases {
		if got := ParseIndex(in); got != want {
			t.Fatalf("ParseIndex(%q) = %d; want %d", in, got, want)
		}
	}
}
