package inventory

import "testing"

func TestVariantKey(t *testing.T) {
	t.Parallel()

	cases := []struct {
		color, size, want string
	}{
		{"Black", "M", "Black-M"},
		{"Black", "", "Black"},
		{"", "M", "M"},
		{"", "", "default"},
		{"  Black  ", " M ", "Black-M"},
	}
	for _, tc := range cases {
		if got := VariantKey(tc.color, tc.size); got != tc.want {
			t.Errorf("VariantKey(%q, %q) = %q, want %q", tc.color, tc.size, got, tc.want)
		}
	}
}
