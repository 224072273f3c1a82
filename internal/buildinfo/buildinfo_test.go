package buildinfo

import "testing"

func TestVersion(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name, in, want string
	}{
		{name: "empty", in: "", want: "dev"},
		{name: "tagged", in: "v1.2.0", want: "v1.2.0"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Version(tc.in); got != tc.want {
				t.Errorf("Version(%q): got %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
