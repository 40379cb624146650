package generator

import "testing"

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain code untouched",
			in:   "import requests\nprint('ok')",
			want: "import requests\nprint('ok')",
		},
		{
			name: "python fence",
			in:   "```python\nimport requests\nprint('ok')\n```",
			want: "import requests\nprint('ok')",
		},
		{
			name: "bare fence",
			in:   "```\nprint('ok')\n```",
			want: "print('ok')",
		},
		{
			name: "surrounding whitespace",
			in:   "\n\n```python\nprint('ok')\n```\n\n",
			want: "print('ok')",
		},
		{
			name: "opening fence only",
			in:   "```python\nprint('ok')",
			want: "print('ok')",
		},
		{
			name: "single line fenced",
			in:   "```print('ok')```",
			want: "print('ok')",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripFences(tt.in); got != tt.want {
				t.Errorf("StripFences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
