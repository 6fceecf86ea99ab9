package rendering

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeLaTeX(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "Senior Go Engineer", "Senior Go Engineer"},
		{"backslash", `a\b`, `a\textbackslash{}b`},
		{"braces", "x{y}", `x\{y\}`},
		{"money and percent", "$100 & 5%", `\$100 \& 5\%`},
		{"hash and underscore", "C# snake_case", `C\# snake\_case`},
		{"caret and tilde", "2^3 ~ 8", `2\textasciicircum{}3 \textasciitilde{} 8`},
		{"escapes are not double escaped", `\{`, `\textbackslash{}\{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EscapeLaTeX(tt.in))
		})
	}
}
