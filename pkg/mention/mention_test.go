package mention

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract(t *testing.T) {
	extractor := NewExtractor(nil)

	cases := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "single mention",
			text: "Hello students! @studentagnes@gmail.com",
			want: []string{"studentagnes@gmail.com"},
		},
		{
			name: "multiple mentions keep order",
			text: "Hey @may@email.com and @max@email.com, see you",
			want: []string{"may@email.com", "max@email.com"},
		},
		{
			name: "duplicates collapse",
			text: "@may@email.com @may@email.com",
			want: []string{"may@email.com"},
		},
		{
			name: "invalid addresses ignored",
			text: "@notanemail and @also@ and @@x.com",
			want: nil,
		},
		{
			name: "plain email without at prefix ignored",
			text: "contact may@email.com",
			want: nil,
		},
		{
			name: "trailing punctuation trimmed",
			text: "Thanks @matt@email.com.",
			want: []string{"matt@email.com"},
		},
		{
			name: "comma joined mentions",
			text: "Hi @a@x.com,@b@x.com",
			want: []string{"a@x.com", "b@x.com"},
		},
		{
			name: "mention in parentheses",
			text: "(@a@x.com)",
			want: []string{"a@x.com"},
		},
		{
			name: "mention after punctuation",
			text: "Hey,@a@x.com",
			want: []string{"a@x.com"},
		},
		{
			name: "mentions separated by semicolon and quotes",
			text: `cc "@a@x.com";@b@x.com!`,
			want: []string{"a@x.com", "b@x.com"},
		},
		{
			name: "whitespace separated mentions",
			text: "@a@x.com @b@x.com",
			want: []string{"a@x.com", "b@x.com"},
		},
		{
			name: "no mentions",
			text: "Hey everybody",
			want: nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, extractor.Extract(tc.text))
		})
	}
}
