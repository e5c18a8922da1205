package ai

import "testing"

func TestCleanJSONResponse(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around", "Here you go:\n{\"a\":{\"b\":2}}\nThanks!", `{"a":{"b":2}}`},
		{"no object", "I can't help with that.", "I can't help with that."},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := cleanJSONResponse(c.in); got != c.want {
				t.Fatalf("cleanJSONResponse(%q) = %q; want %q", c.in, got, c.want)
			}
		})
	}
}
