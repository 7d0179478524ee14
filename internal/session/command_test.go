package session

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Command
	}{
		{"verb only", "time", Command{Verb: "TIME", Raw: "time"}},
		{"mixed case", "ExIt", Command{Verb: "EXIT", Raw: "ExIt"}},
		{"verb and param", "INFO 3", Command{Verb: "INFO", Param: "3", HasParam: true, Raw: "INFO 3"}},
		{"trailing newline", "INFO 3\r\n", Command{Verb: "INFO", Param: "3", HasParam: true, Raw: "INFO 3"}},
		{"leading spaces kept in raw", "  name", Command{Verb: "NAME", Raw: "  name"}},
		{"extra tokens ignored", "INFO 3 please now", Command{Verb: "INFO", Param: "3", HasParam: true, Extra: 2, Raw: "INFO 3 please now"}},
		{"tabs separate tokens", "info\t2", Command{Verb: "INFO", Param: "2", HasParam: true, Raw: "info\t2"}},
		{"blank", "   \n", Command{Raw: ""}},
		{"empty", "", Command{}},
		{"param case preserved", "foo Bar", Command{Verb: "FOO", Param: "Bar", HasParam: true, Raw: "foo Bar"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.line)
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
		})
	}
}

func TestBlank(t *testing.T) {
	if !Parse(" \t ").Blank() {
		t.Error("whitespace-only line should be blank")
	}
	if Parse("x").Blank() {
		t.Error("non-empty line should not be blank")
	}
}
