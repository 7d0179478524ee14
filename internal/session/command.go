package session

import (
	"strings"
)

// Command is one parsed line of client input.
//
// The grammar is "VERB [PARAM] [ignored...]": tokens are separated by
// whitespace, the verb is case-insensitive, and tokens after the second are
// dropped (Extra counts them). A blank line yields an empty Verb.
type Command struct {
	Verb     string
	Param    string
	HasParam bool
	Extra    int
	Raw      string
}

func Parse(line string) Command {
	raw := strings.TrimRight(line, " \t\r\n\v\f")
	cmd := Command{Raw: raw}

	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return cmd
	}
	cmd.Verb = strings.ToUpper(fields[0])
	if len(fields) > 1 {
		cmd.Param = fields[1]
		cmd.HasParam = true
	}
	if len(fields) > 2 {
		cmd.Extra = len(fields) - 2
	}
	return cmd
}

// Blank reports whether the line held no tokens at all.
func (c Command) Blank() bool {
	return c.Verb == ""
}
