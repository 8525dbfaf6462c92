package contact

import (
	"strings"
	"unicode"
)

// Parse builds a Record for a task from its notes.
func Parse(taskID, taskName, creatorID, notes string) Record {
	return Record{
		TaskID:    taskID,
		TaskName:  taskName,
		CreatorID: creatorID,
		Fields:    ParseNote(notes),
	}
}

// ParseNote extracts contact fields from a note body laid out as:
//
//	<first name> <last name>
//	<locality>
//	<region>
//	<phone>
//	<photo flag>
//
// Notes with fewer than NoteLines lines yield SentinelFields. Lines past the
// fifth are ignored. ParseNote never fails.
func ParseNote(notes string) Fields {
	lines := splitLines(notes)
	if len(lines) < NoteLines {
		return SentinelFields()
	}

	first, last := splitName(lines[0])
	return Fields{
		FirstName: first,
		LastName:  last,
		Locality:  lines[1],
		Region:    lines[2],
		Phone:     lines[3],
		PhotoFlag: lines[4],
	}
}

// lineBreaks maps every line boundary to \n: the ASCII separators plus
// NEL, LINE SEPARATOR and PARAGRAPH SEPARATOR. \r\n is listed before \r so
// it counts as one break.
var lineBreaks = strings.NewReplacer(
	"\r\n", "\n",
	"\r", "\n",
	"\v", "\n",
	"\f", "\n",
	"\x1c", "\n",
	"\x1d", "\n",
	"\x1e", "\n",
	"\u0085", "\n",
	"\u2028", "\n",
	"\u2029", "\n",
)

// splitLines splits s on line boundaries. A trailing line break does not
// produce an extra empty line.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	s = lineBreaks.Replace(s)
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}

// splitName splits line on its first whitespace run. The remainder is the
// last name and may itself contain spaces; it is empty when the line holds a
// single token.
func splitName(line string) (first, last string) {
	line = strings.TrimLeftFunc(line, unicode.IsSpace)
	i := strings.IndexFunc(line, unicode.IsSpace)
	if i < 0 {
		return line, ""
	}
	return line[:i], strings.TrimLeftFunc(line[i:], unicode.IsSpace)
}
