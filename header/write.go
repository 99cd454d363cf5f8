package header

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
)

// Write emits the header of s to w, terminated by "end_header\n".
//
// The schema is validated first; nothing is written for an invalid schema.
func Write(w io.Writer, s *Schema) error {
	b, err := s.Bytes()
	if err != nil {
		return err
	}
	_, err = w.Write(b)

	return err
}

// Bytes returns the encoded header of s.
//
// Comments are written before obj_info lines, both ahead of the first element.
func (s *Schema) Bytes() ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	version := s.Version
	if version == "" {
		version = DefaultVersion
	}

	var buf bytes.Buffer
	buf.Grow(64 + 32*len(s.Elements))

	buf.WriteString(magicLine + "\n")
	fmt.Fprintf(&buf, "%s %s %s\n", kwFormat, s.Format, version)
	for _, c := range s.Comments {
		writeTextLine(&buf, kwComment, c)
	}
	for _, o := range s.ObjInfo {
		writeTextLine(&buf, kwObjInfo, o)
	}
	for _, e := range s.Elements {
		buf.WriteString(kwElement + " " + e.Name + " " + strconv.Itoa(e.Count) + "\n")
		for _, p := range e.Properties {
			buf.WriteString(p.String())
			buf.WriteByte('\n')
		}
	}
	buf.WriteString(kwEndOfHeader + "\n")

	return buf.Bytes(), nil
}

// writeTextLine writes a comment or obj_info line. Embedded line breaks would
// corrupt the header, so they are folded into spaces.
func writeTextLine(buf *bytes.Buffer, keyword, text string) {
	buf.WriteString(keyword)
	if text != "" {
		buf.WriteByte(' ')
		for i := 0; i < len(text); i++ {
			c := text[i]
			if c == '\n' || c == '\r' {
				c = ' '
			}
			buf.WriteByte(c)
		}
	}
	buf.WriteByte('\n')
}
