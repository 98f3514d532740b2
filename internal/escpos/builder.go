// Package escpos turns plain receipt text into ESC/POS bytes for thermal
// receipt printers.
package escpos

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

var (
	cmdInitialize = []byte{0x1b, 0x40}             // ESC @
	cmdCodeTable  = []byte{0x1b, 0x74}             // ESC t n
	cmdFeed       = []byte{0x0a, 0x0a, 0x0a}       // three line feeds before the cut
	cmdPartialCut = []byte{0x1d, 0x56, 0x41, 0x10} // GS V A n
)

const (
	CodePageUTF8   = "utf8"
	CodePageCP437  = "cp437"
	CodePageCP850  = "cp850"
	CodePageCP858  = "cp858"
	CodePageCP866  = "cp866"
	CodePageCP1252 = "cp1252"
)

// codePage pairs an encoder with the ESC t character table that prints it.
type codePage struct {
	charmap *charmap.Charmap
	table   byte
}

var codePages = map[string]codePage{
	CodePageCP437:  {charmap.CodePage437, 0},
	CodePageCP850:  {charmap.CodePage850, 2},
	CodePageCP1252: {charmap.Windows1252, 16},
	CodePageCP866:  {charmap.CodePage866, 17},
	CodePageCP858:  {charmap.CodePage858, 19},
}

type Options struct {
	CodePage string
}

// ValidCodePage reports whether name is a code page Build understands.
func ValidCodePage(name string) bool {
	name = strings.ToLower(name)
	if name == "" || name == CodePageUTF8 {
		return true
	}
	_, ok := codePages[name]
	return ok
}

// Build frames text between a printer reset and a feed-and-cut. For a single
// byte code page the matching character table is selected after the reset,
// which otherwise leaves the printer on table 0.
func Build(text string, opts Options) ([]byte, error) {
	body, table, err := encode(text, opts.CodePage)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(len(cmdInitialize) + len(cmdCodeTable) + 1 + len(body) + len(cmdFeed) + len(cmdPartialCut))
	buf.Write(cmdInitialize)
	if table >= 0 {
		buf.Write(cmdCodeTable)
		buf.WriteByte(byte(table))
	}
	buf.Write(body)
	buf.Write(cmdFeed)
	buf.Write(cmdPartialCut)
	return buf.Bytes(), nil
}

// encode returns the text bytes and the ESC t table to select, or -1 when
// the bytes are passed through as UTF-8.
func encode(text, name string) ([]byte, int, error) {
	name = strings.ToLower(name)
	if name == "" || name == CodePageUTF8 {
		return []byte(text), -1, nil
	}
	cp, ok := codePages[name]
	if !ok {
		return nil, -1, fmt.Errorf("unsupported code page: %s", name)
	}
	out, err := cp.charmap.NewEncoder().Bytes([]byte(text))
	if err != nil {
		return nil, -1, fmt.Errorf("failed to encode text as %s: %w", name, err)
	}
	return out, int(cp.table), nil
}
