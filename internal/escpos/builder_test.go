package escpos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_FramesText(t *testing.T) {
	out, err := Build("K1-0001\nBier 1x", Options{})
	require.NoError(t, err)

	want := append([]byte{0x1b, 0x40}, []byte("K1-0001\nBier 1x")...)
	want = append(want, 0x0a, 0x0a, 0x0a, 0x1d, 0x56, 0x41, 0x10)
	assert.Equal(t, want, out)
}

func TestBuild_CodePages(t *testing.T) {
	tests := []struct {
		name     string
		codePage string
		text     string
		want     []byte
	}{
		{name: "utf8 has no table select", codePage: "utf8", text: "ü", want: []byte{0x1b, 0x40, 0xc3, 0xbc}},
		{name: "cp437 umlaut", codePage: "cp437", text: "ü", want: []byte{0x1b, 0x40, 0x1b, 0x74, 0, 0x81}},
		{name: "cp850 a grave", codePage: "cp850", text: "à", want: []byte{0x1b, 0x40, 0x1b, 0x74, 2, 0x85}},
		{name: "cp858 euro", codePage: "CP858", text: "5€", want: []byte{0x1b, 0x40, 0x1b, 0x74, 19, '5', 0xd5}},
		{name: "cp866 cyrillic", codePage: "cp866", text: "Д", want: []byte{0x1b, 0x40, 0x1b, 0x74, 17, 0x84}},
		{name: "cp1252 euro", codePage: "cp1252", text: "€", want: []byte{0x1b, 0x40, 0x1b, 0x74, 16, 0x80}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Build(tt.text, Options{CodePage: tt.codePage})
			require.NoError(t, err)
			assert.Equal(t, tt.want, out[:len(out)-7])
			assert.Equal(t, []byte{0x0a, 0x0a, 0x0a, 0x1d, 0x56, 0x41, 0x10}, out[len(out)-7:])
		})
	}
}

func TestBuild_Errors(t *testing.T) {
	_, err := Build("x", Options{CodePage: "ebcdic"})
	assert.ErrorContains(t, err, "unsupported code page")

	_, err = Build("€", Options{CodePage: "cp437"})
	assert.ErrorContains(t, err, "failed to encode text as cp437")
}

func TestValidCodePage(t *testing.T) {
	assert.True(t, ValidCodePage(""))
	assert.True(t, ValidCodePage("UTF8"))
	assert.True(t, ValidCodePage("cp858"))
	assert.True(t, ValidCodePage("cp850"))
	assert.True(t, ValidCodePage("cp866"))
	assert.False(t, ValidCodePage("latin9"))
}
