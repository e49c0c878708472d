package filetype

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsKnown(t *testing.T) {
	assert.True(t, IsKnown("py"))
	assert.True(t, IsKnown("none"))
	assert.False(t, IsKnown("cobol"))
	assert.False(t, IsKnown(""))
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		tag  string
		want *string
	}{
		{"none", nil},
		{"bf", ptr("befunge")},
		{"b", ptr("bf")},
		{"fs", ptr("f#")},
		{"ml", ptr("ocaml")},
		{"img", ptr("image")},
		{"txt", ptr("text")},
		{"py", ptr("py")},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			got := Normalize(tt.tag)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func TestInfer(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content []byte
		want    *string
	}{
		{"python source", "quine.py", []byte("print(1)"), ptr("py")},
		{"header counts as c", "lib.h", []byte("int x;"), ptr("c")},
		{"image by extension", "art.PNG", []byte{0x89, 0x50}, ptr("image")},
		{"unknown extension falls back to text", "notes.xyz", []byte("hi"), ptr("text")},
		{"no extension falls back to text", "Makefile", []byte("all:"), ptr("text")},
		{"empty file untagged", "empty.py", nil, nil},
		{"oversized file untagged", "huge.py", bytes.Repeat([]byte("a"), DisplayCeiling+1), nil},
		{"exactly at ceiling still tagged", "edge.py", bytes.Repeat([]byte("a"), DisplayCeiling), ptr("py")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Infer(tt.file, tt.content)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func ptr[T any](v T) *T { return &v }
