package revision

import (
	"encoding/binary"
	"maps"
	"slices"

	"xdao.co/aqua/ident"
)

// FileHashKey is the content entry that carries a file payload's hash.
const FileHashKey = "file_hash"

// Content is a revision's payload: a string map, an optional file and the
// hash binding them.
type Content struct {
	File        *FileContent      `json:"file,omitempty"`
	Content     map[string]string `json:"content"`
	ContentHash ident.Hash        `json:"content_hash"`
}

// ContentHash returns SHA3-512 over the entries of m in lexicographic key
// order, each written as uvarint(len(key)) ‖ key ‖ uvarint(len(value)) ‖
// value. Every distinct map has a distinct encoding.
func ContentHash(m map[string]string) ident.Hash {
	var buf []byte
	for _, k := range slices.Sorted(maps.Keys(m)) {
		buf = appendField(buf, k)
		buf = appendField(buf, m[k])
	}
	return ident.Sum(buf)
}

func appendField(buf []byte, s string) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(s)))
	return append(buf, s...)
}

// NewContent copies entries, records file_hash when file is set, and computes
// the content hash.
func NewContent(entries map[string]string, file *FileContent) Content {
	m := make(map[string]string, len(entries)+1)
	maps.Copy(m, entries)
	if file != nil {
		m[FileHashKey] = file.Hash().String()
	}
	return Content{File: file, Content: m, ContentHash: ContentHash(m)}
}

// Validate checks the file payload and the content hash.
func (c Content) Validate() error {
	if c.File != nil {
		if err := c.File.Validate(); err != nil {
			return err
		}
		want := c.File.Hash().String()
		if got, ok := c.Content[FileHashKey]; !ok || got != want {
			return newError(KindFileHashMismatch, "file_hash does not match file data")
		}
	}
	if got := ContentHash(c.Content); got != c.ContentHash {
		return newError(KindContentHashMismatch, "content_hash does not match content")
	}
	return nil
}
