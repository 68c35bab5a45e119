package revision

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/ipfs/go-cid"

	"xdao.co/aqua/cidutil"
	"xdao.co/aqua/ident"
)

// FileData is a file payload. Its JSON form is standard padded base64.
//
// Decoding is strict: whitespace anywhere in the string is rejected, as are
// non-canonical padding bits.
type FileData []byte

var fileEncoding = base64.StdEncoding.Strict()

// ParseFileData decodes the canonical base64 form.
func ParseFileData(s string) (FileData, error) {
	if i := strings.IndexAny(s, " \t\r\n\v\f"); i >= 0 {
		return nil, newError(KindInvalidBase64, fmt.Sprintf("whitespace at offset %d", i))
	}
	b, err := fileEncoding.DecodeString(s)
	if err != nil {
		return nil, wrapError(KindInvalidBase64, "invalid base64", err)
	}
	return FileData(b), nil
}

func (d FileData) String() string { return fileEncoding.EncodeToString(d) }

func (d FileData) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *FileData) UnmarshalText(text []byte) error {
	parsed, err := ParseFileData(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// FileContent is an optional file payload attached to a revision.
type FileContent struct {
	Data     FileData `json:"data"`
	Filename string   `json:"filename"`
	Size     uint32   `json:"size"`
	Comment  string   `json:"comment"`
}

// NewFileContent builds a FileContent whose Size matches data.
func NewFileContent(filename string, data []byte, comment string) (*FileContent, error) {
	if uint64(len(data)) > uint64(^uint32(0)) {
		return nil, newError(KindSizeMismatch, fmt.Sprintf("file of %d bytes exceeds size field", len(data)))
	}
	return &FileContent{
		Data:     append(FileData(nil), data...),
		Filename: filename,
		Size:     uint32(len(data)),
		Comment:  comment,
	}, nil
}

// Hash returns the SHA3-512 of the payload, recorded as file_hash.
func (f *FileContent) Hash() ident.Hash { return ident.Sum(f.Data) }

// CID returns the payload's raw CIDv1 (sha3-512).
func (f *FileContent) CID() cid.Cid { return cidutil.FromHash(f.Hash()) }

// Validate checks that Size equals the payload length.
func (f *FileContent) Validate() error {
	if uint64(f.Size) != uint64(len(f.Data)) {
		return newError(KindSizeMismatch, fmt.Sprintf("size %d, payload %d bytes", f.Size, len(f.Data)))
	}
	return nil
}
