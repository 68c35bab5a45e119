package revision

import (
	"encoding/json"
	"testing"

	"xdao.co/aqua/ident"
)

const rickroll = "TmV2ZXIgZ29ubmEgZ2l2ZSB5b3UgdXAsbmV2ZXIgZ29ubmEgbGV0IHlvdSBkb3duIQ=="

func TestFileData_StrictBase64(t *testing.T) {
	d, err := ParseFileData(rickroll)
	if err != nil {
		t.Fatalf("ParseFileData: %v", err)
	}
	if string(d) != "Never gonna give you up,never gonna let you down!" {
		t.Fatalf("decoded %q", d)
	}
	if d.String() != rickroll {
		t.Fatalf("re-encode mismatch")
	}

	for _, bad := range []string{
		rickroll[:20] + "\r\n" + rickroll[20:],
		rickroll[:20] + "\n" + rickroll[20:],
		" " + rickroll,
		rickroll + "\n",
		rickroll[:len(rickroll)-2],
		"TQ=",
		"TR==",
	} {
		if _, err := ParseFileData(bad); !IsKind(err, KindInvalidBase64) {
			t.Fatalf("ParseFileData(%q): expected InvalidBase64, got %v", bad, err)
		}
	}
}

func TestFileContent_JSON(t *testing.T) {
	fc, err := NewFileContent("a.txt", []byte("Never gonna give you up,never gonna let you down!"), "")
	if err != nil {
		t.Fatalf("NewFileContent: %v", err)
	}
	b, err := json.Marshal(fc)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"data":"` + rickroll + `","filename":"a.txt","size":49,"comment":""}`
	if string(b) != want {
		t.Fatalf("got %s\nwant %s", b, want)
	}

	var withNewline FileContent
	bad := `{"data":"` + rickroll[:10] + `\r\n` + rickroll[10:] + `","filename":"a.txt","size":49,"comment":""}`
	if err := json.Unmarshal([]byte(bad), &withNewline); !IsKind(err, KindInvalidBase64) {
		t.Fatalf("expected InvalidBase64 from JSON, got %v", err)
	}
}

func TestFileContent_Validate(t *testing.T) {
	fc, err := NewFileContent("a", []byte("abc"), "")
	if err != nil {
		t.Fatalf("NewFileContent: %v", err)
	}
	if err := fc.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	fc.Size = 4
	if err := fc.Validate(); !IsKind(err, KindSizeMismatch) {
		t.Fatalf("expected SizeMismatch, got %v", err)
	}
	if !fc.CID().Defined() {
		t.Fatalf("expected defined CID")
	}
}

func TestContentHash_LexicographicOrder(t *testing.T) {
	m := map[string]string{"b": "2", "a": "1", "c": "3"}
	want := ident.Sum([]byte("\x01a\x011\x01b\x012\x01c\x013"))
	if got := ContentHash(m); got != want {
		t.Fatalf("ContentHash = %s, want %s", got, want)
	}
	if ContentHash(nil) != ident.Sum(nil) {
		t.Fatalf("empty map must hash the empty string")
	}
}

func TestContentHash_BindsKeysAndBoundaries(t *testing.T) {
	base := map[string]string{"main": "ab"}
	for name, other := range map[string]map[string]string{
		"bytes moved to another key": {"main": "a", "x": "b"},
		"key renamed":                {"body": "ab"},
		"boundary shifted":           {"mai": "nab"},
		"empty key added":            {"": "", "main": "ab"},
	} {
		t.Run(name, func(t *testing.T) {
			if ContentHash(base) == ContentHash(other) {
				t.Fatalf("%v and %v share content_hash", base, other)
			}
		})
	}

	// Content swapped in under another revision's hash must not validate.
	c := NewContent(base, nil)
	c.Content = map[string]string{"main": "a", "x": "b"}
	if err := c.Validate(); !IsKind(err, KindContentHashMismatch) {
		t.Fatalf("expected ContentHashMismatch, got %v", err)
	}
}

func TestContent_Validate(t *testing.T) {
	fc, err := NewFileContent("a", []byte("abc"), "")
	if err != nil {
		t.Fatalf("NewFileContent: %v", err)
	}
	entries := map[string]string{"title": "x"}
	c := NewContent(entries, fc)
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if _, ok := entries[FileHashKey]; ok {
		t.Fatalf("NewContent must not modify the caller's map")
	}
	if c.Content[FileHashKey] != ident.Sum([]byte("abc")).String() {
		t.Fatalf("file_hash not recorded")
	}

	tampered := c
	tampered.File = &FileContent{Data: FileData("abd"), Filename: "a", Size: 3}
	if err := tampered.Validate(); !IsKind(err, KindFileHashMismatch) {
		t.Fatalf("expected FileHashMismatch, got %v", err)
	}

	tampered = c
	tampered.ContentHash[0] ^= 1
	if err := tampered.Validate(); !IsKind(err, KindContentHashMismatch) {
		t.Fatalf("expected ContentHashMismatch, got %v", err)
	}
	if RuleID(tampered.Validate()) != "AQUA-REV-005" {
		t.Fatalf("unexpected rule id")
	}
}

func TestTimestamp(t *testing.T) {
	ts, err := ParseTimestamp("20240301120005")
	if err != nil {
		t.Fatalf("ParseTimestamp: %v", err)
	}
	if ts.String() != "20240301120005" || ts.Time().Second() != 5 {
		t.Fatalf("unexpected timestamp %s", ts)
	}
	for _, bad := range []string{"", "2024030112000", "202403011200050", "2024-3-01120005", "20241301120005", "20240301250000", "+0240301120005"} {
		if _, err := ParseTimestamp(bad); !IsKind(err, KindInvalidTimestamp) {
			t.Fatalf("ParseTimestamp(%q): expected InvalidTimestamp, got %v", bad, err)
		}
	}
}
