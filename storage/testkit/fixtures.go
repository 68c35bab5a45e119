package testkit

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"xdao.co/aqua/revision"
)

// Key returns a deterministic signing key derived from b.
func Key(b byte) *secp256k1.PrivateKey {
	return secp256k1.PrivKeyFromBytes(bytes.Repeat([]byte{b}, 32))
}

// Time returns a fixed timestamp offset by sec seconds.
func Time(sec int) revision.Timestamp {
	return revision.NewTimestamp(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(sec) * time.Second))
}

// Chain builds a signed branch of n revisions for domain. The genesis
// revision carries a file payload.
func Chain(t *testing.T, domain string, n int) []revision.Revision {
	t.Helper()
	if n < 1 {
		t.Fatalf("Chain: n must be positive")
	}
	file, err := revision.NewFileContent(domain+".txt", []byte("payload of "+domain), "")
	if err != nil {
		t.Fatalf("NewFileContent: %v", err)
	}
	revs := make([]revision.Revision, 0, n)
	var prev *revision.Revision
	for i := 0; i < n; i++ {
		var f *revision.FileContent
		if i == 0 {
			f = file
		}
		content := revision.NewContent(map[string]string{"main": fmt.Sprintf("%s revision %d", domain, i)}, f)
		r, err := revision.New(domain, Time(i), content, prev).Sign(Key(0x42))
		if err != nil {
			t.Fatalf("Sign: %v", err)
		}
		revs = append(revs, r)
		prev = &revs[len(revs)-1]
	}
	return revs
}

// Child builds an unsigned revision following prev with the given text.
func Child(prev revision.Revision, text string) revision.Revision {
	content := revision.NewContent(map[string]string{"main": text}, nil)
	return revision.New(prev.Metadata.DomainID, Time(1000), content, &prev)
}
