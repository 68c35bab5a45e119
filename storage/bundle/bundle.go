// Package bundle packs one branch into a deterministic TAR archive and
// loads it back into any storage.Storage.
//
// Layout:
//
//	blobs/<cid>              file payloads, raw CIDv1 sha3-512
//	index.json               genesis hash and the branch order
//	revisions/<hash>.cbor    deterministic CBOR, file data stripped
//
// Entry order is lexicographic and TAR headers are normalized, so the same
// branch always yields the same bytes. Inspect prints a bundle for debugging.
package bundle

import (
	"archive/tar"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/ipfs/go-cid"

	"xdao.co/aqua/cidutil"
	"xdao.co/aqua/ident"
	"xdao.co/aqua/internal/codec"
	"xdao.co/aqua/revision"
	"xdao.co/aqua/storage"
)

// FormatVersion is the current bundle index schema version.
const FormatVersion = 1

var epoch0 = time.Unix(0, 0).UTC()

type indexJSON struct {
	Version   int          `json:"version"`
	Genesis   ident.Hash   `json:"genesis"`
	Revisions []ident.Hash `json:"revisions"`
	Blobs     []indexBlob  `json:"blobs,omitempty"`
}

type indexBlob struct {
	CID  string `json:"cid"`
	Size int    `json:"size"`
}

// Export writes the branch containing h to w.
func Export[C any](ctx context.Context, w io.Writer, s storage.Storage[C], h ident.Hash) error {
	b, err := s.GetBranch(ctx, h)
	if err != nil {
		return err
	}
	if err := b.Validate(); err != nil {
		return err
	}

	files := map[string][]byte{}
	blobs := map[string][]byte{}
	for _, rh := range b.Hashes {
		rev, err := s.Read(ctx, rh)
		if err != nil {
			return fmt.Errorf("bundle: read %s: %w", rh, err)
		}
		if rev.Hash() != rh {
			return fmt.Errorf("bundle: storage returned %s for %s", rev.Hash(), rh)
		}
		if f := rev.Content.File; f != nil {
			blobs[f.CID().String()] = f.Data
			stripped := *f
			stripped.Data = nil
			rev.Content.File = &stripped
		}
		body, err := codec.Marshal(rev)
		if err != nil {
			return err
		}
		files["revisions/"+rh.String()+".cbor"] = body
	}

	idx := indexJSON{Version: FormatVersion, Genesis: b.Genesis(), Revisions: b.Hashes}
	for id, data := range blobs {
		files["blobs/"+id] = data
		idx.Blobs = append(idx.Blobs, indexBlob{CID: id, Size: len(data)})
	}
	sort.Slice(idx.Blobs, func(i, j int) bool { return idx.Blobs[i].CID < idx.Blobs[j].CID })
	// idx holds only structs and slices, so encoding/json is deterministic.
	ib, err := json.Marshal(idx)
	if err != nil {
		return err
	}
	files["index.json"] = append(ib, '\n')

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := tar.NewWriter(w)
	for _, name := range names {
		if err := writeFile(tw, name, files[name]); err != nil {
			_ = tw.Close()
			return err
		}
	}
	return tw.Close()
}

// ImportOptions controls bundle import behavior.
type ImportOptions struct {
	// IgnoreUnknown skips unknown TAR entries. By default they are an error.
	IgnoreUnknown bool
}

// Import reads a bundle from r and stores its branch in s. It returns the
// genesis hash.
func Import[C any](ctx context.Context, r io.Reader, s storage.Storage[C]) (ident.Hash, error) {
	return ImportWithOptions(ctx, r, s, ImportOptions{})
}

// ImportWithOptions is Import with explicit options.
//
// Every blob must match its CID, every revision must match its hash, and the
// revisions must link in index order before anything is stored.
func ImportWithOptions[C any](ctx context.Context, r io.Reader, s storage.Storage[C], opts ImportOptions) (ident.Hash, error) {
	idx, revBodies, blobs, err := readEntries(r, opts)
	if err != nil {
		return ident.Hash{}, err
	}
	if idx == nil {
		return ident.Hash{}, errors.New("bundle: missing index.json")
	}
	if idx.Version != FormatVersion {
		return ident.Hash{}, fmt.Errorf("bundle: unsupported version %d", idx.Version)
	}
	if len(revBodies) != len(idx.Revisions) {
		return ident.Hash{}, fmt.Errorf("bundle: index lists %d revisions, archive holds %d", len(idx.Revisions), len(revBodies))
	}

	revs := make([]revision.Revision, 0, len(idx.Revisions))
	for _, h := range idx.Revisions {
		body, ok := revBodies[h]
		if !ok {
			return ident.Hash{}, fmt.Errorf("bundle: missing revision %s", h)
		}
		var rev revision.Revision
		if err := codec.Unmarshal(body, &rev); err != nil {
			return ident.Hash{}, fmt.Errorf("bundle: decode revision %s: %w", h, err)
		}
		if f := rev.Content.File; f != nil {
			fh, err := ident.ParseHash(rev.Content.Content[revision.FileHashKey])
			if err != nil {
				return ident.Hash{}, fmt.Errorf("bundle: revision %s file_hash: %w", h, err)
			}
			data, ok := blobs[cidutil.FromHash(fh).String()]
			if !ok {
				return ident.Hash{}, fmt.Errorf("bundle: missing payload of %s", h)
			}
			f.Data = data
			if err := rev.VerifyContent(); err != nil {
				return ident.Hash{}, fmt.Errorf("bundle: revision %s: %w", h, err)
			}
		}
		if rev.Hash() != h {
			return ident.Hash{}, fmt.Errorf("bundle: revision entry %s hashes to %s", h, rev.Hash())
		}
		revs = append(revs, rev)
	}
	if err := revision.VerifyChain(revs); err != nil {
		return ident.Hash{}, err
	}
	if revs[0].Hash() != idx.Genesis {
		return ident.Hash{}, fmt.Errorf("bundle: index genesis %s is not the first revision", idx.Genesis)
	}

	var branchCtx C
	for i, rev := range revs {
		if err := s.Store(ctx, rev, branchCtx); err != nil {
			return ident.Hash{}, fmt.Errorf("bundle: store %s: %w", rev.Hash(), err)
		}
		if i == 0 {
			if branchCtx, err = s.GetContext(ctx, rev.Hash()); err != nil {
				return ident.Hash{}, err
			}
		}
	}
	return idx.Genesis, nil
}

// Inspect writes a listing of the bundle in r to w: the index, then each
// revision in branch order as CBOR diagnostic notation, then the blobs.
// Nothing is verified beyond the blob CIDs.
func Inspect(r io.Reader, w io.Writer, opts ImportOptions) error {
	idx, revBodies, blobs, err := readEntries(r, opts)
	if err != nil {
		return err
	}
	if idx == nil {
		return errors.New("bundle: missing index.json")
	}
	fmt.Fprintf(w, "version %d\ngenesis %s\n", idx.Version, idx.Genesis)
	for i, h := range idx.Revisions {
		body, ok := revBodies[h]
		if !ok {
			return fmt.Errorf("bundle: missing revision %s", h)
		}
		diag, err := codec.Diagnose(body)
		if err != nil {
			return fmt.Errorf("bundle: revision %s: %w", h, err)
		}
		fmt.Fprintf(w, "revision %d %s\n  %s\n", i, h, diag)
	}
	ids := make([]string, 0, len(blobs))
	for id := range blobs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(w, "blob %s %d\n", id, len(blobs[id]))
	}
	return nil
}

func readEntries(r io.Reader, opts ImportOptions) (*indexJSON, map[ident.Hash][]byte, map[string][]byte, error) {
	var idx *indexJSON
	revs := map[ident.Hash][]byte{}
	blobs := map[string][]byte{}

	tr := tar.NewReader(r)
	for {
		h, err := tr.Next()
		if err == io.EOF {
			return idx, revs, blobs, nil
		}
		if err != nil {
			return nil, nil, nil, err
		}
		name := cleanTarPath(h.Name)
		if name == "" {
			return nil, nil, nil, fmt.Errorf("bundle: invalid entry path: %q", h.Name)
		}
		if h.Typeflag != tar.TypeReg {
			if opts.IgnoreUnknown {
				continue
			}
			return nil, nil, nil, fmt.Errorf("bundle: unexpected tar entry type: %v (%s)", h.Typeflag, name)
		}
		payload, err := io.ReadAll(tr)
		if err != nil {
			return nil, nil, nil, err
		}

		switch {
		case name == "index.json":
			if idx != nil {
				return nil, nil, nil, errors.New("bundle: duplicate index.json")
			}
			idx = new(indexJSON)
			if err := json.Unmarshal(payload, idx); err != nil {
				return nil, nil, nil, fmt.Errorf("bundle: index.json: %w", err)
			}
		case strings.HasPrefix(name, "revisions/") && strings.HasSuffix(name, ".cbor"):
			rh, err := ident.ParseHash(strings.TrimSuffix(strings.TrimPrefix(name, "revisions/"), ".cbor"))
			if err != nil {
				return nil, nil, nil, fmt.Errorf("bundle: %s: %w", name, err)
			}
			if _, dup := revs[rh]; dup {
				return nil, nil, nil, fmt.Errorf("bundle: duplicate revision entry: %s", rh)
			}
			revs[rh] = payload
		case strings.HasPrefix(name, "blobs/"):
			id, err := cid.Decode(strings.TrimPrefix(name, "blobs/"))
			if err != nil || !id.Defined() {
				return nil, nil, nil, storage.ErrInvalidCID
			}
			got, err := cidutil.CIDv1RawSHA3512(payload)
			if err != nil {
				return nil, nil, nil, err
			}
			if !got.Equals(id) {
				return nil, nil, nil, storage.ErrCIDMismatch
			}
			if _, dup := blobs[id.String()]; dup {
				return nil, nil, nil, fmt.Errorf("bundle: duplicate blob entry: %s", id)
			}
			blobs[id.String()] = payload
		default:
			if opts.IgnoreUnknown {
				continue
			}
			return nil, nil, nil, fmt.Errorf("bundle: unknown entry: %s", name)
		}
	}
}

func writeFile(tw *tar.Writer, name string, content []byte) error {
	hdr := &tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(content)),
		ModTime:  epoch0,
		Typeflag: tar.TypeReg,
		Format:   tar.FormatUSTAR,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err := io.Copy(tw, bytes.NewReader(content))
	return err
}

// cleanTarPath normalizes name and rejects empty, dot and dot-dot segments.
func cleanTarPath(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimPrefix(name, "./")
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		return ""
	}
	for _, part := range strings.Split(name, "/") {
		if part == "" || part == "." || part == ".." {
			return ""
		}
	}
	return name
}
