package verify

import (
	"context"
	"errors"
	"testing"

	"xdao.co/aqua/ident"
	"xdao.co/aqua/revision"
	"xdao.co/aqua/storage"
	"xdao.co/aqua/storage/memstore"
	"xdao.co/aqua/storage/testkit"
)

func storeAll(t *testing.T, s *memstore.Store, revs []revision.Revision) {
	t.Helper()
	ctx := context.Background()
	for _, r := range revs {
		if err := s.Store(ctx, r, revs[0].Hash()); err != nil {
			t.Fatalf("Store: %v", err)
		}
	}
}

func outcome(rr RevisionReport, name CheckName) Outcome {
	for _, c := range rr.Checks {
		if c.Name == name {
			return c.Outcome
		}
	}
	return ""
}

func TestBranch_ValidChain(t *testing.T) {
	s := memstore.New()
	revs := testkit.Chain(t, "valid", 3)
	storeAll(t, s, revs)

	report, err := Branch[ident.Hash](context.Background(), s, revs[1].Hash())
	if err != nil {
		t.Fatalf("Branch: %v", err)
	}
	if !report.OK() {
		f, _ := report.FirstFailure()
		t.Fatalf("valid chain reported failures: %+v", f.Failures())
	}
	if report.Genesis != revs[0].Hash() || report.Target != revs[1].Hash() {
		t.Fatalf("report identifies wrong branch")
	}
	if len(report.Revisions) != 3 {
		t.Fatalf("report has %d revisions, want 3", len(report.Revisions))
	}
	for i, rr := range report.Revisions {
		if rr.Index != i || rr.Hash != revs[i].Hash() {
			t.Fatalf("revision %d misreported", i)
		}
		if rr.Signer == nil || *rr.Signer != revs[i].Signature.WalletAddress {
			t.Fatalf("revision %d signer not reported", i)
		}
		if outcome(rr, CheckWitness) != Absent {
			t.Fatalf("revision %d witness outcome %q", i, outcome(rr, CheckWitness))
		}
	}
}

func TestBranch_StorageErrorsAbort(t *testing.T) {
	s := memstore.New()
	_, err := Branch[ident.Hash](context.Background(), s, ident.Sum([]byte("absent")))
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("got %v want ErrNotFound", err)
	}
}

func TestRevision_ReportsEveryFailure(t *testing.T) {
	revs := testkit.Chain(t, "tampered", 2)
	r := revs[1]
	r.Content.Content = map[string]string{"main": "forged"}
	sig := *r.Signature
	sig.SignatureHash = ident.Sum([]byte("other"))
	r.Signature = &sig

	rr := Revision(r, &revs[0])
	if rr.OK() {
		t.Fatalf("tampered revision reported OK")
	}
	if outcome(rr, CheckContent) != Failed {
		t.Fatalf("content outcome %q", outcome(rr, CheckContent))
	}
	if outcome(rr, CheckLinkage) != Passed || outcome(rr, CheckMetadata) != Passed {
		t.Fatalf("linkage/metadata outcomes %q/%q", outcome(rr, CheckLinkage), outcome(rr, CheckMetadata))
	}
	if outcome(rr, CheckSignature) != Failed {
		t.Fatalf("signature outcome %q", outcome(rr, CheckSignature))
	}
	if rr.Signer != nil {
		t.Fatalf("signer reported for a failed signature")
	}
	failures := rr.Failures()
	if len(failures) != 2 {
		t.Fatalf("got %d failures, want 2", len(failures))
	}
	if failures[0].RuleID != revision.KindContentHashMismatch.RuleID() {
		t.Fatalf("content failure rule %q", failures[0].RuleID)
	}
	if failures[1].RuleID != revision.KindSignedHashMismatch.RuleID() {
		t.Fatalf("signature failure rule %q", failures[1].RuleID)
	}
}

func TestRevision_LinkageSkipsMetadata(t *testing.T) {
	a := testkit.Chain(t, "a", 2)
	b := testkit.Chain(t, "b", 1)
	rr := Revision(a[1], &b[0])
	if outcome(rr, CheckLinkage) != Failed || outcome(rr, CheckMetadata) != Skipped {
		t.Fatalf("linkage/metadata outcomes %q/%q", outcome(rr, CheckLinkage), outcome(rr, CheckMetadata))
	}
	if rr.Failures()[0].RuleID != "AQUA-REV-008" {
		t.Fatalf("linkage rule %q", rr.Failures()[0].RuleID)
	}
}

func TestReport_EmptyIsNotOK(t *testing.T) {
	var r *Report
	if r.OK() {
		t.Fatalf("nil report is OK")
	}
	if (&Report{}).OK() {
		t.Fatalf("empty report is OK")
	}
}
