// Package verify checks stored branches revision by revision and reports
// every outcome, not just the first failure.
package verify

import (
	"context"
	"fmt"

	"xdao.co/aqua/ident"
	"xdao.co/aqua/revision"
	"xdao.co/aqua/storage"
)

type CheckName string

const (
	CheckContent   CheckName = "content"
	CheckLinkage   CheckName = "linkage"
	CheckMetadata  CheckName = "metadata"
	CheckSignature CheckName = "signature"
	CheckWitness   CheckName = "witness"
)

type Outcome string

const (
	Passed Outcome = "passed"
	Failed Outcome = "failed"
	// Absent marks an optional part (signature, witness) the revision does
	// not carry.
	Absent Outcome = "absent"
	// Skipped marks a check that depends on one that failed.
	Skipped Outcome = "skipped"
)

// Check is the outcome of one verification step. RuleID and Reason are set
// on failure.
type Check struct {
	Name    CheckName `json:"name"`
	Outcome Outcome   `json:"outcome"`
	RuleID  string    `json:"ruleID,omitempty"`
	Reason  string    `json:"reason,omitempty"`
}

// RevisionReport covers one revision of a branch.
type RevisionReport struct {
	Hash   ident.Hash     `json:"hash"`
	Index  int            `json:"index"`
	Signer *ident.Address `json:"signer,omitempty"`
	Checks []Check        `json:"checks"`
}

func (r RevisionReport) OK() bool {
	for _, c := range r.Checks {
		if c.Outcome == Failed {
			return false
		}
	}
	return true
}

// Failures returns the failed checks.
func (r RevisionReport) Failures() []Check {
	var out []Check
	for _, c := range r.Checks {
		if c.Outcome == Failed {
			out = append(out, c)
		}
	}
	return out
}

// Report covers a whole branch in order from genesis.
type Report struct {
	Target    ident.Hash       `json:"target"`
	Genesis   ident.Hash       `json:"genesis"`
	Revisions []RevisionReport `json:"revisions"`
}

func (r *Report) OK() bool {
	if r == nil || len(r.Revisions) == 0 {
		return false
	}
	for _, rev := range r.Revisions {
		if !rev.OK() {
			return false
		}
	}
	return true
}

// FirstFailure returns the earliest failing revision, if any.
func (r *Report) FirstFailure() (RevisionReport, bool) {
	for _, rev := range r.Revisions {
		if !rev.OK() {
			return rev, true
		}
	}
	return RevisionReport{}, false
}

// Branch verifies the branch containing h. Storage errors abort the walk;
// verification failures are recorded in the report.
func Branch[C any](ctx context.Context, s storage.Storage[C], h ident.Hash) (*Report, error) {
	b, err := s.GetBranch(ctx, h)
	if err != nil {
		return nil, fmt.Errorf("verify: branch of %s: %w", h, err)
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("verify: branch of %s: %w", h, err)
	}

	report := &Report{Target: h, Genesis: b.Genesis()}
	var prev *revision.Revision
	for i, want := range b.Hashes {
		rev, err := s.Read(ctx, want)
		if err != nil {
			return nil, fmt.Errorf("verify: read %s: %w", want, err)
		}
		rr := Revision(rev, prev)
		rr.Index = i
		if rev.Hash() != want {
			rr.Hash = want
			rr.Checks = append([]Check{{
				Name:    CheckMetadata,
				Outcome: Failed,
				RuleID:  revision.KindVerificationHashMismatch.RuleID(),
				Reason:  fmt.Sprintf("storage returned revision %s", rev.Hash()),
			}}, rr.Checks...)
		}
		report.Revisions = append(report.Revisions, rr)
		prev = &rev
	}
	return report, nil
}

// Revision verifies rev against its predecessor; prev is nil for a genesis
// revision.
func Revision(rev revision.Revision, prev *revision.Revision) RevisionReport {
	rr := RevisionReport{Hash: rev.Hash()}

	rr.Checks = append(rr.Checks, result(CheckContent, rev.VerifyContent()))

	metaErr := rev.VerifyMetadata(prev)
	if revision.IsKind(metaErr, revision.KindLinkage) {
		rr.Checks = append(rr.Checks,
			result(CheckLinkage, metaErr),
			Check{Name: CheckMetadata, Outcome: Skipped})
	} else {
		rr.Checks = append(rr.Checks,
			result(CheckLinkage, nil),
			result(CheckMetadata, metaErr))
	}

	if rev.Signature == nil {
		rr.Checks = append(rr.Checks, Check{Name: CheckSignature, Outcome: Absent})
	} else {
		err := rev.VerifySignature()
		rr.Checks = append(rr.Checks, result(CheckSignature, err))
		if err == nil {
			addr := rev.Signature.WalletAddress
			rr.Signer = &addr
		}
	}

	if rev.Witness == nil {
		rr.Checks = append(rr.Checks, Check{Name: CheckWitness, Outcome: Absent})
	} else {
		rr.Checks = append(rr.Checks, result(CheckWitness, rev.VerifyWitness()))
	}
	return rr
}

func result(name CheckName, err error) Check {
	if err == nil {
		return Check{Name: name, Outcome: Passed}
	}
	return Check{Name: name, Outcome: Failed, RuleID: revision.RuleID(err), Reason: err.Error()}
}
