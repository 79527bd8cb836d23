package docs

import (
	"path/filepath"

	"github.com/calvinalkan/unsafe-docs/internal/fsutil"
	"github.com/calvinalkan/unsafe-docs/internal/index"
)

// ProblemKind classifies a verify finding.
type ProblemKind string

// Verify findings.
const (
	ProblemMissingIndex   ProblemKind = "missing-index"
	ProblemStaleSignature ProblemKind = "stale-signature"
	ProblemStaleReadme    ProblemKind = "stale-readme"
)

// Problem is one reason a target is out of date.
type Problem struct {
	Target string
	Kind   ProblemKind
	Detail string
}

// Verify compares the persisted state of target with its sources. It never
// writes. An error means the target could not be checked at all.
func (p *Processor) Verify(target string) ([]Problem, error) {
	st, err := p.load(target, false)
	if err != nil {
		return nil, err
	}

	if st.prior == nil {
		return []Problem{{
			Target: target,
			Kind:   ProblemMissingIndex,
			Detail: index.FileName + " is missing or unreadable",
		}}, nil
	}

	var problems []Problem

	if st.prior.BuildSignature != st.fresh.BuildSignature {
		problems = append(problems, Problem{
			Target: target,
			Kind:   ProblemStaleSignature,
			Detail: "sources or attachments changed since " + index.FileName + " was written",
		})
	}

	readmeExists, err := fsutil.Exists(filepath.Join(target, ReadmeName))
	if err != nil {
		return nil, err
	}

	switch {
	case !readmeExists:
		problems = append(problems, Problem{Target: target, Kind: ProblemStaleReadme, Detail: ReadmeName + " is missing"})
	case st.prior.LastReadmeFingerprint != st.decision.ReadmeFingerprint:
		problems = append(problems, Problem{
			Target: target,
			Kind:   ProblemStaleReadme,
			Detail: ReadmeName + " was not generated from the current sources and outline",
		})
	}

	return problems, nil
}
