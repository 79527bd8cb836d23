package index

// Reason explains why documentation is regenerated.
type Reason string

// Regeneration reasons.
const (
	ReasonNoIndex          Reason = "no-index"
	ReasonForced           Reason = "forced"
	ReasonSignatureChanged Reason = "signature-changed"
	ReasonReadmeStale      Reason = "readme-stale"
	ReasonReadmeMissing    Reason = "readme-missing"
)

// Decision is the outcome of comparing a fresh index against the prior one.
type Decision struct {
	Regenerate bool
	Reasons    []Reason
	// ReadmeFingerprint is the value to record as last applied once the
	// README has been written.
	ReadmeFingerprint string
}

// Decide reports whether the README must be regenerated. prior may be nil.
func Decide(prior, fresh *Index, outlineHash string, force, readmeExists bool) Decision {
	d := Decision{ReadmeFingerprint: ReadmeFingerprint(fresh.BuildSignature, outlineHash)}

	if prior == nil {
		d.Reasons = append(d.Reasons, ReasonNoIndex)
	}

	if force {
		d.Reasons = append(d.Reasons, ReasonForced)
	}

	if prior != nil {
		if prior.BuildSignature != fresh.BuildSignature {
			d.Reasons = append(d.Reasons, ReasonSignatureChanged)
		} else if prior.LastReadmeFingerprint != d.ReadmeFingerprint {
			d.Reasons = append(d.Reasons, ReasonReadmeStale)
		}
	}

	if !readmeExists {
		d.Reasons = append(d.Reasons, ReasonReadmeMissing)
	}

	d.Regenerate = len(d.Reasons) > 0

	return d
}
