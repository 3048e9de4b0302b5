package domain

// CheckResult counts the outcome of one rule run (or of a merged run over all
// rules). A malformed record increments Errors without aborting the scan; a
// finding that already has an active insight counts as Skipped.
type CheckResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

// Merge adds another result into r.
func (r *CheckResult) Merge(other CheckResult) {
	r.Created += other.Created
	r.Skipped += other.Skipped
	r.Errors += other.Errors
}
