package gate

import (
	"context"
	"strconv"
	"time"
)

// ChecklistItem is one subsystem health check result.
type ChecklistItem struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// ChecklistReport aggregates security subsystem health for operators.
type ChecklistReport struct {
	RanAt  time.Time       `json:"ran_at"`
	Passed bool            `json:"passed"`
	Items  []ChecklistItem `json:"items"`
}

// Gate bundles the security subsystems consulted before every operation.
type Gate struct {
	Flags   *FlagService
	Limiter *RateLimiter
	Auditor *Auditor
}

// RunSecurityChecklist probes each subsystem synchronously and reports
// per-item pass/fail plus an overall verdict.
func (g *Gate) RunSecurityChecklist(ctx context.Context) *ChecklistReport {
	report := &ChecklistReport{RanAt: time.Now(), Passed: true}

	add := func(name string, passed bool, detail string) {
		report.Items = append(report.Items, ChecklistItem{Name: name, Passed: passed, Detail: detail})
		if !passed {
			report.Passed = false
		}
	}

	// RBAC: the capability table must fail closed for unknown inputs.
	add("rbac_fail_closed",
		!HasPermission("intruder", ResourceAIAction, ActionExecute) &&
			!HasPermission(RoleViewer, "unknown_resource", ActionRead),
		"unknown roles and resources are denied")

	// Feature flags loaded and readable.
	if g.Flags != nil {
		add("feature_flags", true, "registered flags: "+strconv.Itoa(g.Flags.Count()))
	} else {
		add("feature_flags", false, "flag service not wired")
	}

	// Rate limiter live.
	if g.Limiter != nil {
		add("rate_limiter", true, "active buckets: "+strconv.Itoa(g.Limiter.ActiveKeys()))
	} else {
		add("rate_limiter", false, "rate limiter not wired")
	}

	// Redactor self-test against a known CPF.
	sample := RedactSensitiveData("CPF 123.456.789-09")
	add("redactor", sample == "CPF "+RedactionMask, sample)

	// Audit log reachable.
	if g.Auditor != nil {
		err := g.Auditor.Probe(ctx)
		if err != nil {
			add("audit_log", false, err.Error())
		} else {
			add("audit_log", true, "")
		}
	} else {
		add("audit_log", false, "auditor not wired")
	}

	return report
}
