package rules

import "fmt"

// LoadError is a single configuration-error record: a malformed or
// rejected material/rule, identified by source file and record key so
// a content author can find it without re-running the loader (§7
// "Configuration errors").
type LoadError struct {
	File   string
	Record string // e.g. "material 42" or "rule at line 7"
	Reason string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.File, e.Record, e.Reason)
}

// LoadReport collects every malformed record encountered during a load
// pass instead of failing on the first, so a content author sees every
// problem in one run (§4.2 validation rules, §7).
type LoadReport struct {
	Errors []*LoadError
}

func (r *LoadReport) add(file, record, reason string, args ...any) {
	r.Errors = append(r.Errors, &LoadError{
		File:   file,
		Record: record,
		Reason: fmt.Sprintf(reason, args...),
	})
}

// OK reports whether the report contains zero errors. The engine never
// boots with a failed rule set (§7): callers must check OK before
// using a RuleSet built alongside a non-empty report.
func (r *LoadReport) OK() bool { return len(r.Errors) == 0 }

func (r *LoadReport) Error() string {
	if r.OK() {
		return ""
	}
	s := fmt.Sprintf("%d rule-load error(s):", len(r.Errors))
	for _, e := range r.Errors {
		s += "\n  " + e.Error()
	}
	return s
}
