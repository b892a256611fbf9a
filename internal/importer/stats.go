package importer

import "go.uber.org/zap"

// Stats counts outcomes over a run
type Stats struct {
	Places         int
	Unmatched      int // Places dropped by the join before any lookup
	Written        int
	AlreadyPresent int
	NoMatch        int
	Missing        int
	Failed         int
	DryRun         int
}

// Add counts one outcome
func (s *Stats) Add(o Outcome) {
	switch o {
	case OutcomeWritten:
		s.Written++
	case OutcomeAlreadyPresent:
		s.AlreadyPresent++
	case OutcomeNoMatch:
		s.NoMatch++
	case OutcomeMissing:
		s.Missing++
	case OutcomeFailed:
		s.Failed++
	case OutcomeDryRun:
		s.DryRun++
	}
}

// Fields renders the stats as log fields
func (s Stats) Fields() []zap.Field {
	return []zap.Field{
		zap.Int("places", s.Places),
		zap.Int("unmatched", s.Unmatched),
		zap.Int("written", s.Written),
		zap.Int("already_present", s.AlreadyPresent),
		zap.Int("no_match", s.NoMatch),
		zap.Int("missing", s.Missing),
		zap.Int("failed", s.Failed),
		zap.Int("dry_run", s.DryRun),
	}
}
