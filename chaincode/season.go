package main

import "time"

// monthDay normalizes a timestamp to its "MM-DD" form. Zero padding makes
// lexical comparison equivalent to calendar comparison.
func monthDay(t time.Time) string {
	return t.Format("01-02")
}

// windowContains reports whether the month-day md falls inside w. A window
// whose start sorts after its end wraps across year end, so membership is
// md >= start OR md <= end.
func windowContains(w SeasonWindow, md string) bool {
	if w.Start <= w.End {
		return w.Start <= md && md <= w.End
	}
	return md >= w.Start || md <= w.End
}

// validateSeason returns the first season window containing the harvest
// date. Only the month-day component is compared so recurring multi-year
// seasons need a single window each.
func validateSeason(rule *SpeciesRule, harvestDate time.Time) (*SeasonWindow, error) {
	md := monthDay(harvestDate)
	for i := range rule.Seasons {
		if windowContains(rule.Seasons[i], md) {
			return &rule.Seasons[i], nil
		}
	}
	return nil, validationError(CodeSeasonNotApproved,
		"%s may not be harvested on %s", rule.Code, md).
		withDetail("validWindows", rule.Seasons)
}
