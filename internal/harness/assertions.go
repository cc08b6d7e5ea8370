package harness

import (
	"fmt"
	"sort"
)

// checkStep compares a step outcome against the step's expectations.
func checkStep(r *Result, st Step, ev StepEvent) {
	if st.Async {
		if ev.Error != "" {
			r.AddError(fmt.Sprintf("step %d (%s %s): submit failed: %s", ev.Index, st.Op, st.Channel, ev.Error))
		}
		return
	}

	label := fmt.Sprintf("step %d (%s %s)", ev.Index, st.Op, st.Channel)
	if st.Op == OpAwait {
		label = fmt.Sprintf("step %d (await %s)", ev.Index, st.Ref)
	}

	switch {
	case st.Error != "":
		if ev.Error != st.Error {
			r.AddError(fmt.Sprintf("%s: expected error %s, got %s", label, st.Error, describe(ev)))
		}
	case ev.Error != "":
		r.AddError(fmt.Sprintf("%s: unexpected error %s", label, ev.Error))
	case st.Expect != nil:
		if ev.Reply == nil || *ev.Reply != *st.Expect {
			r.AddError(fmt.Sprintf("%s: expected reply %d, got %s", label, *st.Expect, describe(ev)))
		}
	}
}

func describe(ev StepEvent) string {
	switch {
	case ev.Error != "":
		return "error " + ev.Error
	case ev.Reply != nil:
		return fmt.Sprintf("reply %d", *ev.Reply)
	default:
		return "no reply"
	}
}

// evaluateExpect checks the end-of-run expectations.
// Failures are reported in a deterministic order.
func evaluateExpect(r *Result, exp *Expect) {
	if exp == nil {
		return
	}

	if exp.Firings != nil && len(r.Firings) != *exp.Firings {
		r.AddError(fmt.Sprintf("expected %d firings, got %d", *exp.Firings, len(r.Firings)))
	}

	if len(exp.Patterns) > 0 {
		counts := make(map[string]int)
		for _, f := range r.Firings {
			counts[f.Pattern]++
		}
		for _, name := range sortedKeys(exp.Patterns) {
			if got, want := counts[name], exp.Patterns[name]; got != want {
				r.AddError(fmt.Sprintf("pattern %s: expected %d firings, got %d", name, want, got))
			}
		}
	}

	for _, name := range sortedKeys(exp.Pending) {
		if got, want := r.Pending[name], exp.Pending[name]; got != want {
			r.AddError(fmt.Sprintf("channel %s: expected %d pending, got %d", name, want, got))
		}
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
