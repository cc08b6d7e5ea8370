package harness

import "sort"

// Reaction computes the reply for a firing from its int64 inputs.
// Returning false leaves every reply-carrying member unanswered.
type Reaction func(inputs []int64) (int64, bool)

// reactions are the built-in reactions scenarios may name.
var reactions = map[string]Reaction{
	"sum": func(in []int64) (int64, bool) {
		var total int64
		for _, v := range in {
			total += v
		}
		return total, true
	},
	"product": func(in []int64) (int64, bool) {
		total := int64(1)
		for _, v := range in {
			total *= v
		}
		return total, true
	},
	"max": func(in []int64) (int64, bool) {
		if len(in) == 0 {
			return 0, true
		}
		m := in[0]
		for _, v := range in[1:] {
			if v > m {
				m = v
			}
		}
		return m, true
	},
	"double": func(in []int64) (int64, bool) {
		var total int64
		for _, v := range in {
			total += v
		}
		return 2 * total, true
	},
	"first": func(in []int64) (int64, bool) {
		if len(in) == 0 {
			return 0, true
		}
		return in[0], true
	},
	"noop": func([]int64) (int64, bool) {
		return 0, false
	},
	"panic": func([]int64) (int64, bool) {
		panic("reaction panic requested by scenario")
	},
}

// ReactionNames returns the names of the built-in reactions.
func ReactionNames() []string {
	names := make([]string, 0, len(reactions))
	for name := range reactions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
