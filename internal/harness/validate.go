package harness

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// ValidationError is one problem found in a scenario.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every problem found in a scenario.
type ValidationErrors []ValidationError

func (es ValidationErrors) Error() string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate normalizes names and checks the scenario.
//
// Structural rules (required fields, enumerations) are checked first; if
// they pass, references are resolved: pattern members and step channels must
// be declared, step operations must fit the channel kind, reactions must be
// known and awaits must name an earlier async step.
func (s *Scenario) Validate() error {
	s.normalize()

	if err := validate.Struct(s); err != nil {
		var ves validator.ValidationErrors
		if errors.As(err, &ves) {
			return formatValidationErrors(ves)
		}
		return err
	}

	var errs ValidationErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	kinds := make(map[string]ChannelKind, len(s.Channels))
	for i, c := range s.Channels {
		if !validName(c.Name) {
			add(fmt.Sprintf("channels[%d].name", i), "invalid name %q", c.Name)
		}
		if _, dup := kinds[c.Name]; dup {
			add(fmt.Sprintf("channels[%d].name", i), "duplicate channel %q", c.Name)
		}
		kinds[c.Name] = c.Kind
	}

	patterns := make(map[string]bool, len(s.Patterns))
	for i, p := range s.Patterns {
		field := fmt.Sprintf("patterns[%d]", i)
		if patterns[p.Name] {
			add(field+".name", "duplicate pattern %q", p.Name)
		}
		patterns[p.Name] = true
		if _, ok := reactions[p.Reaction]; !ok {
			add(field+".reaction", "unknown reaction %q", p.Reaction)
		}
		seen := make(map[string]bool, len(p.When))
		for k, name := range p.When {
			if _, ok := kinds[name]; !ok {
				add(fmt.Sprintf("%s.when[%d]", field, k), "unknown channel %q", name)
			}
			if seen[name] {
				add(fmt.Sprintf("%s.when[%d]", field, k), "channel %q appears twice", name)
			}
			seen[name] = true
		}
	}

	async := make(map[string]bool)
	for i, st := range s.Steps {
		field := fmt.Sprintf("steps[%d]", i)
		if st.Op == OpAwait {
			if st.Ref == "" {
				add(field+".ref", "await requires ref")
			} else if !async[st.Ref] {
				add(field+".ref", "no earlier async step with id %q", st.Ref)
			}
			if st.Channel != "" || st.Value != nil || st.Async {
				add(field, "await takes only ref, expect and error")
			}
			continue
		}

		kind, ok := kinds[st.Channel]
		if !ok {
			add(field+".channel", "unknown channel %q", st.Channel)
			continue
		}
		if want := kindFor(st.Op); kind != want {
			add(field+".op", "%s needs a %s channel, %q is %s", st.Op, want, st.Channel, kind)
		}
		if (st.Op == OpSend || st.Op == OpSendRecv) && st.Value == nil {
			add(field+".value", "%s requires value", st.Op)
		}
		if st.Op == OpRecv && st.Value != nil {
			add(field+".value", "recv takes no value")
		}
		if st.Op == OpSend && (st.Async || st.Expect != nil || st.Error != "") {
			add(field, "send never waits, so it takes no async, expect or error")
		}
		if st.Expect != nil && st.Error != "" {
			add(field, "expect and error are mutually exclusive")
		}
		if st.Async && (st.Expect != nil || st.Error != "") {
			add(field, "async step is checked by its await, not by expect or error")
		}
		if st.Async {
			if st.ID == "" {
				add(field+".id", "async step requires id")
			} else if async[st.ID] {
				add(field+".id", "duplicate async id %q", st.ID)
			}
			async[st.ID] = true
		}
	}

	if s.Expect != nil {
		for name := range s.Expect.Patterns {
			if !patterns[name] {
				add("expect.patterns", "unknown pattern %q", name)
			}
		}
		for name := range s.Expect.Pending {
			if _, ok := kinds[name]; !ok {
				add("expect.pending", "unknown channel %q", name)
			}
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func kindFor(op StepOp) ChannelKind {
	switch op {
	case OpSend:
		return KindSend
	case OpRecv:
		return KindRecv
	default:
		return KindBidir
	}
}

// validName rejects names that would be ambiguous in traces.
func validName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return false
		}
	}
	return true
}

func formatValidationErrors(ves validator.ValidationErrors) ValidationErrors {
	errs := make(ValidationErrors, 0, len(ves))
	for _, fe := range ves {
		errs = append(errs, ValidationError{
			Field:   trimRoot(fe.Namespace()),
			Message: errorMessage(fe),
		})
	}
	return errs
}

// trimRoot drops the struct name validator puts in front of every namespace.
func trimRoot(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func errorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field is required"
	case "min":
		return fmt.Sprintf("minimum value/length is %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %v", fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("validation failed: %s", fe.Tag())
	}
}
