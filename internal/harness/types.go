package harness

// Result is the outcome of a scenario run.
type Result struct {
	// Pass indicates overall success.
	// True if every step and end-of-run expectation matched.
	Pass bool `json:"pass"`

	// Junction is the id of the junction the scenario ran on.
	Junction string `json:"junction"`

	// Firings lists every firing in seq order.
	Firings []FiringEvent `json:"firings"`

	// Steps lists step outcomes in execution order. Async steps that were
	// never awaited are appended at the end, in submission order.
	Steps []StepEvent `json:"steps"`

	// Pending maps channel name to messages still queued when the steps
	// finished. Channels with nothing queued are omitted.
	Pending map[string]int `json:"pending"`

	// Errors contains expectation failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// FiringEvent is one firing rendered with scenario names.
type FiringEvent struct {
	Seq      int64    `json:"seq"`
	Pattern  string   `json:"pattern"`
	Trigger  string   `json:"trigger"`
	Channels []string `json:"channels"`
	Args     []string `json:"args"`
}

// StepEvent is the outcome of one step.
type StepEvent struct {
	Index   int    `json:"index"`
	Op      StepOp `json:"op"`
	Channel string `json:"channel,omitempty"`
	ID      string `json:"id,omitempty"`
	Ref     string `json:"ref,omitempty"`
	Value   *int64 `json:"value,omitempty"`
	Async   bool   `json:"async,omitempty"`
	Reply   *int64 `json:"reply,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Firings: []FiringEvent{},
		Steps:   []StepEvent{},
		Pending: map[string]int{},
		Errors:  []string{},
	}
}

// AddError adds an expectation failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
