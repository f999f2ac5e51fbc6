package homework

import "errors"

type OutcomeKind int

const (
	// OutcomeStatus carries a status-change message for the chat.
	OutcomeStatus OutcomeKind = iota
	// OutcomeEmpty means the poll window had no homework updates.
	OutcomeEmpty
	// OutcomeInvalid means the response or the first task could not be used.
	OutcomeInvalid
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeStatus:
		return "status"
	case OutcomeEmpty:
		return "empty"
	case OutcomeInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Outcome is the result of evaluating one API response.
type Outcome struct {
	Kind    OutcomeKind
	Message string
	Task    Task
	Err     error
}

// Evaluate validates resp and parses its most recent task (index 0).
// Only one status change is surfaced per response.
func Evaluate(resp Response) Outcome {
	tasks, err := ExtractTasks(resp)
	if errors.Is(err, ErrNoHomeworks) {
		return Outcome{Kind: OutcomeEmpty}
	}
	if err != nil {
		return Outcome{Kind: OutcomeInvalid, Err: err}
	}
	task := tasks[0]
	msg, err := ParseStatus(task)
	if err != nil {
		return Outcome{Kind: OutcomeInvalid, Task: task, Err: err}
	}
	return Outcome{Kind: OutcomeStatus, Message: msg, Task: task}
}
