package homework

import "fmt"

const statusTemplate = "Изменился статус проверки работы \"%s\". %s"

// ParseStatus builds the status-change message for one task.
func ParseStatus(task Task) (string, error) {
	if task.Name == nil {
		return "", ErrMissingName
	}
	if task.Status == nil {
		return "", &ParseStatusError{Reason: ErrStatusMissing}
	}
	verdict, ok := Verdict(*task.Status)
	if !ok {
		return "", &ParseStatusError{Status: *task.Status, Reason: ErrStatusUnknown}
	}
	return StatusMessage(*task.Name, verdict), nil
}

// StatusMessage fills the two-slot template with a task name and a verdict.
func StatusMessage(name, verdict string) string {
	return fmt.Sprintf(statusTemplate, name, verdict)
}
