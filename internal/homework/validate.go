package homework

import (
	"bytes"
	"encoding/json"
)

// ExtractTasks validates the shape of resp.Homeworks and decodes it.
// On success the returned slice has at least one element.
func ExtractTasks(resp Response) ([]Task, error) {
	raw := bytes.TrimSpace(resp.Homeworks)
	switch {
	case len(raw) == 0:
		return nil, &CheckAPIError{Reason: ErrHomeworksMissing}
	case bytes.Equal(raw, []byte("null")):
		return nil, &CheckAPIError{Reason: ErrHomeworksNull}
	case raw[0] != '[':
		return nil, &CheckAPIError{Reason: ErrHomeworksNotList}
	}

	var tasks []Task
	if err := json.Unmarshal(raw, &tasks); err != nil {
		return nil, &CheckAPIError{Reason: ErrMalformedTask}
	}
	if len(tasks) == 0 {
		return nil, &CheckAPIError{Reason: ErrNoHomeworks}
	}
	return tasks, nil
}
