package homework

import (
	"errors"
	"fmt"
	"strings"
)

// Reasons a response fails validation. Each one is reported with its own text.
var (
	ErrHomeworksMissing = errors.New("в ответе API нет ключа homeworks")
	ErrHomeworksNull    = errors.New("список домашних заданий отсутствует (null)")
	ErrHomeworksNotList = errors.New("homeworks в ответе API не является списком")
	ErrNoHomeworks      = errors.New("нет домашних заданий за данный промежуток времени")
	ErrMalformedTask    = errors.New("запись домашней работы имеет неверный формат")
)

// Reasons a task record cannot be turned into a notification.
var (
	ErrMissingName   = errors.New("отсутствует название домашней работы")
	ErrStatusMissing = errors.New("отсутствует статус домашней работы")
	ErrStatusUnknown = errors.New("статус домашней работы неизвестен")
)

const maxBodyInError = 200

// APIAnswerError reports a failed request to the review API: either the
// transport failed (Err set) or the API answered with a non-200 status.
type APIAnswerError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *APIAnswerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ошибка при запросе к основному API: %v", e.Err)
	}
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("ошибка в работе API: код ответа %d", e.StatusCode)
	}
	if r := []rune(body); len(r) > maxBodyInError {
		body = string(r[:maxBodyInError]) + "..."
	}
	return fmt.Sprintf("ошибка в работе API: код ответа %d: %s", e.StatusCode, body)
}

func (e *APIAnswerError) Unwrap() error { return e.Err }

// CheckAPIError reports a response whose homework list has the wrong shape.
type CheckAPIError struct {
	Reason error
}

func (e *CheckAPIError) Error() string {
	return "некорректный ответ API: " + e.Reason.Error()
}

func (e *CheckAPIError) Unwrap() error { return e.Reason }

// ParseStatusError reports a task whose status is missing or not in the catalog.
type ParseStatusError struct {
	Status string
	Reason error
}

func (e *ParseStatusError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("%v: %q", e.Reason, e.Status)
	}
	return e.Reason.Error()
}

func (e *ParseStatusError) Unwrap() error { return e.Reason }

// SendMessageError reports a failed delivery to the chat.
type SendMessageError struct {
	Err error
}

func (e *SendMessageError) Error() string {
	return fmt.Sprintf("ошибка при отправке сообщения в Telegram: %v", e.Err)
}

func (e *SendMessageError) Unwrap() error { return e.Err }

// MissingCredentialsError lists the credential names (never values) that are empty.
type MissingCredentialsError struct {
	Names []string
}

func (e *MissingCredentialsError) Error() string {
	return "отсутствуют обязательные переменные окружения: " + strings.Join(e.Names, ", ")
}

const failurePrefix = "Сбой в работе программы: "

// FailureMessage formats an error as the chat message reporting a failed cycle.
func FailureMessage(err error) string {
	if err == nil {
		return failurePrefix + "неизвестная ошибка"
	}
	return failurePrefix + err.Error()
}
