package nlu

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	KindTransport ErrorKind = iota
	KindRateLimited
	KindStatus
	KindNoAnswer
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindRateLimited:
		return "rate_limited"
	case KindStatus:
		return "status"
	case KindNoAnswer:
		return "no_answer"
	default:
		return "unknown"
	}
}

const (
	ErrorPrefix = "Ошибка: "

	RateLimitReply = "У меня кончились ресурсы на вас, мясных мешков. Я занимаюсь своими делами, " +
		"обратитесь позже, и может быть, я вас обслужу, раз вы сами не в состоянии"

	transportReply = ErrorPrefix + "не удалось связаться с языковой моделью"
	noAnswerReply  = ErrorPrefix + "не найден ответ от модели"
)

// Error is a failed completion. Reply gives the text the caller hears.
type Error struct {
	Kind   ErrorKind
	Status int
	// Detail is the provider's own message, or status and body when the
	// body carries none.
	Detail string
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("completion %s: %v", e.Kind, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("completion %s: %d %s", e.Kind, e.Status, e.Detail)
	default:
		return fmt.Sprintf("completion %s", e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Reply() string {
	switch e.Kind {
	case KindRateLimited:
		return RateLimitReply
	case KindStatus:
		return ErrorPrefix + e.Detail
	case KindNoAnswer:
		return noAnswerReply
	default:
		return transportReply
	}
}

// ReplyText maps any completion error to the text returned to the caller.
func ReplyText(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reply()
	}
	return transportReply
}
