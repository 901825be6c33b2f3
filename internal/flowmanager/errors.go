package flowmanager

import (
	"errors"

	"github.com/shaiso/Stagehand/internal/engine"
	"github.com/shaiso/Stagehand/internal/repo"
)

// Kind — вид ошибки менеджера. Тегированная таксономия для вызывающих:
// по Kind они решают, исправлять ссылку, повторять операцию или чинить
// собственное состояние.
type Kind string

const (
	// KindNotFound — definition/версия/стадия/сессия/instance не найдены.
	// Вызывающий исправляет ссылку; повторы бессмысленны.
	KindNotFound Kind = "NotFound"

	// KindConflict — обнаружена конкурентная мутация.
	// Вызывающий перечитывает состояние и повторяет операцию целиком.
	KindConflict Kind = "ConflictError"

	// KindState — операция невозможна в текущем статусе.
	// Не повторяется автоматически: признак бага или устаревшего кэша.
	KindState Kind = "StateError"

	// KindValidation — черновик definition отклонён при publish.
	KindValidation Kind = "ValidationError"

	// KindInternal — ошибка хранилища или иной внутренний сбой.
	KindInternal Kind = "Internal"
)

// Error — ошибка менеджера с тегом и деталями.
// Details всегда содержат ID сущности и ожидаемый/фактический статус,
// чтобы вызывающий мог показать осмысленное сообщение без повторного запроса.
type Error struct {
	Kind    Kind           `json:"kind"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	err     error
}

// Error реализует интерфейс error.
func (e *Error) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *Error) Unwrap() error {
	return e.err
}

// newError создаёт ошибку таксономии.
func newError(kind Kind, message string, details map[string]any) *Error {
	return &Error{Kind: kind, Message: message, Details: details}
}

// KindOf возвращает Kind ошибки; для неизвестных ошибок — KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var ve *engine.ValidationError
	if errors.As(err, &ve) {
		return KindValidation
	}
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return KindNotFound
	case errors.Is(err, repo.ErrConflict):
		return KindConflict
	case errors.Is(err, repo.ErrInvalidState), errors.Is(err, repo.ErrAlreadyExists):
		return KindState
	default:
		return KindInternal
	}
}

// wrapErr преобразует ошибку нижнего слоя в таксономию менеджера.
// Ошибки хранилища никогда не пересекают границу менеджера сырыми.
func wrapErr(err error, details map[string]any) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	kind := KindOf(err)
	msg := err.Error()
	if kind == KindInternal {
		msg = "storage failure: " + msg
	}
	return &Error{Kind: kind, Message: msg, Details: details, err: err}
}
