package engine

import "errors"

// Ошибки валидации черновика definition.
var (
	// ErrEmptyStages — черновик не содержит стадий.
	ErrEmptyStages = errors.New("definition draft has no stages")

	// ErrEmptyStageID — стадия не имеет ID.
	ErrEmptyStageID = errors.New("stage has empty ID")

	// ErrDuplicateStageID — несколько стадий с одинаковым ID.
	ErrDuplicateStageID = errors.New("duplicate stage ID")

	// ErrNoStartStage — нет стартовой стадии.
	ErrNoStartStage = errors.New("no start stage")

	// ErrMultipleStartStages — больше одной стартовой стадии.
	ErrMultipleStartStages = errors.New("multiple start stages")

	// ErrEmptyTransitionID — переход не имеет ID.
	ErrEmptyTransitionID = errors.New("transition has empty ID")

	// ErrDuplicateTransitionID — несколько переходов с одинаковым ID.
	ErrDuplicateTransitionID = errors.New("duplicate transition ID")

	// ErrDanglingTransition — переход ссылается на несуществующую стадию.
	ErrDanglingTransition = errors.New("transition references unknown stage")
)

// Ошибки вычисления условий.
var (
	// ErrConditionParse — условие не парсится.
	ErrConditionParse = errors.New("condition parse failed")

	// ErrConditionEval — условие упало при вычислении.
	ErrConditionEval = errors.New("condition evaluation failed")
)

// ValidationError — ошибка валидации с контекстом.
type ValidationError struct {
	ItemID  string // ID стадии или перехода, где произошла ошибка
	Field   string // поле, вызвавшее ошибку
	Message string // описание ошибки
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if e.ItemID != "" {
		return e.ItemID + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт новую ошибку валидации.
func NewValidationError(itemID, field, message string, err error) *ValidationError {
	return &ValidationError{
		ItemID:  itemID,
		Field:   field,
		Message: message,
		Err:     err,
	}
}
