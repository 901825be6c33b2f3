// Package engine содержит логику переходов между стадиями.
//
// Включает:
//   - condition.go — вычисление условий переходов (Go templates)
//   - evaluator.go — выбор eligible переходов с детерминированным порядком
//   - validate.go  — валидация черновика definition перед publish
//
// Engine отвечает за понимание структуры definition и за решение,
// какие стадии доступны после завершения текущей.
package engine
