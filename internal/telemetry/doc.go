// Package telemetry содержит настройку структурированного логирования.
//
// Конфигурация через переменные окружения:
//   - LOG_LEVEL: DEBUG, INFO, WARN, ERROR (по умолчанию INFO)
//   - LOG_FORMAT: json или text (по умолчанию json)
package telemetry
