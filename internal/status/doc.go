// Package status содержит хаб публикации изменений статусов.
//
// Publisher — чистый notification-хаб: FlowSessionManager сообщает ему о
// каждом изменении статуса сессии или instance, подписчики получают события
// синхронно, в порядке регистрации. Подписчик никогда не влияет на уже
// зафиксированное изменение состояния: его ошибка или паника логируется
// и изолируется. Любая интеграция с внешними системами (например, проброс
// событий во внешний брокер) живёт в реализации подписчика, не в хабе.
package status
