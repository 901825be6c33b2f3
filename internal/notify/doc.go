// Package notify пересылает события смены статусов во внешний мир
// через RabbitMQ.
//
// Forwarder — подписчик status.Publisher: каждое событие сериализуется
// в JSON и публикуется в exchange stagehand.status с routing key по
// домену события (session или instance). Потребители снаружи (боты,
// дашборды, интеграции) читают свои очереди, не трогая движок.
//
// Доставка best-effort: ошибка публикации логируется и не влияет на
// уже зафиксированную транзакцию.
package notify
