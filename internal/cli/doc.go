// Package cli содержит команды консольного клиента stagehand-cli.
//
// Клиент разговаривает с HTTP API и ничего не знает о БД.
// Вывод — таблицы через tabwriter, либо JSON с флагом --json.
package cli
