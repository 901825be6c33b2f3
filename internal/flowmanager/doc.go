// Package flowmanager содержит оркестрацию жизненного цикла сессий.
//
// Manager — единственный владелец мутаций FlowSession и StageInstance:
// создание, advance, выбор стадии при нескольких кандидатах, пауза,
// возобновление, прерывание, purge. Все записи одного advance выполняются
// в одной транзакции под advisory-блокировкой сессии, поэтому два
// конкурентных advance не могут завершить один и тот же instance —
// проигравший получает ConflictError.
//
// Чтения (CurrentContext, History) не берут блокировку, но читают один
// консистентный снимок.
package flowmanager
