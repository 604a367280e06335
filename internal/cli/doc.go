// Package cli реализует инструмент командной строки Rupor.
//
// # Обзор
//
// CLI — клиентская утилита для наблюдения за расписаниями и заданиями
// через Rupor API. Работает по HTTP, не импортирует внутренние пакеты
// системы. Создание и редактирование контента остаётся за API,
// CLI даёт операторские команды: посмотреть, включить, выключить,
// отменить, проверить здоровье.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для Rupor API. Инкапсулирует все HTTP-запросы,
// парсинг ответов (DataResponse, ListResponse, ErrorResponse)
// и обработку ошибок.
//
//	client := cli.NewClient("http://localhost:8080")
//	schedules, err := client.ListSchedules(cli.ListSchedulesOpts{})
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON (json.Encoder с отступами) — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: rupor job list --json | jq .
//
// ## Commands
//
// Cobra-команды организованы по ресурсам:
//   - schedule: list, show, enable, disable, preview, occurrences, jobs
//   - job: list, show, cancel, published, stats
//   - health: проверка здоровья планировщика
//
// Каждая группа создаётся через фабричную функцию (NewScheduleCmd и т.д.),
// принимающую clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
