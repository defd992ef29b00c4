// Package cli реализует инструмент командной строки taskrun.
//
// # Обзор
//
// CLI — клиентская утилита для служебного API воркера и планировщика.
// Работает через HTTP, не импортирует внутренние пакеты системы.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для API. Инкапсулирует HTTP-запросы, парсинг ответов
// (dataResponse, listResponse, errorResponse) и обработку ошибок.
//
//	client := cli.NewClient("http://localhost:8082")
//	tasks, err := client.ListTasks()
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON (json.MarshalIndent) — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: taskrun tasks --json | jq .
//
// ## Commands
//
//   - tasks: список задач воркера
//   - kick: отправка задачи (--arg, --kwarg, --label, --wait)
//   - result: результат задачи
//   - schedules: расписания планировщика
//
// Команды создаются фабричными функциями (NewKickCmd и т.д.),
// принимающими clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
