// Package depends реализует внедрение зависимостей в задачи.
//
// Задача объявляет, какие её параметры заполняются провайдерами
// (Provider). При каждом вызове создаётся Scope — контекст разрешения,
// засеянный значениями воркера (контекст запроса, общее состояние,
// пользовательские значения). Graph разрешает все провайдеры в этом
// Scope и возвращает значения по именам параметров.
//
// Scope — ресурс с ограниченным временем жизни: провайдеры могут
// регистрировать очистку через Scope.Defer, а вызывающий обязан
// вызвать Scope.Close после выполнения задачи при любом исходе.
//
//	scope := depends.NewScope(reqCtx, state)
//	defer scope.Close(ctx)
//
//	values, err := graph.Resolve(ctx, scope)
package depends
