// Package workflow — контроллер шагов планирования поездки.
//
// # Обзор
//
// Controller — единственный, кто решает, какой шаг выполнять дальше.
// Состояние (State) передаётся явно и возвращается новым значением:
//
//	st := workflow.StateFromPlan(plan)
//	st, err := controller.Advance(ctx, st)
//	st.ApplyTo(plan)
//
// Один вызов Advance выполняет текущий шаг:
//
//	Idle → Running → Succeeded → следующий шаг (Idle)
//	               ↘ Failed    → тот же шаг (повтор вызовом Advance)
//
// Успех с непустым результатом: Merge в документ, уведомление, индекс +1.
// Пустой результат: уведомление "нет результатов", индекс не меняется.
// Ошибка (валидация, провайдер, таймаут, хранилище): уведомление, индекс
// не меняется. Автоматических повторов нет.
//
// Статус в хранилище пишется только в трёх местах: processing при старте
// шага 1, completed после успеха шага 4, error через Abandon.
//
// # Ошибки
//
// Остановка шага возвращается как *StageError; errors.Is работает с
// ErrValidation, ErrProvider, ErrEmptyResult, ErrPersistence.
//
// # RunAll
//
// RunAll выполняет шаги до конца или до первой остановки. С parallel=true
// шаги 1–3 запрашиваются одновременно, а их результаты применяются строго
// по порядку через тот же путь, что и Advance.
package workflow
