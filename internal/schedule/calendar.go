// Package schedule вычисляет следующую дату списания подписки.
//
// Поддерживаются два режима: календарный (фиксированный день месяца 1-28)
// и интервальный (фиксированный период от предыдущей плановой даты).
package schedule

import "time"

// Calendar — контракт календарного сервиса: перевод метки времени
// в (год, месяц) и обратная сборка метки времени из компонентов.
// Корректность високосных лет лежит на реализации.
type Calendar interface {
	YearOf(t time.Time) int
	MonthOf(t time.Time) time.Month
	ToTimestamp(year int, month time.Month, day, hour, min, sec int) time.Time
}

// UTCCalendar реализует Calendar поверх time.Time в UTC.
type UTCCalendar struct{}

// YearOf возвращает год метки времени в UTC.
func (UTCCalendar) YearOf(t time.Time) int {
	return t.UTC().Year()
}

// MonthOf возвращает месяц метки времени в UTC.
func (UTCCalendar) MonthOf(t time.Time) time.Month {
	return t.UTC().Month()
}

// ToTimestamp собирает метку времени UTC из компонентов даты.
func (UTCCalendar) ToTimestamp(year int, month time.Month, day, hour, min, sec int) time.Time {
	return time.Date(year, month, day, hour, min, sec, 0, time.UTC)
}
