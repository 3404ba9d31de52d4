package schedule

import "time"

// Next вычисляет следующую плановую дату списания.
//
// Календарный режим (billingDay != 0): берётся (год, месяц) текущего момента,
// месяц сдвигается на один вперёд (декабрь переходит в январь следующего года),
// дата собирается на billingDay 00:00:00. Списание привязано к фиксированному
// дню месяца независимо от фактического времени предыдущего списания.
//
// Интервальный режим (billingDay == 0): при нулевом nextBillingTime расписание
// инициализируется текущим моментом, иначе к прежней плановой дате добавляется
// cycleSeconds. Период отсчитывается от исходного расписания без накопления
// дрейфа.
func Next(cal Calendar, billingDay int, nextBillingTime time.Time, cycleSeconds int64, now time.Time) time.Time {
	if billingDay != 0 {
		year := cal.YearOf(now)
		month := cal.MonthOf(now)
		if month == time.December {
			year++
			month = time.January
		} else {
			month++
		}
		return cal.ToTimestamp(year, month, billingDay, 0, 0, 0)
	}

	if nextBillingTime.IsZero() {
		return now
	}
	return nextBillingTime.Add(time.Duration(cycleSeconds) * time.Second)
}
