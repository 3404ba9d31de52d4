package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNext_CalendarMode(t *testing.T) {
	cal := UTCCalendar{}

	tests := []struct {
		name       string
		billingDay int
		now        time.Time
		want       time.Time
	}{
		{
			name:       "middle of year moves to next month",
			billingDay: 15,
			now:        time.Date(2026, time.March, 20, 10, 30, 0, 0, time.UTC),
			want:       time.Date(2026, time.April, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:       "december rolls over to january next year",
			billingDay: 15,
			now:        time.Date(2026, time.December, 3, 8, 0, 0, 0, time.UTC),
			want:       time.Date(2027, time.January, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:       "billing day after current day still next month",
			billingDay: 28,
			now:        time.Date(2026, time.January, 2, 0, 0, 0, 0, time.UTC),
			want:       time.Date(2026, time.February, 28, 0, 0, 0, 0, time.UTC),
		},
		{
			name:       "first day of month",
			billingDay: 1,
			now:        time.Date(2026, time.June, 30, 23, 59, 59, 0, time.UTC),
			want:       time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Next(cal, tt.billingDay, time.Time{}, 0, tt.now)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNext_CalendarModeAlwaysLandsOnBillingDay(t *testing.T) {
	cal := UTCCalendar{}
	now := time.Date(2026, time.January, 7, 12, 0, 0, 0, time.UTC)

	// Из любого месяца года следующая дата попадает на billingDay.
	for range 24 {
		next := Next(cal, 15, time.Time{}, 0, now)
		assert.Equal(t, 15, next.Day())
		assert.True(t, next.After(now))
		now = next
	}
}

func TestNext_IntervalMode(t *testing.T) {
	now := time.Date(2026, time.May, 10, 9, 0, 0, 0, time.UTC)

	t.Run("zero schedule initializes from now", func(t *testing.T) {
		got := Next(UTCCalendar{}, 0, time.Time{}, 2_592_000, now)
		assert.Equal(t, now, got)
	})

	t.Run("advances from previous schedule not from now", func(t *testing.T) {
		prev := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)
		got := Next(UTCCalendar{}, 0, prev, 2_592_000, now)
		assert.Equal(t, prev.Add(2_592_000*time.Second), got)
	})

	t.Run("no drift over consecutive cycles", func(t *testing.T) {
		start := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
		next := start
		for i := range 5 {
			// "сейчас" гуляет внутри цикла, расписание не дрейфует
			late := next.Add(7 * time.Hour)
			next = Next(UTCCalendar{}, 0, next, 86_400, late)
			assert.Equal(t, start.Add(time.Duration(i+1)*86_400*time.Second), next)
		}
	})
}
