package recurrence

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func TestNext(t *testing.T) {
	tests := []struct {
		name   string
		due    time.Time
		freq   Frequency
		anchor int
		want   time.Time
	}{
		{"weekly", date(2024, 1, 29), Weekly, 29, date(2024, 2, 5)},
		{"biweekly", date(2024, 12, 25), Biweekly, 25, date(2025, 1, 8)},
		{"monthly plain", date(2024, 3, 15), Monthly, 15, date(2024, 4, 15)},
		{"monthly clamps to february", date(2023, 1, 31), Monthly, 31, date(2023, 2, 28)},
		{"monthly clamps to leap february", date(2024, 1, 31), Monthly, 31, date(2024, 2, 29)},
		{"monthly recovers anchor after short month", date(2023, 2, 28), Monthly, 31, date(2023, 3, 31)},
		{"monthly 30 day month", date(2024, 5, 31), Monthly, 31, date(2024, 6, 30)},
		{"monthly across year", date(2024, 12, 10), Monthly, 10, date(2025, 1, 10)},
		{"quarterly clamps", date(2024, 11, 30), Quarterly, 30, date(2025, 2, 28)},
		{"yearly leap day", date(2024, 2, 29), Yearly, 29, date(2025, 2, 28)},
		{"yearly back to leap day", date(2027, 2, 28), Yearly, 29, date(2028, 2, 29)},
		{"invalid anchor falls back to due day", date(2024, 4, 10), Monthly, 0, date(2024, 5, 10)},
		{"time of day is dropped", time.Date(2024, 4, 10, 18, 30, 0, 0, time.UTC), Weekly, 10, date(2024, 4, 17)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Next(tt.due, tt.freq, tt.anchor)
			if err != nil {
				t.Fatalf("Next() error = %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("Next() = %s, want %s", got.Format(time.DateOnly), tt.want.Format(time.DateOnly))
			}
		})
	}
}

func TestNextUnknownFrequency(t *testing.T) {
	if _, err := Next(date(2024, 1, 1), "daily", 1); err == nil {
		t.Error("expected error for unsupported frequency")
	}
}

func TestFrequencyValid(t *testing.T) {
	for _, f := range Frequencies {
		if !f.Valid() {
			t.Errorf("%s should be valid", f)
		}
	}
	if Frequency("hourly").Valid() {
		t.Error("hourly should be invalid")
	}
}

func TestDaysIn(t *testing.T) {
	if DaysIn(2023, time.February) != 28 || DaysIn(2024, time.February) != 29 || DaysIn(2024, time.April) != 30 {
		t.Error("unexpected month lengths")
	}
}
