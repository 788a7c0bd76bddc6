package medication

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Canonical reminder times for known frequency phrases. Phrases are matched
// after lowercasing the input; anything unrecognized falls back to the
// "once daily" slot.
var reminderTimes = map[string][]string{
	"once daily":        {"09:00"},
	"twice daily":       {"09:00", "21:00"},
	"three times a day": {"09:00", "14:00", "21:00"},
	"four times a day":  {"09:00", "13:00", "17:00", "21:00"},
	"every morning":     {"09:00"},
	"every night":       {"21:00"},
	"every evening":     {"18:00"},
	"before breakfast":  {"08:00"},
	"after breakfast":   {"10:00"},
	"before lunch":      {"12:00"},
	"after lunch":       {"14:00"},
	"before dinner":     {"19:00"},
	"after dinner":      {"21:00"},
}

// numericFrequency matches phrases like "3 times daily" or "5 times a day".
var numericFrequency = regexp.MustCompile(`(\d+)\s*times?\s*(daily|a day)`)

// Dosing window for computed schedules: first slot at 09:00, last no later
// than 21:00.
const (
	windowStartHour = 9
	windowEndHour   = 21
)

// Schedule derives daily reminder slots from a free-text frequency phrase.
// It is total: any input yields at least one slot. Slot IDs are not
// assigned here; callers that persist slots attach them.
func Schedule(frequency string) []ReminderSlot {
	freq := strings.ToLower(frequency)

	// A numeric phrase outside the canonical table gets evenly spaced
	// slots across the dosing window.
	if m := numericFrequency.FindStringSubmatch(freq); m != nil {
		if _, known := reminderTimes[freq]; !known {
			n, err := strconv.Atoi(m[1])
			if err == nil && n > 0 {
				return spacedSlots(n)
			}
		}
	}

	times, ok := reminderTimes[freq]
	if !ok {
		times = reminderTimes["once daily"]
	}
	return slotsAt(times)
}

func spacedSlots(n int) []ReminderSlot {
	if n == 1 {
		return slotsAt(reminderTimes["once daily"])
	}

	interval := (windowEndHour - windowStartHour) / (n - 1)
	slots := make([]ReminderSlot, n)
	for i := 0; i < n; i++ {
		hour := windowStartHour + i*interval
		slots[i] = ReminderSlot{
			Time:    fmt.Sprintf("%02d:00", hour),
			Enabled: true,
		}
	}
	return slots
}

func slotsAt(times []string) []ReminderSlot {
	slots := make([]ReminderSlot, len(times))
	for i, t := range times {
		slots[i] = ReminderSlot{Time: t, Enabled: true}
	}
	return slots
}
