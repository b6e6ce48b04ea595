package otp

import "time"

// ElectionOpen builds the schedule predicate evaluated in loc. Both minute
// bounds are inclusive.
func ElectionOpen(loc *time.Location) OpenPredicate {
	if loc == nil {
		loc = time.UTC
	}
	return func(election *Election, now time.Time) bool {
		if election == nil || election.Window == nil {
			return true
		}
		w := election.Window

		local := now.In(loc)
		today := dayOf(local)
		start := dayOf(w.StartDate)
		end := dayOf(w.EndDate)
		minute := local.Hour()*60 + local.Minute()

		switch {
		case today > start && today < end:
			return true
		case today == start && today == end:
			return minute >= w.StartMinute && minute <= w.EndMinute
		case today == start && today < end:
			return minute >= w.StartMinute
		case today == end && today > start:
			return minute <= w.EndMinute
		default:
			return false
		}
	}
}

func dayOf(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}

func windowDetails(w *Window, now time.Time) map[string]any {
	details := map[string]any{"now": now}
	if w != nil {
		details["start_date"] = w.StartDate.Format(time.DateOnly)
		details["end_date"] = w.EndDate.Format(time.DateOnly)
		details["start_time"] = formatMinute(w.StartMinute)
		details["end_time"] = formatMinute(w.EndMinute)
	}
	return details
}

func formatMinute(m int) string {
	return time.Date(0, 1, 1, m/60, m%60, 0, 0, time.UTC).Format("15:04")
}
