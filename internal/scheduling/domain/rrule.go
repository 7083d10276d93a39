package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

var ErrUnsupportedRRule = errors.New("unsupported RRULE")

// ParseRRule converts an iCalendar RRULE (with or without the "RRULE:"
// prefix) into a Recurrence. Only the shapes the engine can express are
// accepted: FREQ with INTERVAL, COUNT/UNTIL, BYDAY for weekly rules,
// BYMONTHDAY or a single ordinal BYDAY for monthly rules, and
// BYMONTH+BYMONTHDAY for yearly rules.
func ParseRRule(s string, loc *time.Location) (Recurrence, error) {
	if loc == nil {
		loc = time.Local
	}
	s = strings.TrimPrefix(strings.TrimSpace(s), "RRULE:")

	opt, err := rrule.StrToROptionInLocation(s, loc)
	if err != nil {
		return nil, fmt.Errorf("parse rrule: %w", err)
	}

	base := RecurrenceBase{Every: opt.Interval, End: RecurrenceEnd{Kind: EndNever}}
	switch {
	case opt.Count > 0:
		base.End = RecurrenceEnd{Kind: EndAfter, Count: opt.Count}
	case !opt.Until.IsZero():
		base.End = RecurrenceEnd{Kind: EndOn, On: opt.Until.In(loc)}
	}

	switch opt.Freq {
	case rrule.DAILY:
		return DailyRecurrence{RecurrenceBase: base}, nil

	case rrule.WEEKLY:
		days := make([]time.Weekday, 0, len(opt.Byweekday))
		for _, wd := range opt.Byweekday {
			days = append(days, fromRRuleWeekday(wd))
		}
		return WeeklyRecurrence{RecurrenceBase: base, Weekdays: NormalizeWeekdays(days)}, nil

	case rrule.MONTHLY:
		if len(opt.Bymonthday) == 1 {
			return MonthlyRecurrence{RecurrenceBase: base, Mode: MonthlyByDay, Day: opt.Bymonthday[0]}, nil
		}
		if len(opt.Byweekday) == 1 {
			wd := opt.Byweekday[0]
			nth := wd.N()
			if nth == 0 && len(opt.Bysetpos) == 1 {
				nth = opt.Bysetpos[0]
			}
			if nth != 0 {
				return MonthlyRecurrence{
					RecurrenceBase: base,
					Mode:           MonthlyByNthWeekday,
					Nth:            nth,
					Weekday:        fromRRuleWeekday(wd),
				}, nil
			}
		}
		return nil, fmt.Errorf("%w: monthly rule needs one BYMONTHDAY or one ordinal BYDAY", ErrUnsupportedRRule)

	case rrule.YEARLY:
		if len(opt.Bymonth) == 1 && len(opt.Bymonthday) == 1 {
			return YearlyRecurrence{
				RecurrenceBase: base,
				Month:          time.Month(opt.Bymonth[0]),
				Day:            opt.Bymonthday[0],
			}, nil
		}
		return nil, fmt.Errorf("%w: yearly rule needs BYMONTH and BYMONTHDAY", ErrUnsupportedRRule)
	}

	return nil, fmt.Errorf("%w: frequency %s", ErrUnsupportedRRule, opt.Freq)
}

// fromRRuleWeekday maps rrule's Monday-first numbering onto time.Weekday.
func fromRRuleWeekday(wd rrule.Weekday) time.Weekday {
	return time.Weekday((wd.Day() + 1) % 7)
}
