package vm

import "time"

func registerTemporalMethods(b *Builtins) {
	dt := b.DateTimes
	Help.Set(dt.Property("epoch", func(p *Process, d DateTime) (Value, error) {
		return Int(d.Epoch()), nil
	}, nil), "datetime.epoch: Seconds since the Unix epoch.")
	dt.Method("toEpoch", func(p *Process, d DateTime, args *CallArgs) (Value, error) {
		return Int(d.Epoch()), nil
	})
	dt.Method("date", func(p *Process, d DateTime, args *CallArgs) (Value, error) {
		return DateOf(d.t), nil
	})
	dt.Method("time", func(p *Process, d DateTime, args *CallArgs) (Value, error) {
		return String(d.t.Format("15:04:05")), nil
	})
	dt.Method("format", func(p *Process, d DateTime, args *CallArgs) (Value, error) {
		return formatTime(d.t, args, "yyyy-MM-dd HH:mm:ss")
	})
	dt.Method("toIso", func(p *Process, d DateTime, args *CallArgs) (Value, error) {
		return String(d.t.Format(time.RFC3339)), nil
	})
	calendarProperties(dt, func(d DateTime) time.Time { return d.t })
	dt.Property("hour", func(p *Process, d DateTime) (Value, error) { return Int(d.t.Hour()), nil }, nil)
	dt.Property("minute", func(p *Process, d DateTime) (Value, error) { return Int(d.t.Minute()), nil }, nil)
	dt.Property("second", func(p *Process, d DateTime) (Value, error) { return Int(d.t.Second()), nil }, nil)

	dates := b.Dates
	dates.Method("format", func(p *Process, d Date, args *CallArgs) (Value, error) {
		return formatTime(d.t, args, "yyyy-MM-dd")
	})
	dates.Method("toDateTime", func(p *Process, d Date, args *CallArgs) (Value, error) {
		return NewDateTime(d.t), nil
	})
	calendarProperties(dates, func(d Date) time.Time { return d.t })

	durations := b.Durations
	for _, u := range []struct {
		name string
		unit time.Duration
	}{
		{"seconds", time.Second},
		{"minutes", time.Minute},
		{"hours", time.Hour},
		{"days", 24 * time.Hour},
		{"weeks", 7 * 24 * time.Hour},
	} {
		durations.Property(u.name, func(p *Process, d Duration) (Value, error) {
			return Int(d.d / u.unit), nil
		}, nil)
	}
}

func calendarProperties[T Value](t *TypedTable[T], get func(T) time.Time) {
	t.Property("year", func(p *Process, v T) (Value, error) { return Int(get(v).Year()), nil }, nil)
	t.Property("month", func(p *Process, v T) (Value, error) { return Int(get(v).Month()), nil }, nil)
	t.Property("day", func(p *Process, v T) (Value, error) { return Int(get(v).Day()), nil }, nil)
	t.Property("weekday", func(p *Process, v T) (Value, error) { return Int(get(v).Weekday()), nil }, nil)
}

func formatTime(t time.Time, args *CallArgs, def string) (Value, error) {
	pattern, err := args.OptionalString(0, def)
	if err != nil {
		return nil, err
	}
	return String(t.Format(GoLayout(pattern))), nil
}
