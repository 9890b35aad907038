package service

import (
	"fmt"
	"time"
)

// FormatDuration renders d as HH:MM:SS. Hours are total hours and never wrap;
// a negative duration keeps its sign ("-00:05:00").
func FormatDuration(d time.Duration) string {
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	d = d.Truncate(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%s%02d:%02d:%02d", sign, int64(h), int64(m), int64(s))
}
