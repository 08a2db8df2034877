package helpers

import (
	"context"
	"fmt"
	"strings"
	"time"

	mailtpl "github.com/oksasatya/eventhub/pkg/mailer/templates"
)

// LocalizeTimesIfPossible rewrites the display strings of EventDate and TimeAt
// into the timezone the job's IP resolves to. Data is left untouched otherwise.
func LocalizeTimesIfPossible(ctx context.Context, resolver mailtpl.GeoResolver, data map[string]any) {
	if resolver == nil {
		return
	}
	ipVal, ok := data["IP"]
	if !ok || ipVal == nil || fmt.Sprintf("%v", ipVal) == "" {
		return
	}
	g, err := resolver.Lookup(ctx, fmt.Sprintf("%v", ipVal))
	if err != nil || strings.TrimSpace(g.Timezone) == "" {
		return
	}
	loc, err := time.LoadLocation(g.Timezone)
	if err != nil {
		return
	}
	LocalizeTimes(data, loc)
	if s := mailtpl.FormatGeo(g); s != "" {
		if v, ok := data["Location"]; !ok || fmt.Sprintf("%v", v) == "" {
			data["Location"] = s
		}
	}
}

// LocalizeTimes formats EventDate and TimeAt in loc.
func LocalizeTimes(data map[string]any, loc *time.Location) {
	if v, ok := data["EventDate"]; ok {
		if t, ok2 := parseTimeAny(v); ok2 && !t.IsZero() {
			data["EventDateText"] = mailtpl.FormatEventDate(t, loc)
		}
	}
	if v, ok := data["TimeAt"]; ok {
		if t, ok2 := parseTimeAny(v); ok2 && !t.IsZero() {
			data["Time"] = t.In(loc).Format("02 January 2006, 15:04 MST")
		}
	}
}

func parseTimeAny(v any) (time.Time, bool) {
	if t, ok := v.(time.Time); ok {
		return t, true
	}
	s := fmt.Sprintf("%v", v)
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05 -0700 MST",
		"2006-01-02 15:04:05 -0700",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
