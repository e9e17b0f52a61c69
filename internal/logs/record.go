package logs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Record is one decoded line of the JSON log file.
type Record struct {
	Time      time.Time
	Level     slog.Level
	Component string
	Message   string
	Attrs     map[string]any
}

// ParseRecord decodes a JSON log line. Lines that are not JSON objects (for
// example a crash trace appended by the shell) report false.
func ParseRecord(line string) (Record, bool) {
	dec := json.NewDecoder(strings.NewReader(line))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil || raw == nil {
		return Record{}, false
	}

	rec := Record{Attrs: make(map[string]any, len(raw))}
	for key, value := range raw {
		switch key {
		case "ts", slog.TimeKey:
			if s, ok := value.(string); ok {
				rec.Time, _ = time.Parse(time.RFC3339Nano, s)
			}
		case slog.LevelKey:
			if s, ok := value.(string); ok {
				_ = rec.Level.UnmarshalText([]byte(s))
			}
		case slog.MessageKey:
			rec.Message, _ = value.(string)
		case "component":
			rec.Component, _ = value.(string)
		default:
			rec.Attrs[key] = value
		}
	}
	return rec, true
}

// Filter selects records by minimum level and component.
type Filter struct {
	MinLevel  slog.Level
	Component string
}

// Match reports whether rec passes the filter.
func (f Filter) Match(rec Record) bool {
	if rec.Level < f.MinLevel {
		return false
	}
	return f.Component == "" || strings.EqualFold(f.Component, rec.Component)
}

// Format renders rec in the same shape as the console handler:
//
//	15:04:05 INFO  library pose saved character=Heroes/Ada
func Format(rec Record, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	var buf bytes.Buffer
	if rec.Time.IsZero() {
		buf.WriteString("--:--:--")
	} else {
		buf.WriteString(rec.Time.In(loc).Format(time.TimeOnly))
	}
	buf.WriteByte(' ')
	fmt.Fprintf(&buf, "%-5s ", rec.Level.String())
	if rec.Component != "" {
		buf.WriteString(rec.Component)
		buf.WriteByte(' ')
	}
	if rec.Message == "" {
		buf.WriteString("(no message)")
	} else {
		buf.WriteString(rec.Message)
	}

	keys := make([]string, 0, len(rec.Attrs))
	for key := range rec.Attrs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		buf.WriteByte(' ')
		buf.WriteString(key)
		buf.WriteByte('=')
		buf.WriteString(formatAttr(rec.Attrs[key]))
	}
	return buf.String()
}

func formatAttr(value any) string {
	switch typed := value.(type) {
	case string:
		if typed == "" || strings.ContainsAny(typed, " \t\"=") {
			return strconv.Quote(typed)
		}
		return typed
	case json.Number:
		return typed.String()
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(typed)
	default:
		data, err := json.Marshal(typed)
		if err != nil {
			return fmt.Sprint(typed)
		}
		return string(data)
	}
}
