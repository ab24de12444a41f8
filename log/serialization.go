package log

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"
)

// LogMessageWire is the JSON wire format of a log record sent by a guest
// script through the log_message host function.
type LogMessageWire struct {
	Timestamp time.Time     `json:"timestamp"`
	Attrs     []LogAttrWire `json:"attrs,omitempty"`
	Level     string        `json:"level"`
	Message   string        `json:"message"`
	// Logger is the guest-side logger name.
	Logger string `json:"logger,omitempty"`
}

// LogAttrWire represents a single attribute for wire transfer.
type LogAttrWire struct {
	Key   string `json:"key"`
	Type  string `json:"type"`  // "string", "int64", "uint64", "bool", "float64", "time", "duration", "error", "json", "any"
	Value string `json:"value"` // String representation of the value
}

// EncodeRecord converts a slog.Record to its wire form.
func EncodeRecord(r slog.Record) LogMessageWire {
	msg := LogMessageWire{
		Timestamp: r.Time,
		Level:     r.Level.String(),
		Message:   r.Message,
	}
	r.Attrs(func(a slog.Attr) bool {
		msg.Attrs = append(msg.Attrs, toLogAttrWire(a))
		return true
	})
	return msg
}

// Record rebuilds a slog.Record. Unknown levels map to INFO and attributes
// that fail to parse are kept as strings.
func (m LogMessageWire) Record() slog.Record {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	r := slog.NewRecord(ts, parseWireLevel(m.Level), m.Message, 0)
	for _, a := range m.Attrs {
		r.AddAttrs(fromLogAttrWire(a))
	}
	if m.Logger != "" {
		r.AddAttrs(slog.String("logger", m.Logger))
	}
	return r
}

// Emit re-emits the message through logger's handler.
func (m LogMessageWire) Emit(ctx context.Context, logger *slog.Logger) error {
	r := m.Record()
	h := logger.Handler()
	if !h.Enabled(ctx, r.Level) {
		return nil
	}
	return h.Handle(ctx, r)
}

func parseWireLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		if lvl, perr := ParseLevel(s); perr == nil {
			return lvl
		}
		return slog.LevelInfo
	}
	return l
}

// toLogAttrWire converts a slog.Attr to LogAttrWire.
func toLogAttrWire(attr slog.Attr) LogAttrWire {
	wire := LogAttrWire{Key: attr.Key}
	attr.Value = attr.Value.Resolve()

	switch attr.Value.Kind() {
	case slog.KindString:
		wire.Type = "string"
		wire.Value = attr.Value.String()
	case slog.KindInt64:
		wire.Type = "int64"
		wire.Value = strconv.FormatInt(attr.Value.Int64(), 10)
	case slog.KindUint64:
		wire.Type = "uint64"
		wire.Value = strconv.FormatUint(attr.Value.Uint64(), 10)
	case slog.KindBool:
		wire.Type = "bool"
		wire.Value = strconv.FormatBool(attr.Value.Bool())
	case slog.KindFloat64:
		wire.Type = "float64"
		wire.Value = strconv.FormatFloat(attr.Value.Float64(), 'g', -1, 64)
	case slog.KindTime:
		wire.Type = "time"
		wire.Value = attr.Value.Time().Format(time.RFC3339Nano)
	case slog.KindDuration:
		wire.Type = "duration"
		wire.Value = attr.Value.Duration().String()
	case slog.KindAny:
		v := attr.Value.Any()
		if v == nil {
			wire.Type = "any"
			wire.Value = "<nil>"
			break
		}
		if err, isErr := v.(error); isErr {
			wire.Type = "error"
			wire.Value = err.Error()
		} else if data, marshalErr := json.Marshal(v); marshalErr == nil {
			wire.Type = "json"
			wire.Value = string(data)
		} else {
			wire.Type = "any"
			wire.Value = fmt.Sprintf("%v", v)
		}
	default:
		wire.Type = "any"
		wire.Value = fmt.Sprintf("%v", attr.Value.Any())
	}
	return wire
}

// fromLogAttrWire converts a wire attribute back into a typed slog.Attr.
func fromLogAttrWire(w LogAttrWire) slog.Attr {
	switch w.Type {
	case "int64":
		if v, err := strconv.ParseInt(w.Value, 10, 64); err == nil {
			return slog.Int64(w.Key, v)
		}
	case "uint64":
		if v, err := strconv.ParseUint(w.Value, 10, 64); err == nil {
			return slog.Uint64(w.Key, v)
		}
	case "bool":
		if v, err := strconv.ParseBool(w.Value); err == nil {
			return slog.Bool(w.Key, v)
		}
	case "float64":
		if v, err := strconv.ParseFloat(w.Value, 64); err == nil {
			return slog.Float64(w.Key, v)
		}
	case "time":
		if v, err := time.Parse(time.RFC3339Nano, w.Value); err == nil {
			return slog.Time(w.Key, v)
		}
	case "duration":
		if v, err := time.ParseDuration(w.Value); err == nil {
			return slog.Duration(w.Key, v)
		}
	case "json":
		var v any
		if err := json.Unmarshal([]byte(w.Value), &v); err == nil {
			return slog.Any(w.Key, v)
		}
	}
	return slog.String(w.Key, w.Value)
}
