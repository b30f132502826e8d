package logging

import (
	"time"
)

// Field constructors. Durations are logged in their String form.

func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Domain field helpers
func Component(name string) Field {
	return String("component", name)
}

func RunID(id string) Field {
	return String("run_id", id)
}

func Output(kind string) Field {
	return String("output", kind)
}

func Type(name string) Field {
	return String("type", name)
}

func NodeID(id string) Field {
	return String("node_id", id)
}

func Relation(label string) Field {
	return String("relation", label)
}

func Destination(d string) Field {
	return String("destination", d)
}

func Latency(d time.Duration) Field {
	return Duration("latency", d)
}

func Count(n int) Field {
	return Int("count", n)
}
