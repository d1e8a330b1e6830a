package logging

import (
	"time"
)

// Common field constructors
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
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

func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Component field helpers for common component names
func Component(name string) Field {
	return String("component", name)
}

func Operation(op string) Field {
	return String("operation", op)
}

func Latency(d time.Duration) Field {
	return Duration("latency", d)
}

func Count(n int) Field {
	return Int("count", n)
}

// Domain field helpers

func NodeID(id string) Field {
	return String("node_id", id)
}

func EdgeKey(source, target string) Field {
	return String("edge", source+"->"+target)
}

func PredictionID(id string) Field {
	return String("prediction_id", id)
}

func StrategyID(id string) Field {
	return String("strategy_id", id)
}

func Disaster(disasterType string) Field {
	return String("disaster_type", disasterType)
}

func Mode(failureMode string) Field {
	return String("failure_mode", failureMode)
}

func Risk(r float64) Field {
	return Float64("risk", r)
}

func Probability(p float64) Field {
	return Float64("cascade_probability", p)
}

func Step(n int) Field {
	return Int("step", n)
}

func Affected(n int) Field {
	return Int("affected_nodes", n)
}
