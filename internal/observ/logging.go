package observ

import (
	"encoding/json"
	"fmt"
	"time"
)

// Log emits one JSON line for an operational event. Components use this
// for loop/stage events; per-batch worker chatter stays on log.Printf.
func Log(event string, kv map[string]any) {
	if kv == nil {
		kv = map[string]any{}
	}
	kv["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	kv["event"] = event
	b, _ := json.Marshal(kv)
	fmt.Println(string(b))
}

// Warn emits a warning-level event line.
func Warn(event string, kv map[string]any) {
	if kv == nil {
		kv = map[string]any{}
	}
	kv["level"] = "warn"
	Log(event, kv)
}
