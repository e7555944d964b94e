package trace

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNilWriterIsANoop(t *testing.T) {
	w := NewWriter(nil)
	w.Counter("inflight_tasks", 3)
	w.TaskCreated("t1", "node-1", 1, 0, 1024, "Filter-Project")
	if err := w.Finalize(); err != nil {
		t.Fatalf("Finalize on a disabled writer should never error, got: %v", err)
	}
}

func TestWriterEmitsAValidJSONArray(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Counter("inflight_tasks", 2)
	w.TaskCreated("t1", "node-1", 2, 0, 512, "ReadFile")
	w.TaskDispatched("t1")
	w.TaskCompleted("t1", "node-1")
	if err := w.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	var events []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &events); err != nil {
		t.Fatalf("trace output is not valid JSON: %v\noutput: %s", err, buf.String())
	}
	if len(events) != 5 {
		t.Fatalf("expected 5 events (1 counter + 2 per async pair), got %d: %v", len(events), events)
	}
}

func TestDispatchWaveBracketsTheCallback(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	called := false
	w.DispatchWave(1, func() { called = true })
	w.Finalize()

	if !called {
		t.Fatal("DispatchWave should invoke fn")
	}
	out := buf.String()
	if !strings.Contains(out, `"ph":"B"`) || !strings.Contains(out, `"ph":"E"`) {
		t.Errorf("DispatchWave should bracket with begin/end duration events, got: %s", out)
	}
}

func TestWriteProcessNamesEmitsOneMetadataEventPerPID(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.WriteProcessNames(map[int]string{100: "node-a", 101: "node-b"})
	w.Finalize()

	var events []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &events); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("expected 2 fixed (Scheduler, Stages) + 2 node metadata events, got %d", len(events))
	}
}
