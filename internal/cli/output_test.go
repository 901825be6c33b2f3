package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestTableRendersRows(t *testing.T) {
	var data, msg bytes.Buffer
	out := newOutputTo(false, &data, &msg)

	out.Table([]string{"ID", "STATUS"}, [][]string{
		{"s-1", "ACTIVE"},
		{"s-2", "PAUSED"},
	})

	got := data.String()
	for _, want := range []string{"ID", "STATUS", "s-1", "ACTIVE", "s-2", "PAUSED"} {
		if !strings.Contains(got, want) {
			t.Errorf("table output missing %q:\n%s", want, got)
		}
	}
}

func TestTableEmptyShowsPlaceholder(t *testing.T) {
	var data, msg bytes.Buffer
	out := newOutputTo(false, &data, &msg)

	out.Table([]string{"ID", "STATUS"}, nil)

	if got := data.String(); !strings.Contains(got, "(no results)") {
		t.Errorf("empty table output = %q, want placeholder", got)
	}
}

func TestPrintJSONModeGoesToDataWriter(t *testing.T) {
	var data, msg bytes.Buffer
	out := newOutputTo(true, &data, &msg)

	out.Print([]string{"ID"}, [][]string{{"s-1"}}, map[string]string{"id": "s-1"})

	var decoded map[string]string
	if err := json.Unmarshal(data.Bytes(), &decoded); err != nil {
		t.Fatalf("stdout is not valid JSON: %v\n%s", err, data.String())
	}
	if decoded["id"] != "s-1" {
		t.Errorf("decoded id = %q, want s-1", decoded["id"])
	}
	// stdout должен остаться чистым JSON: сообщений там нет
	if msg.Len() != 0 {
		t.Errorf("unexpected messages: %q", msg.String())
	}
}

func TestMessagesGoToErrWriter(t *testing.T) {
	var data, msg bytes.Buffer
	out := newOutputTo(false, &data, &msg)

	out.Success("done")
	out.Warn("self-loop on stage review")
	out.Error("boom")

	if data.Len() != 0 {
		t.Errorf("messages leaked into data writer: %q", data.String())
	}
	got := msg.String()
	if !strings.Contains(got, "done") {
		t.Errorf("missing success message: %q", got)
	}
	if !strings.Contains(got, "Warning: self-loop on stage review") {
		t.Errorf("missing warning: %q", got)
	}
	if !strings.Contains(got, "Error: boom") {
		t.Errorf("missing error: %q", got)
	}
}
