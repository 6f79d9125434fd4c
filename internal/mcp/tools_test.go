package mcp

import (
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	for _, c := range res.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	t.Fatal("no text content in result")
	return ""
}

func TestIntArg(t *testing.T) {
	args := map[string]any{
		"id":    float64(42), // JSON numbers arrive as float64
		"name":  "not a number",
		"big":   float64(9007199254740991),
		"float": 3.9,
	}

	id, err := intArg(args, "id")
	if err != nil || id != 42 {
		t.Errorf("expected 42, got %d (%v)", id, err)
	}
	if _, err := intArg(args, "name"); err == nil {
		t.Error("expected error for non-numeric argument")
	}
	if _, err := intArg(args, "missing"); err == nil {
		t.Error("expected error for absent argument")
	}
	if big, _ := intArg(args, "big"); big != 9007199254740991 {
		t.Errorf("large id mangled: %d", big)
	}
	if f, _ := intArg(args, "float"); f != 3 {
		t.Errorf("fractional input should truncate, got %d", f)
	}
}

func TestJSONResult(t *testing.T) {
	result, err := jsonResult(map[string]any{"id": 7, "name": "mop floor"})
	if err != nil {
		t.Fatalf("jsonResult: %v", err)
	}
	if result.IsError {
		t.Fatal("expected a success result")
	}
	text := resultText(t, result)
	if !strings.Contains(text, `"mop floor"`) {
		t.Errorf("serialized payload missing field: %s", text)
	}
}

func TestJSONResult_UnserializableValue(t *testing.T) {
	result, err := jsonResult(make(chan int))
	if err != nil {
		t.Fatalf("jsonResult must report failures in-band, got %v", err)
	}
	if !result.IsError {
		t.Error("expected an error result for an unserializable value")
	}
}

func TestNewServerRegistersTools(t *testing.T) {
	// Handlers are closures over the client and only dereference it when
	// called, so registration itself needs no upstream.
	if NewServer(nil, "test") == nil {
		t.Fatal("expected a server")
	}
}
