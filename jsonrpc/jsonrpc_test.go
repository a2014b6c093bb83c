package jsonrpc

import "testing"

func TestNewRequestMarshalsParams(t *testing.T) {
	req, err := NewRequest("abc", "llm/v1.generate", map[string]any{"prompt": "hi"})
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if req.Method != "llm/v1.generate" || req.JSONRPC != "2.0" {
		t.Fatalf("unexpected request: %+v", req)
	}
}

func TestResponseResultMap(t *testing.T) {
	resp, err := Success("abc", map[string]any{"n": 5})
	if err != nil {
		t.Fatalf("Success: %v", err)
	}
	m, err := resp.ResultMap()
	if err != nil {
		t.Fatalf("ResultMap: %v", err)
	}
	if m["n"].(float64) != 5 {
		t.Fatalf("unexpected result map: %v", m)
	}
}

func TestErrorRetryable(t *testing.T) {
	cases := []struct {
		code      int
		retryable bool
	}{
		{CodeMethodNotFound, false},
		{CodeInvalidParams, false},
		{CodeInternalError, true},
		{-32001, true},
	}
	for _, c := range cases {
		e := &Error{Code: c.code}
		if e.Retryable() != c.retryable {
			t.Fatalf("code %d: expected retryable=%v", c.code, c.retryable)
		}
	}
}
