package hxlookup

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestIsHTMX(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if IsHTMX(r) {
		t.Error("plain request reported as HTMX")
	}
	r.Header.Set("HX-Request", "true")
	if !IsHTMX(r) {
		t.Error("HX-Request not detected")
	}
}

func TestBuildTriggerHeader(t *testing.T) {
	tests := []struct {
		name   string
		events []TriggerEvent
		want   string
	}{
		{"none", nil, ""},
		{"single name", []TriggerEvent{{Name: "refresh"}}, "refresh"},
		{"names only", []TriggerEvent{{Name: "a"}, {Name: "b"}}, "a, b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildTriggerHeader(tt.events); got != tt.want {
				t.Errorf("BuildTriggerHeader = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildTriggerHeaderWithData(t *testing.T) {
	got := BuildTriggerHeader([]TriggerEvent{
		{Name: "lookup:cleared", Data: map[string]any{"selectedId": nil, "key": "row-1", "fieldName": "AccountId"}},
		{Name: "lookup:unlock"},
	})
	var decoded map[string]any
	if err := json.Unmarshal([]byte(got), &decoded); err != nil {
		t.Fatalf("not JSON: %q", got)
	}
	cleared, ok := decoded["lookup:cleared"].(map[string]any)
	if !ok {
		t.Fatalf("lookup:cleared = %v", decoded["lookup:cleared"])
	}
	if v, present := cleared["selectedId"]; !present || v != nil {
		t.Errorf("selectedId should be JSON null, got %v (present %v)", v, present)
	}
	if decoded["lookup:unlock"] != true {
		t.Errorf("event without data should be true, got %v", decoded["lookup:unlock"])
	}
}
