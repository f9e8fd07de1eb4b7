package id_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/arpit-jain-mygit/doc-transcribe-worker/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		fn     func() id.ID
		prefix id.Prefix
	}{
		{"DLQ", id.NewDLQID, id.PrefixDLQ},
		{"Worker", id.NewWorkerID, id.PrefixWorker},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.fn()
			if got.IsNil() {
				t.Fatal("expected non-nil ID")
			}
			if got.Prefix() != tt.prefix {
				t.Errorf("Prefix() = %q, want %q", got.Prefix(), tt.prefix)
			}
			if !strings.HasPrefix(got.String(), string(tt.prefix)+"_") {
				t.Errorf("String() = %q, want prefix %q", got.String(), tt.prefix+"_")
			}
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	orig := id.NewDLQID()
	parsed, err := id.ParseDLQID(orig.String())
	if err != nil {
		t.Fatalf("ParseDLQID: %v", err)
	}
	if parsed.String() != orig.String() {
		t.Errorf("round trip = %q, want %q", parsed.String(), orig.String())
	}
}

func TestCrossTypeRejection(t *testing.T) {
	w := id.NewWorkerID()
	if _, err := id.ParseDLQID(w.String()); err == nil {
		t.Error("expected error parsing a worker ID as a DLQ ID")
	}
}

func TestParseEmpty(t *testing.T) {
	if _, err := id.Parse(""); err == nil {
		t.Error("expected error for empty string")
	}
}

func TestNilID(t *testing.T) {
	var n id.ID
	if !n.IsNil() {
		t.Error("zero ID should be nil")
	}
	if n.String() != "" {
		t.Errorf("Nil.String() = %q, want empty", n.String())
	}
	if n.Prefix() != "" {
		t.Errorf("Nil.Prefix() = %q, want empty", n.Prefix())
	}
}

func TestMarshalUnmarshalJSON(t *testing.T) {
	type wrapper struct {
		ID id.ID `json:"id"`
	}
	orig := wrapper{ID: id.NewDLQID()}
	b, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got wrapper
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.ID.String() != orig.ID.String() {
		t.Errorf("ID = %q, want %q", got.ID.String(), orig.ID.String())
	}

	var empty wrapper
	if err := json.Unmarshal([]byte(`{"id":""}`), &empty); err != nil {
		t.Fatalf("Unmarshal empty: %v", err)
	}
	if !empty.ID.IsNil() {
		t.Error("expected Nil ID for empty string")
	}
}

func TestUniqueness(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for range 1000 {
		s := id.NewDLQID().String()
		if _, dup := seen[s]; dup {
			t.Fatalf("duplicate ID %q", s)
		}
		seen[s] = struct{}{}
	}
}
