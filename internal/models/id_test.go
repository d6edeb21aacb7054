package models

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseAlertID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    AlertID
		wantErr bool
	}{
		{"fixed", "fixed:3", FixedID(3), false},
		{"user", "user:abc-123", UserID("abc-123"), false},
		{"bare key", "abc-123", UserID("abc-123"), false},
		{"empty", "", AlertID{}, true},
		{"fixed zero", "fixed:0", AlertID{}, true},
		{"fixed nan", "fixed:x", AlertID{}, true},
		{"user empty", "user:", AlertID{}, true},
		{"unknown kind", "system:1", AlertID{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAlertID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAlertID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAlertID) {
					t.Errorf("expected ErrInvalidAlertID, got %v", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ParseAlertID(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestAlertIDAccessors(t *testing.T) {
	f := FixedID(7)
	if !f.IsFixed() || f.Index() != 7 || f.Key() != "" || f.String() != "fixed:7" {
		t.Errorf("unexpected fixed id accessors: %+v", f)
	}

	u := UserID("k")
	if u.IsFixed() || u.Kind() != KindUser || u.Key() != "k" || u.String() != "user:k" {
		t.Errorf("unexpected user id accessors: %+v", u)
	}

	if !(AlertID{}).IsZero() {
		t.Error("zero id should report IsZero")
	}
	if NewUserID() == NewUserID() {
		t.Error("NewUserID should return distinct ids")
	}
}

func TestAlertIDJSON(t *testing.T) {
	in := struct {
		ID AlertID `json:"id"`
	}{ID: FixedID(2)}

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `{"id":"fixed:2"}` {
		t.Errorf("Marshal() = %s", data)
	}

	var out struct {
		ID AlertID `json:"id"`
	}
	if err := json.Unmarshal([]byte(`{"id":"user:xyz"}`), &out); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if out.ID != UserID("xyz") {
		t.Errorf("Unmarshal() = %v", out.ID)
	}
}

func TestAlertIDScan(t *testing.T) {
	var id AlertID
	if err := id.Scan([]byte("fixed:4")); err != nil || id != FixedID(4) {
		t.Errorf("Scan([]byte) = %v, %v", id, err)
	}
	if err := id.Scan(42); err == nil {
		t.Error("Scan(int) should fail")
	}
	if _, err := (AlertID{}).Value(); err == nil {
		t.Error("Value() on zero id should fail")
	}
}

func TestAlertIDMapKey(t *testing.T) {
	seen := map[AlertID]int{}
	seen[FixedID(1)]++
	seen[FixedID(1)]++
	seen[UserID("a")]++
	if seen[FixedID(1)] != 2 || len(seen) != 2 {
		t.Errorf("unexpected map contents: %v", seen)
	}
}
