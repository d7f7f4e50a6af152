package models

import (
	"encoding/json"
	"math"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// Metadata.Value / Scan
// ---------------------------------------------------------------------------

func TestMetadata_Value_NilIsEmptyObject(t *testing.T) {
	var m Metadata
	v, err := m.Value()
	if err != nil {
		t.Fatalf("Value() error = %v", err)
	}
	if string(v.([]byte)) != "{}" {
		t.Errorf("Value() = %s, want {}", v)
	}
}

func TestMetadata_Value_Marshals(t *testing.T) {
	m := Metadata{"route": "/dashboard", "is_weekend": false}
	v, err := m.Value()
	if err != nil {
		t.Fatalf("Value() error = %v", err)
	}
	var back map[string]any
	if err := json.Unmarshal(v.([]byte), &back); err != nil {
		t.Fatalf("stored value is not JSON: %v", err)
	}
	if back["route"] != "/dashboard" {
		t.Errorf("route = %v, want /dashboard", back["route"])
	}
}

func TestMetadata_Value_UnsupportedType(t *testing.T) {
	m := Metadata{"ch": make(chan int)}
	if _, err := m.Value(); err == nil {
		t.Error("Value() should fail for a channel")
	}
}

func TestMetadata_Scan(t *testing.T) {
	tests := []struct {
		name    string
		src     any
		wantLen int
		wantErr bool
	}{
		{"nil", nil, 0, false},
		{"bytes", []byte(`{"a":1,"b":"x"}`), 2, false},
		{"string", `{"a":1}`, 1, false},
		{"empty bytes", []byte{}, 0, false},
		{"invalid json", []byte(`{`), 0, true},
		{"wrong type", 42, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m Metadata
			err := m.Scan(tt.src)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Scan() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && len(m) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(m), tt.wantLen)
			}
			if !tt.wantErr && m == nil {
				t.Error("Scan() should never leave a nil map")
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Metadata.Merge / Clone
// ---------------------------------------------------------------------------

func TestMetadata_Merge_OverWins(t *testing.T) {
	base := Metadata{"is_unusual": "caller", "keep": 1}
	out := base.Merge(Metadata{"is_unusual": true})

	if out["is_unusual"] != true {
		t.Errorf("is_unusual = %v, want true", out["is_unusual"])
	}
	if out["keep"] != 1 {
		t.Errorf("keep = %v, want 1", out["keep"])
	}
	if base["is_unusual"] != "caller" {
		t.Error("Merge must not modify the receiver")
	}
}

func TestMetadata_Merge_NilReceiver(t *testing.T) {
	var m Metadata
	out := m.Merge(Metadata{"a": 1})
	if len(out) != 1 {
		t.Errorf("len = %d, want 1", len(out))
	}
}

func TestMetadata_Clone_Independent(t *testing.T) {
	m := Metadata{"a": 1}
	c := m.Clone()
	c["a"] = 2
	if m["a"] != 1 {
		t.Error("Clone shares the top-level map")
	}
}

// ---------------------------------------------------------------------------
// Metadata.Float / Bool
// ---------------------------------------------------------------------------

func TestMetadata_Float(t *testing.T) {
	m := Metadata{
		"f64":  12.5,
		"int":  3,
		"i64":  int64(4),
		"f32":  float32(1.5),
		"num":  json.Number("7.25"),
		"nan":  math.NaN(),
		"text": "12",
	}
	tests := []struct {
		key    string
		want   float64
		wantOK bool
	}{
		{"f64", 12.5, true},
		{"int", 3, true},
		{"i64", 4, true},
		{"f32", 1.5, true},
		{"num", 7.25, true},
		{"nan", 0, false},
		{"text", 0, false},
		{"missing", 0, false},
	}
	for _, tt := range tests {
		got, ok := m.Float(tt.key)
		if ok != tt.wantOK {
			t.Errorf("Float(%q) ok = %v, want %v", tt.key, ok, tt.wantOK)
		}
		if ok && got != tt.want {
			t.Errorf("Float(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestMetadata_Bool(t *testing.T) {
	m := Metadata{"yes": true, "str": "true"}
	if v, ok := m.Bool("yes"); !ok || !v {
		t.Error("Bool(yes) should be true")
	}
	if _, ok := m.Bool("str"); ok {
		t.Error("Bool(str) should not accept strings")
	}
}

// ---------------------------------------------------------------------------
// ActivityLog helpers
// ---------------------------------------------------------------------------

func TestActivityLog_IsUnusual(t *testing.T) {
	l := &ActivityLog{Metadata: Metadata{MetaIsUnusual: true}}
	if !l.IsUnusual() {
		t.Error("IsUnusual() should read the stored flag")
	}
	if (&ActivityLog{}).IsUnusual() {
		t.Error("IsUnusual() should be false without metadata")
	}
}

func TestActivityLog_ResponseTimeMS(t *testing.T) {
	l := &ActivityLog{Metadata: Metadata{MetaResponseTimeMS: 150.25}}
	if v, ok := l.ResponseTimeMS(); !ok || v != 150.25 {
		t.Errorf("ResponseTimeMS() = %v/%v, want 150.25", v, ok)
	}
}

// ---------------------------------------------------------------------------
// Sales entity attributes
// ---------------------------------------------------------------------------

func TestCircuit_Attributes_FlattenOptionalColumns(t *testing.T) {
	c := &Circuit{ID: 1, Code: "C1", Name: "Centro"}
	attrs := c.Attributes()
	if attrs["zonal_id"] != nil || attrs["address"] != nil {
		t.Errorf("nil pointers should become nil attributes, got %v / %v", attrs["zonal_id"], attrs["address"])
	}

	zonal := int64(4)
	c.ZonalID = &zonal
	if c.Attributes()["zonal_id"] != int64(4) {
		t.Errorf("zonal_id = %v, want 4", c.Attributes()["zonal_id"])
	}
	if c.EntityType() != "Circuit" || c.EntityID() != 1 {
		t.Errorf("EntityType/ID = %s/%d", c.EntityType(), c.EntityID())
	}
}

func TestEntityAttributes_IncludeTimestamps(t *testing.T) {
	now := time.Now()
	entities := []interface {
		EntityType() string
		Attributes() Metadata
	}{
		&Circuit{UpdatedAt: now},
		&Tack{UpdatedAt: now},
		&Seller{UpdatedAt: now},
		&Share{UpdatedAt: now},
	}
	for _, e := range entities {
		attrs := e.Attributes()
		if _, ok := attrs["updated_at"]; !ok {
			t.Errorf("%s attributes lack updated_at", e.EntityType())
		}
		if _, ok := attrs["id"]; !ok {
			t.Errorf("%s attributes lack id", e.EntityType())
		}
	}
}
