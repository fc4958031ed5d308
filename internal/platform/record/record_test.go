package record

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

type referral struct {
	HospitalName string `json:"hospitalName"`
}

type sample struct {
	ID        string          `db:"id"`
	Name      string          `db:"name"`
	Age       int             `db:"age"`
	Weight    *float64        `db:"weight"`
	IsActive  bool            `db:"is_active"`
	BedID     *string         `db:"bed_id"`
	Kind      string          `db:"notification_type"`
	Tags      []string        `db:"tags"`
	Referral  *referral       `db:"hospital_referral"`
	Extra     json.RawMessage `db:"extra"`
	CreatedAt time.Time       `db:"created_at"`
	Ignored   string
}

var sampleSchema = SchemaFor[sample]("samples", Aliases("notification_type", "type"))

func TestSchemaFor(t *testing.T) {
	want := []string{"id", "name", "age", "weight", "is_active", "bed_id", "notification_type", "tags", "hospital_referral", "extra", "created_at"}
	got := sampleSchema.Names()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("Names() = %v, want %v", got, want)
	}

	kinds := map[string]Kind{
		"age":               Int,
		"weight":            Float,
		"is_active":         Bool,
		"bed_id":            String,
		"tags":              JSON,
		"hospital_referral": JSON,
		"extra":             JSON,
		"created_at":        Time,
	}
	for name, kind := range kinds {
		col, ok := sampleSchema.Column(name)
		if !ok {
			t.Fatalf("missing column %s", name)
		}
		if col.Kind != kind {
			t.Errorf("%s kind = %s, want %s", name, col.Kind, kind)
		}
	}
	if sampleSchema.OrderBy != "created_at" || sampleSchema.Ascending {
		t.Errorf("default ordering = %s asc=%v", sampleSchema.OrderBy, sampleSchema.Ascending)
	}
	if sampleSchema.NewID() == sampleSchema.NewID() {
		t.Error("expected distinct ids")
	}
}

func TestSchemaFor_PanicsWithoutID(t *testing.T) {
	type noID struct {
		Name string `db:"name"`
	}
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	SchemaFor[noID]("broken")
}

func TestNormalize_SnakeWins(t *testing.T) {
	vals, err := Normalize(sampleSchema, map[string]any{
		"bed_id":   "bed-snake",
		"bedId":    "bed-camel",
		"isActive": true,
		"unknown":  "dropped",
	})
	if err != nil {
		t.Fatalf("Normalize() error: %v", err)
	}
	if vals["bed_id"] != "bed-snake" {
		t.Errorf("bed_id = %v, want bed-snake", vals["bed_id"])
	}
	if vals["is_active"] != true {
		t.Errorf("is_active = %v, want true", vals["is_active"])
	}
	if _, ok := vals["unknown"]; ok {
		t.Error("unknown key should be dropped")
	}
	if len(vals) != 2 {
		t.Errorf("expected 2 values, got %d: %v", len(vals), vals)
	}
}

func TestNormalize_AliasesAndNulls(t *testing.T) {
	vals, err := Normalize(sampleSchema, map[string]any{
		"type":   "bed_request",
		"bedId":  nil,
		"age":    float64(3),
		"tags":   []any{"a", "b"},
		"weight": "12.5",
	})
	if err != nil {
		t.Fatalf("Normalize() error: %v", err)
	}
	if vals["notification_type"] != "bed_request" {
		t.Errorf("notification_type = %v", vals["notification_type"])
	}
	if v, ok := vals["bed_id"]; !ok || v != nil {
		t.Errorf("bed_id should be an explicit null, got %v (present=%v)", v, ok)
	}
	if vals["age"] != int64(3) {
		t.Errorf("age = %#v, want int64(3)", vals["age"])
	}
	if vals["weight"] != 12.5 {
		t.Errorf("weight = %#v, want 12.5", vals["weight"])
	}
	if string(vals["tags"].(json.RawMessage)) != `["a","b"]` {
		t.Errorf("tags = %s", vals["tags"])
	}
}

func TestNormalize_RejectsBadValues(t *testing.T) {
	if _, err := Normalize(sampleSchema, map[string]any{"age": 2.5}); err == nil {
		t.Error("expected error for fractional age")
	}
	if _, err := Normalize(sampleSchema, map[string]any{"isActive": "maybe"}); err == nil {
		t.Error("expected error for non-boolean isActive")
	}
}

func TestCamelCase(t *testing.T) {
	cases := map[string]string{
		"id":                  "id",
		"patient_id":          "patientId",
		"last_admission_date": "lastAdmissionDate",
		"is_read":             "isRead",
	}
	for in, want := range cases {
		if got := CamelCase(in); got != want {
			t.Errorf("CamelCase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEncodeDecodeStruct(t *testing.T) {
	bed := "bed-1"
	w := 9.5
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	in := sample{
		ID:        "s1",
		Name:      "Asha",
		Age:       3,
		Weight:    &w,
		IsActive:  true,
		BedID:     &bed,
		Tags:      []string{"x"},
		Referral:  &referral{HospitalName: "District"},
		CreatedAt: created,
	}

	vals, err := sampleSchema.Encode(&in)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if vals["extra"] != nil {
		t.Errorf("nil RawMessage should encode as null, got %v", vals["extra"])
	}
	if vals["age"] != int64(3) {
		t.Errorf("age = %#v", vals["age"])
	}

	var out sample
	if err := sampleSchema.Decode(vals, &out); err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if out.Name != "Asha" || out.Age != 3 || *out.Weight != 9.5 || !out.IsActive || *out.BedID != "bed-1" {
		t.Errorf("unexpected decode result: %+v", out)
	}
	if out.Referral == nil || out.Referral.HospitalName != "District" {
		t.Errorf("referral = %+v", out.Referral)
	}
	if !out.CreatedAt.Equal(created) {
		t.Errorf("created_at = %v", out.CreatedAt)
	}

	if err := sampleSchema.Decode(Values{"bed_id": nil}, &out); err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if out.BedID != nil {
		t.Errorf("bed_id should be cleared, got %v", *out.BedID)
	}
}

func TestDecode_WrongType(t *testing.T) {
	var out sample
	if err := sampleSchema.Decode(Values{"age": "three"}, &out); err == nil {
		t.Error("expected type mismatch error")
	}
	if err := sampleSchema.Decode(Values{}, out); err == nil {
		t.Error("expected error for non-pointer destination")
	}
}

func TestCells(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	if got := EncodeCell(true); got != "true" {
		t.Errorf("EncodeCell(true) = %q", got)
	}
	if got := EncodeCell(nil); got != "" {
		t.Errorf("EncodeCell(nil) = %q", got)
	}
	if got := EncodeCell(ts); got != "2024-01-02T03:04:05Z" {
		t.Errorf("EncodeCell(time) = %q", got)
	}

	if v, _ := DecodeCell(Bool, "false"); v != false {
		t.Errorf("DecodeCell(bool) = %v", v)
	}
	if v, _ := DecodeCell(Time, "2024-01-02"); !v.(time.Time).Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("DecodeCell(date) = %v", v)
	}
	if v, _ := DecodeCell(String, ""); v != nil {
		t.Errorf("empty cell should be null, got %v", v)
	}
	if _, err := DecodeCell(JSON, "{broken"); err == nil {
		t.Error("expected error for invalid json cell")
	}
}

func TestFromSQL(t *testing.T) {
	if v, _ := FromSQL(Bool, int64(1)); v != true {
		t.Errorf("sqlite boolean = %v", v)
	}
	if v, _ := FromSQL(JSON, []byte(`[1]`)); string(v.(json.RawMessage)) != "[1]" {
		t.Errorf("json bytes = %v", v)
	}
	if v, _ := FromSQL(String, ""); v != "" {
		t.Errorf("empty sql string should stay empty, got %v", v)
	}
	if v, _ := FromSQL(Time, "2024-01-02T03:04:05Z"); !v.(time.Time).Equal(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Errorf("text time = %v", v)
	}
}

func TestCompare(t *testing.T) {
	early := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)
	if Compare(early, late) >= 0 {
		t.Error("early should sort before late")
	}
	if Compare(nil, "a") >= 0 {
		t.Error("nil should sort first")
	}
	if Compare(int64(2), 1.5) <= 0 {
		t.Error("2 should sort after 1.5")
	}
	if Compare("B-2", "B-10") <= 0 {
		t.Error("strings compare lexically")
	}
}

func TestTimestampID(t *testing.T) {
	gen := TimestampID("bed")
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := gen()
		if !strings.HasPrefix(id, "bed-") {
			t.Fatalf("id %q missing prefix", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestField(t *testing.T) {
	input := map[string]any{"bedId": "camel", "reason": "Recovered", "age": 3.0}
	if got := FieldString(input, "bed_id"); got != "camel" {
		t.Errorf("FieldString(bed_id) = %q, want camel", got)
	}
	input["bed_id"] = "snake"
	if got := FieldString(input, "bed_id"); got != "snake" {
		t.Errorf("FieldString(bed_id) = %q, want snake", got)
	}
	if got := FieldString(input, "age"); got != "" {
		t.Errorf("non-string field should read as empty, got %q", got)
	}
	if _, ok := Field(input, "missing"); ok {
		t.Error("missing field reported present")
	}
}
