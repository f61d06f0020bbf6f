package cafe

import (
	"encoding/json"
	"testing"
)

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

func sampleCafe() Cafe {
	return Cafe{
		ID:          1,
		Name:        "Blue Bottle",
		MapURL:      "https://maps.example/blue",
		ImgURL:      "https://img.example/blue.jpg",
		Location:    "Seongsu",
		Seats:       "20-30",
		Amenities:   Amenities{HasToilet: true, HasWifi: true, HasSockets: false, CanTakeCalls: true},
		CoffeePrice: strPtr("₩4,000"),
		Revision:    3,
	}
}

func TestFlagOf(t *testing.T) {
	tests := []struct {
		in   *bool
		want Flag
	}{
		{nil, FlagUnset},
		{boolPtr(false), FlagFalse},
		{boolPtr(true), FlagTrue},
	}
	for _, tt := range tests {
		if got := FlagOf(tt.in); got != tt.want {
			t.Errorf("FlagOf(%v) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestFlag_PtrRoundTrip(t *testing.T) {
	for _, f := range []Flag{FlagUnset, FlagFalse, FlagTrue} {
		if got := FlagOf(f.Ptr()); got != f {
			t.Errorf("FlagOf(%s.Ptr()) = %s", f, got)
		}
	}
}

func TestFlag_Or(t *testing.T) {
	if !FlagUnset.Or(true) {
		t.Error("unset flag should keep fallback true")
	}
	if FlagFalse.Or(true) {
		t.Error("false flag should override fallback true")
	}
	if !FlagTrue.Or(false) {
		t.Error("true flag should override fallback false")
	}
}

func TestProposal_ApplyTo_OnlySetFields(t *testing.T) {
	c := sampleCafe()
	p := Proposal{CoffeePrice: strPtr("₩5,000")}

	got := p.ApplyTo(c)

	if *got.CoffeePrice != "₩5,000" {
		t.Errorf("CoffeePrice: got %q, want %q", *got.CoffeePrice, "₩5,000")
	}
	if got.Name != c.Name || got.Location != c.Location || got.Seats != c.Seats {
		t.Errorf("unrelated string fields changed: %+v", got)
	}
	if got.Amenities != c.Amenities {
		t.Errorf("Amenities: got %+v, want %+v", got.Amenities, c.Amenities)
	}
	if *c.CoffeePrice != "₩4,000" {
		t.Errorf("original cafe mutated: %q", *c.CoffeePrice)
	}
}

func TestProposal_ApplyTo_FalseOverridesTrue(t *testing.T) {
	c := sampleCafe()
	p := Proposal{HasWifi: FlagFalse, HasSockets: FlagTrue}

	got := p.ApplyTo(c)

	if got.Amenities.HasWifi {
		t.Error("HasWifi: got true, want false")
	}
	if !got.Amenities.HasSockets {
		t.Error("HasSockets: got false, want true")
	}
	if !got.Amenities.HasToilet || !got.Amenities.CanTakeCalls {
		t.Errorf("unset flags changed: %+v", got.Amenities)
	}
}

func TestProposal_Normalize(t *testing.T) {
	p := Proposal{Name: strPtr("   "), Seats: strPtr("50+"), MapURL: strPtr("")}.Normalize()

	if p.Name != nil {
		t.Errorf("Name: got %q, want nil", *p.Name)
	}
	if p.MapURL != nil {
		t.Errorf("MapURL: got %q, want nil", *p.MapURL)
	}
	if p.Seats == nil || *p.Seats != "50+" {
		t.Errorf("Seats: got %v, want 50+", p.Seats)
	}
}

func TestProposal_IsEmpty(t *testing.T) {
	if !(Proposal{}).IsEmpty() {
		t.Error("zero proposal should be empty")
	}
	if (Proposal{CanTakeCalls: FlagFalse}).IsEmpty() {
		t.Error("proposal with a false flag should not be empty")
	}
}

func TestProposal_Diff(t *testing.T) {
	c := sampleCafe()
	p := Proposal{CoffeePrice: strPtr("₩5,000"), HasToilet: FlagFalse}

	diffs := p.Diff(c)
	if len(diffs) != 10 {
		t.Fatalf("len: got %d, want 10", len(diffs))
	}

	byField := make(map[string]FieldDiff, len(diffs))
	for _, d := range diffs {
		byField[d.Field] = d
	}

	if d := byField[FieldCoffeePrice]; d.Original != "₩4,000" || d.Proposed != "₩5,000" {
		t.Errorf("coffee_price: got %+v", d)
	}
	if d := byField[FieldHasToilet]; d.Original != true || d.Proposed != false {
		t.Errorf("has_toilet: got %+v", d)
	}
	if d := byField[FieldName]; d.Proposed != nil {
		t.Errorf("name: proposed should be nil, got %v", d.Proposed)
	}
}

func TestFieldDiff_JSONOmitsUnsetProposal(t *testing.T) {
	data, err := json.Marshal(FieldDiff{Field: FieldSeats, Original: "10"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := m["proposed"]; ok {
		t.Errorf("proposed key present: %s", data)
	}

	data, _ = json.Marshal(FieldDiff{Field: FieldHasWifi, Original: true, Proposed: false})
	m = nil
	_ = json.Unmarshal(data, &m)
	if v, ok := m["proposed"]; !ok || v != false {
		t.Errorf("proposed false should be kept: %s", data)
	}
}

func TestParseAction(t *testing.T) {
	tests := []struct {
		in      string
		want    Action
		wantErr bool
	}{
		{"approve", ActionApprove, false},
		{"reject", ActionReject, false},
		{"maybe", "", true},
		{"", "", true},
		{"APPROVE", "", true},
	}
	for _, tt := range tests {
		got, err := ParseAction(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseAction(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseAction(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusApproved, true},
		{StatusPending, StatusRejected, true},
		{StatusApproved, StatusRejected, false},
		{StatusRejected, StatusApproved, false},
		{StatusApproved, StatusPending, false},
		{StatusPending, StatusPending, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestAction_Outcome(t *testing.T) {
	if ActionApprove.Outcome() != StatusApproved {
		t.Errorf("approve outcome: got %s", ActionApprove.Outcome())
	}
	if ActionReject.Outcome() != StatusRejected {
		t.Errorf("reject outcome: got %s", ActionReject.Outcome())
	}
}
