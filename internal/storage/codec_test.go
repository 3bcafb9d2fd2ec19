package storage

import (
	"testing"

	"hisab/internal/core"
)

func TestMembersCodecRoundTrip(t *testing.T) {
	in := []core.Member{
		{ID: "1", Name: "Member 1", Contact: "+8801700000001"},
		{ID: "2", Name: "Member 2"},
	}

	payload, err := EncodeMembers(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := DecodeMembers(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 2 || out[0].Contact != "+8801700000001" || out[1].Name != "Member 2" {
		t.Errorf("round trip mismatch: %+v", out)
	}
}

func TestExpensesCodecPreservesContributions(t *testing.T) {
	in := []core.Expense{{
		ID:            "e1",
		Date:          core.NewDate(2026, 8, 2),
		Details:       "Chicken, Potato",
		Cost:          800,
		Contributions: core.Contributions{"2": 400, "3": 400},
	}}

	payload, err := EncodeExpenses(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := DecodeExpenses(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out[0].Date.String() != "2026-08-02" {
		t.Errorf("date = %s", out[0].Date)
	}
	if out[0].Contributions["2"] != 400 || out[0].Contributions["3"] != 400 {
		t.Errorf("contributions = %+v", out[0].Contributions)
	}
}

func TestDecodeRejectsCorruptPayload(t *testing.T) {
	cases := []struct {
		name    string
		payload []byte
	}{
		{"truncated json", []byte(`{"version":1,"members":[{"id":"1"`)},
		{"wrong version", []byte(`{"version":99,"members":[]}`)},
		{"not json at all", []byte("PK\x03\x04 definitely a zip")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := DecodeMembers(tc.payload); err == nil {
				t.Error("expected decode error")
			}
			if _, err := DecodeExpenses(tc.payload); err == nil {
				t.Error("expected decode error")
			}
			if _, err := DecodeSettings(tc.payload); err == nil {
				t.Error("expected decode error")
			}
		})
	}
}

func TestSettingsCodecRoundTrip(t *testing.T) {
	in := core.Settings{Currency: "₹", Timezone: "Asia/Kolkata", Theme: "dark"}
	payload, err := EncodeSettings(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := DecodeSettings(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out != in {
		t.Errorf("round trip mismatch: %+v", out)
	}
}
