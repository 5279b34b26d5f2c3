//go:build go1.18

package domain

import (
	"testing"
)

// FuzzParsePatientID tests that parsing never panics on arbitrary input
// and accepted values always round-trip through String.
func FuzzParsePatientID(f *testing.F) {
	f.Add("")
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("00000000-0000-0000-0000-000000000000")
	f.Add("not-a-uuid")
	f.Add("'; DROP TABLE patients;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))
	f.Add("550e8400-e29b-41d4-a716-446655440000\x00suffix")

	f.Fuzz(func(t *testing.T, input string) {
		patientID, err := ParsePatientID(input)
		if err != nil {
			return
		}
		roundTrip, err2 := ParsePatientID(patientID.String())
		if err2 != nil {
			t.Errorf("valid ID failed round-trip: %v", err2)
		}
		if roundTrip != patientID {
			t.Error("round-trip changed ID value")
		}
		if patientID.IsNil() {
			t.Error("nil UUID was accepted")
		}
	})
}
