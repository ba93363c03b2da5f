package dashboard

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kotor-apartments/stayboard/internal/property"
)

type stub struct {
	id string
	a  *string
	b  *string
}

func (s stub) RecordID() string { return s.id }

func (s stub) Completeness() int {
	n := 1
	if s.a != nil {
		n++
	}
	if s.b != nil {
		n++
	}
	return n
}

func str(s string) *string { return &s }

func TestDedupeEmptyAndSingle(t *testing.T) {
	assert.Empty(t, Dedupe([]stub{}))
	assert.Empty(t, Dedupe[stub](nil))

	one := []stub{{id: "1", a: str("x")}}
	assert.Equal(t, one, Dedupe(one))
}

func TestDedupePrefersMoreCompleteRecord(t *testing.T) {
	sparse := stub{id: "1", a: str("x")}
	full := stub{id: "1", a: str("x"), b: str("y")}

	out := Dedupe([]stub{sparse, full})
	require.Len(t, out, 1)
	assert.Equal(t, full, out[0])
}

func TestDedupeTieKeepsFirstSeen(t *testing.T) {
	first := stub{id: "1", a: str("first")}
	second := stub{id: "1", a: str("second")}
	out := Dedupe([]stub{first, second})
	require.Len(t, out, 1)
	assert.Equal(t, "first", *out[0].a)

	bare := Dedupe([]stub{{id: "9"}, {id: "9"}})
	require.Len(t, bare, 1)
}

func TestDedupeKeepsFirstOccurrencePosition(t *testing.T) {
	in := []stub{
		{id: "a"},
		{id: "b"},
		{id: "a", a: str("x"), b: str("y")},
		{id: "c"},
		{id: "b"},
	}
	out := Dedupe(in)
	ids := make([]string, 0, len(out))
	for _, rec := range out {
		ids = append(ids, rec.id)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
	assert.NotNil(t, out[0].b)
}

func TestDedupeInvariants(t *testing.T) {
	inputs := [][]stub{
		{},
		{{id: "1"}},
		{{id: "1"}, {id: "1"}, {id: "1", a: str("x")}},
		{{id: "1"}, {id: "2"}, {id: "3"}, {id: "2", b: str("z")}, {id: "1"}},
	}
	for _, in := range inputs {
		once := Dedupe(in)
		assert.LessOrEqual(t, len(once), len(in))
		assert.Equal(t, once, Dedupe(once))

		seen := map[string]int{}
		for _, rec := range once {
			seen[rec.id]++
		}
		for id, n := range seen {
			assert.Equalf(t, 1, n, "id %s survived %d times", id, n)
		}
	}
}

func TestDedupeReservationsResolvesPopulatedEmail(t *testing.T) {
	reservations := []property.Reservation{
		{ID: "R1", GuestDetails: &property.GuestDetails{GuestName: str("Noah")}},
		{ID: "R1", GuestDetails: &property.GuestDetails{GuestName: str("Noah"), GuestEmail: str("noah@example.com")}},
		{ID: "R2", GuestDetails: &property.GuestDetails{GuestName: str("Mila")}},
	}

	out := Dedupe(reservations)
	require.Len(t, out, 2)
	assert.Equal(t, "R1", out[0].RecordID())
	require.NotNil(t, out[0].GuestDetails.GuestEmail)
	assert.Equal(t, "noah@example.com", *out[0].GuestDetails.GuestEmail)
	assert.Equal(t, "R2", out[1].RecordID())
}

func TestDedupeKeepsRecordWithPopulatedScalars(t *testing.T) {
	var jobs []property.CleaningJob
	require.NoError(t, json.Unmarshal([]byte(`[
		{"id":"J1","jobStatus":null,"apartment":"A1"},
		{"id":"J1","jobStatus":"completed","apartment":"A1"}
	]`), &jobs))
	outJobs := Dedupe(jobs)
	require.Len(t, outJobs, 1)
	assert.Equal(t, property.JobCompleted, outJobs[0].JobStatus)

	var apts []property.Apartment
	require.NoError(t, json.Unmarshal([]byte(`[
		{"id":"A1","apartmentName":null},
		{"id":"A1","apartmentName":"Noah"}
	]`), &apts))
	outApts := Dedupe(apts)
	require.Len(t, outApts, 1)
	assert.Equal(t, "Noah", outApts[0].ApartmentName)
}
