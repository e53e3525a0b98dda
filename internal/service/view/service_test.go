package view

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medscribe/scribe-api/internal/model"
	consultationsvc "github.com/medscribe/scribe-api/internal/service/consultation"
	patientsvc "github.com/medscribe/scribe-api/internal/service/patient"
)

func ts(day int) time.Time {
	return time.Date(2025, time.May, day, 9, 0, 0, 0, time.UTC)
}

// Five patients, eight consultations, mixed statuses.
func fixtures() ([]model.EnrichedNote, []model.EnrichedPatient) {
	patients := []model.Patient{
		{ID: 1, FullName: "Riya Sharma", Phone: "9876543210", MRN: "MRN-001"},
		{ID: 2, FullName: "Arjun Mehta", Phone: "9812345678", MRN: "MRN-002"},
		{ID: 3, FullName: "Supriya Nair", Phone: "9898989898", MRN: "MRN-003"},
		{ID: 4, FullName: "Vikram Rao", Phone: "9765432109", MRN: "MRN-004"},
		{ID: 5, FullName: "Priya Patel", Phone: "9654321098", MRN: "MRN-005"},
	}
	consultations := []model.Consultation{
		{ID: 10, PatientID: 1, Status: "Final", StartedAt: ts(1), Summary: "Fever and cough", Codes: []string{"J06.9"}},
		{ID: 11, PatientID: 1, Status: "In Progress", StartedAt: ts(8)},
		{ID: 12, PatientID: 2, Status: "Draft", StartedAt: ts(3), Summary: "Back pain follow-up"},
		{ID: 13, PatientID: 2, Status: "Signed", StartedAt: ts(2)},
		{ID: 14, PatientID: 3, Status: "Final", StartedAt: ts(5), Summary: "Annual physical"},
		{ID: 15, PatientID: 4, Status: "Processing", StartedAt: ts(6)},
		{ID: 16, PatientID: 5, Status: "Review", StartedAt: ts(4)},
		{ID: 17, PatientID: 99, Status: "Final", StartedAt: ts(7), Summary: "Orphaned record"},
	}
	notes := consultationsvc.EnrichAll(consultations, consultationsvc.PatientIndex(patients))
	roster := patientsvc.Aggregate(patients, consultations)
	return notes, roster
}

func idsOf(notes []model.EnrichedNote) []int {
	ids := make([]int, 0, len(notes))
	for _, n := range notes {
		ids = append(ids, n.ID)
	}
	return ids
}

func TestRecordingsSearchCaseInsensitive(t *testing.T) {
	notes, _ := fixtures()

	// "riya" matches Riya Sharma, Supriya Nair and Priya Patel.
	got := FilterRecordings(notes, Query{Search: "riya", Sort: SortNameAsc})
	require.Len(t, got, 4)
	for _, n := range got {
		assert.Contains(t, []int{10, 11, 14, 16}, n.ID, "unexpected consultation %d", n.ID)
	}
}

func TestRecordingsSortChangesOrderNotMembership(t *testing.T) {
	notes, _ := fixtures()

	byName := FilterRecordings(notes, Query{Search: "riya", Sort: SortNameAsc})
	byDate := FilterRecordings(notes, Query{Search: "riya", Sort: SortDateDesc})

	assert.ElementsMatch(t, idsOf(byName), idsOf(byDate))

	for i := 1; i < len(byDate); i++ {
		assert.False(t, byDate[i].StartedAt.After(byDate[i-1].StartedAt))
	}
	for i := 1; i < len(byName); i++ {
		assert.LessOrEqual(t, byName[i-1].PatientName, byName[i].PatientName)
	}
}

func TestRecordingsStatusFilter(t *testing.T) {
	notes, _ := fixtures()

	signed := FilterRecordings(notes, Query{Status: "Signed"})
	for _, n := range signed {
		assert.Equal(t, model.NoteStatusSigned, n.NoteStatus)
	}
	assert.Len(t, signed, 4)

	all := FilterRecordings(notes, Query{Status: "All"})
	assert.Len(t, all, len(notes))
}

func TestRecordingsSearchCodesAndSummary(t *testing.T) {
	notes, _ := fixtures()

	byCode := FilterRecordings(notes, Query{Search: "j06"})
	require.Len(t, byCode, 1)
	assert.Equal(t, 10, byCode[0].ID)

	bySummary := FilterRecordings(notes, Query{Search: "back pain"})
	require.Len(t, bySummary, 1)
	assert.Equal(t, 12, bySummary[0].ID)
}

func TestRecordingsOrphanSearchableUnderSentinel(t *testing.T) {
	notes, _ := fixtures()

	got := FilterRecordings(notes, Query{Search: "unknown patient"})
	require.Len(t, got, 1)
	assert.Equal(t, 17, got[0].ID)
}

func TestRosterSearchAndSort(t *testing.T) {
	_, roster := fixtures()

	got := FilterRoster(roster, Query{Search: "riya", Sort: SortNameAsc})
	require.Len(t, got, 3)
	assert.Equal(t, "Priya Patel", got[0].FullName)
	assert.Equal(t, "Riya Sharma", got[1].FullName)
	assert.Equal(t, "Supriya Nair", got[2].FullName)

	byPhone := FilterRoster(roster, Query{Search: "98123"})
	require.Len(t, byPhone, 1)
	assert.Equal(t, "Arjun Mehta", byPhone[0].FullName)

	byMRN := FilterRoster(roster, Query{Search: "mrn-004"})
	require.Len(t, byMRN, 1)
	assert.Equal(t, "Vikram Rao", byMRN[0].FullName)
}

func TestRosterNoVisitSortsLast(t *testing.T) {
	_, roster := fixtures()
	// Add a patient with no consultations.
	roster = append(roster, model.EnrichedPatient{
		Patient:         model.Patient{ID: 6, FullName: "Aman Gupta"},
		AggregateStatus: model.NoteStatusNone,
	})

	asc := FilterRoster(roster, Query{Sort: SortVisitAsc})
	assert.Equal(t, "Aman Gupta", asc[len(asc)-1].FullName)

	desc := FilterRoster(roster, Query{Sort: SortVisitDesc})
	assert.Equal(t, "Aman Gupta", desc[len(desc)-1].FullName)
}

func TestRosterStatusFilter(t *testing.T) {
	_, roster := fixtures()

	review := FilterRoster(roster, Query{Status: "Review"})
	for _, p := range review {
		assert.Equal(t, model.NoteStatusReview, p.AggregateStatus)
	}
	// Arjun (Draft beats Signed) and Priya (Review).
	assert.Len(t, review, 2)
}
