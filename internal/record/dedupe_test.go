package record

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func at(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func ids(sessions []Session) []string {
	out := make([]string, len(sessions))
	for i, s := range sessions {
		out[i] = s.ID
	}
	return out
}

func TestDedupe(t *testing.T) {
	tests := []struct {
		name        string
		in          []Session
		wantIDs     []string
		wantCompany map[string]string
	}{
		{
			name:    "Empty",
			in:      nil,
			wantIDs: []string{},
		},
		{
			name: "LaterRecordReplaces",
			in: []Session{
				{ID: "a", CreatedAt: at("2024-06-01T09:00:00Z"), Company: "Old"},
				{ID: "a", CreatedAt: at("2024-06-02T09:00:00Z"), Company: "New"},
			},
			wantIDs:     []string{"a"},
			wantCompany: map[string]string{"a": "New"},
		},
		{
			name: "EarlierRecordIgnored",
			in: []Session{
				{ID: "a", CreatedAt: at("2024-06-02T09:00:00Z"), Company: "First"},
				{ID: "a", CreatedAt: at("2024-06-01T09:00:00Z"), Company: "Second"},
			},
			wantIDs:     []string{"a"},
			wantCompany: map[string]string{"a": "First"},
		},
		{
			name: "EqualTimestampsKeepFirstSeen",
			in: []Session{
				{ID: "a", CreatedAt: at("2024-06-01T09:00:00Z"), Company: "First"},
				{ID: "a", CreatedAt: at("2024-06-01T09:00:00Z"), Company: "Second"},
			},
			wantIDs:     []string{"a"},
			wantCompany: map[string]string{"a": "First"},
		},
		{
			name: "MissingIncomingTimestampKeepsStored",
			in: []Session{
				{ID: "a", CreatedAt: at("2024-06-01T09:00:00Z"), Company: "First"},
				{ID: "a", Company: "Second"},
			},
			wantIDs:     []string{"a"},
			wantCompany: map[string]string{"a": "First"},
		},
		{
			name: "MissingStoredTimestampKeepsStored",
			in: []Session{
				{ID: "a", Company: "First"},
				{ID: "a", CreatedAt: at("2024-06-09T09:00:00Z"), Company: "Second"},
			},
			wantIDs:     []string{"a"},
			wantCompany: map[string]string{"a": "First"},
		},
		{
			name: "MissingIDDropped",
			in: []Session{
				{ID: "", CreatedAt: at("2024-06-01T09:00:00Z")},
				{ID: "b"},
			},
			wantIDs: []string{"b"},
		},
		{
			name: "NewestFirstUndatedLast",
			in: []Session{
				{ID: "u1"},
				{ID: "old", CreatedAt: at("2024-01-01T00:00:00Z")},
				{ID: "u2"},
				{ID: "new", CreatedAt: at("2024-06-01T00:00:00Z")},
				{ID: "mid", CreatedAt: at("2024-03-01T00:00:00Z")},
			},
			wantIDs: []string{"new", "mid", "old", "u1", "u2"},
		},
		{
			name: "ReplacedRecordResorted",
			in: []Session{
				{ID: "a", CreatedAt: at("2024-01-01T00:00:00Z")},
				{ID: "b", CreatedAt: at("2024-02-01T00:00:00Z")},
				{ID: "a", CreatedAt: at("2024-03-01T00:00:00Z")},
			},
			wantIDs: []string{"a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Dedupe(tt.in)
			if got == nil {
				t.Fatal("Dedupe returned nil, want empty slice")
			}
			if diff := cmp.Diff(tt.wantIDs, ids(got)); diff != "" {
				t.Errorf("ids mismatch (-want +got):\n%s", diff)
			}
			for _, s := range got {
				if want, ok := tt.wantCompany[s.ID]; ok &&
					s.Company != want {
					t.Errorf("%s company = %q, want %q",
						s.ID, s.Company, want)
				}
			}
		})
	}
}

func TestDedupeDeterministic(t *testing.T) {
	in := []Session{
		{ID: "x"}, {ID: "y"}, {ID: "z"},
		{ID: "d1", CreatedAt: at("2024-06-01T00:00:00Z")},
		{ID: "d2", CreatedAt: at("2024-06-01T00:00:00Z")},
	}
	first := ids(Dedupe(in))
	for range 20 {
		if diff := cmp.Diff(first, ids(Dedupe(in))); diff != "" {
			t.Fatalf("order changed between calls:\n%s", diff)
		}
	}
	want := []string{"d1", "d2", "x", "y", "z"}
	if diff := cmp.Diff(want, first); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestDedupeDoesNotMutateInput(t *testing.T) {
	in := []Session{
		{ID: "old", CreatedAt: at("2024-01-01T00:00:00Z")},
		{ID: "new", CreatedAt: at("2024-06-01T00:00:00Z")},
	}
	_ = Dedupe(in)
	if in[0].ID != "old" || in[1].ID != "new" {
		t.Errorf("input reordered: %v", ids(in))
	}
}
