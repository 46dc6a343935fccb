package domain

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestDiff(t *testing.T) {
	playing := StatusPlaying
	ending := StatusEnding

	tests := []struct {
		name     string
		old      *SessionView
		new      *SessionView
		wantDiff *ViewDiff // nil means we expect no diff
	}{
		{
			name: "Initial Load (Old is Nil)",
			old:  nil,
			new: &SessionView{
				SessionID:      "sess-1",
				CurrentNodeID:  "root",
				Status:         StatusPlaying,
				VisitedNodeIDs: []string{"root"},
			},
			wantDiff: &ViewDiff{
				SessionID:     "sess-1",
				CurrentNodeID: &[]string{"root"}[0],
				Status:        &playing,
				History:       &HistoryDelta{Reset: true, Visited: []string{"root"}},
			},
		},
		{
			name: "No Changes",
			old: &SessionView{
				SessionID:      "sess-1",
				CurrentNodeID:  "root",
				Status:         StatusPlaying,
				VisitedNodeIDs: []string{"root"},
			},
			new: &SessionView{
				SessionID:      "sess-1",
				CurrentNodeID:  "root",
				Status:         StatusPlaying,
				VisitedNodeIDs: []string{"root"},
			},
			wantDiff: nil,
		},
		{
			name: "Choice Appends History",
			old: &SessionView{
				SessionID:      "sess-1",
				CurrentNodeID:  "root",
				Status:         StatusPlaying,
				VisitedNodeIDs: []string{"root"},
			},
			new: &SessionView{
				SessionID:      "sess-1",
				CurrentNodeID:  "b",
				Status:         StatusEnding,
				VisitedNodeIDs: []string{"root", "b"},
				ChoiceHistory:  []ChoiceRecord{{FromNodeID: "root", Text: "go", ToNodeID: "b"}},
			},
			wantDiff: &ViewDiff{
				SessionID:     "sess-1",
				CurrentNodeID: &[]string{"b"}[0],
				Status:        &ending,
				History: &HistoryDelta{
					Visited: []string{"b"},
					Choices: []ChoiceRecord{{FromNodeID: "root", Text: "go", ToNodeID: "b"}},
				},
			},
		},
		{
			name: "Restart Resets History",
			old: &SessionView{
				SessionID:      "sess-1",
				CurrentNodeID:  "b",
				Status:         StatusPlaying,
				VisitedNodeIDs: []string{"root", "b"},
				ChoiceHistory:  []ChoiceRecord{{FromNodeID: "root", Text: "go", ToNodeID: "b"}},
			},
			new: &SessionView{
				SessionID:      "sess-1",
				CurrentNodeID:  "root",
				Status:         StatusPlaying,
				VisitedNodeIDs: []string{"root"},
				ChoiceHistory:  []ChoiceRecord{},
			},
			wantDiff: &ViewDiff{
				SessionID:     "sess-1",
				CurrentNodeID: &[]string{"root"}[0],
				History:       &HistoryDelta{Reset: true, Visited: []string{"root"}, Choices: []ChoiceRecord{}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.old, tt.new)
			if tt.wantDiff == nil {
				if got != nil {
					t.Errorf("Diff() = %v, want nil", got)
				}
				return
			}

			if got == nil {
				t.Fatalf("Diff() = nil, want %v", tt.wantDiff)
			}

			if got.SessionID != tt.wantDiff.SessionID {
				t.Errorf("Diff().SessionID = %v, want %v", got.SessionID, tt.wantDiff.SessionID)
			}
			if !reflect.DeepEqual(got.History, tt.wantDiff.History) {
				t.Errorf("Diff().History = %+v, want %+v", got.History, tt.wantDiff.History)
			}
			if !equalPtr(got.CurrentNodeID, tt.wantDiff.CurrentNodeID) {
				t.Errorf("Diff().CurrentNodeID = %v, want %v", got.CurrentNodeID, tt.wantDiff.CurrentNodeID)
			}
			if !equalPtr(got.Status, tt.wantDiff.Status) {
				t.Errorf("Diff().Status = %v, want %v", got.Status, tt.wantDiff.Status)
			}
		})
	}
}

func TestDiffJSONSerialization(t *testing.T) {
	t.Run("Unchanged Fields Omitted", func(t *testing.T) {
		v1 := &SessionView{SessionID: "s", CurrentNodeID: "root", VisitedNodeIDs: []string{"root"}}
		v2 := &SessionView{SessionID: "s", CurrentNodeID: "root", VisitedNodeIDs: []string{"root"}, Busy: true}
		diff := Diff(v1, v2)
		if diff == nil {
			t.Fatal("Expected diff, got nil")
		}

		bytes, _ := json.Marshal(diff)
		if strings.Contains(string(bytes), `"history"`) {
			t.Errorf("JSON should not contain 'history' when unchanged, got: %s", string(bytes))
		}
		if !strings.Contains(string(bytes), `"busy":true`) {
			t.Errorf("JSON should contain busy flag, got: %s", string(bytes))
		}
	})
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}
