package session

import (
	"fmt"
	"time"

	"github.com/PixelPioneer1807/adventure/pkg/domain"
	"github.com/PixelPioneer1807/adventure/pkg/navigator"
)

// The Apply* functions are the pure state machine of a session.
// Each returns a fresh *domain.State and never mutates its input.

// ApplyStart positions a new session on the root of g.
func ApplyStart(g *domain.StoryGraph, now time.Time, autoSave bool) (*domain.State, error) {
	root, err := navigator.Root(g)
	if err != nil {
		return nil, err
	}

	next := domain.NewState(g.StoryID)
	next.CurrentNodeID = root.ID
	next.VisitedNodeIDs = []string{root.ID}
	next.SessionStartedAt = now
	next.AutoSaveEnabled = autoSave
	next.Status = statusOf(root)
	return next, nil
}

// ApplyChoice appends one transition to the history.
func ApplyChoice(s *domain.State, g *domain.StoryGraph, targetNodeID, text string, now time.Time) (*domain.State, domain.ChoiceRecord, error) {
	if !s.Started() {
		return nil, domain.ChoiceRecord{}, domain.ErrNotStarted
	}
	if s.Ended() {
		return nil, domain.ChoiceRecord{}, fmt.Errorf("%w: at %q", domain.ErrTerminal, s.CurrentNodeID)
	}

	target, err := navigator.Step(g, s.CurrentNodeID, targetNodeID)
	if err != nil {
		return nil, domain.ChoiceRecord{}, err
	}

	if text == "" {
		text = optionText(g, s.CurrentNodeID, target.ID)
	}

	record := domain.ChoiceRecord{
		FromNodeID: s.CurrentNodeID,
		Text:       text,
		ToNodeID:   target.ID,
		Timestamp:  now,
	}

	next := s.Clone()
	next.ChoiceHistory = append(next.ChoiceHistory, record)
	next.VisitedNodeIDs = append(next.VisitedNodeIDs, target.ID)
	next.CurrentNodeID = target.ID
	next.Status = statusOf(target)
	return next, record, nil
}

// ApplyRestart reinitializes exactly as ApplyStart, keeping the auto-save preference.
func ApplyRestart(s *domain.State, g *domain.StoryGraph, now time.Time) (*domain.State, error) {
	if !s.Started() {
		return nil, domain.ErrNotStarted
	}
	return ApplyStart(g, now, s.AutoSaveEnabled)
}

// ApplyLoad transplants a snapshot onto g.
// The elapsed time baseline is moved back so ElapsedMinutes continues from
// the restored play time.
func ApplyLoad(g *domain.StoryGraph, snap domain.Snapshot, autoSave bool, now time.Time) (*domain.State, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: no graph", domain.ErrInvalidSnapshot)
	}
	if snap.StoryID != "" && g.StoryID != "" && snap.StoryID != g.StoryID {
		return nil, fmt.Errorf("%w: story %q does not match graph %q", domain.ErrInvalidSnapshot, snap.StoryID, g.StoryID)
	}

	current, err := navigator.Resolve(g, snap.CurrentNodeID)
	if err != nil {
		return nil, err
	}

	visited := snap.NodesVisited
	switch {
	case len(visited) == 0:
		return nil, fmt.Errorf("%w: empty visited history", domain.ErrInvalidSnapshot)
	case visited[0] != g.RootNodeID:
		return nil, fmt.Errorf("%w: history starts at %q, not root %q", domain.ErrInvalidSnapshot, visited[0], g.RootNodeID)
	case visited[len(visited)-1] != current.ID:
		return nil, fmt.Errorf("%w: history ends at %q, not current %q", domain.ErrInvalidSnapshot, visited[len(visited)-1], current.ID)
	case len(snap.ChoicesMade) != len(visited)-1:
		return nil, fmt.Errorf("%w: %d choices for %d visited nodes", domain.ErrInvalidSnapshot, len(snap.ChoicesMade), len(visited))
	}

	minutes := snap.PlayTimeMinutes
	if minutes < 0 {
		minutes = 0
	}

	next := &domain.State{
		StoryID:          g.StoryID,
		CurrentNodeID:    current.ID,
		VisitedNodeIDs:   append([]string{}, visited...),
		ChoiceHistory:    append([]domain.ChoiceRecord{}, snap.ChoicesMade...),
		SessionStartedAt: now.Add(-time.Duration(minutes) * time.Minute),
		AutoSaveEnabled:  autoSave,
		Status:           statusOf(current),
	}
	if next.StoryID == "" {
		next.StoryID = snap.StoryID
	}
	return next, nil
}

func statusOf(n *domain.StoryNode) domain.Status {
	if n.Terminal() {
		return domain.StatusEnding
	}
	return domain.StatusPlaying
}

// optionText is the label of the first option of from that targets to.
func optionText(g *domain.StoryGraph, from, to string) string {
	opts, err := navigator.Options(g, from)
	if err != nil {
		return ""
	}
	for _, opt := range opts {
		if opt.TargetNodeID == to {
			return opt.Text
		}
	}
	return ""
}
