package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/rajasatyajit/ProtectLife/internal/errors"
	"github.com/rajasatyajit/ProtectLife/internal/models"
)

// InMemoryStore implements Store using in-memory storage
type InMemoryStore struct {
	mu      sync.RWMutex
	reports map[string]models.Report
	// votes is keyed by report id, then user id
	votes map[string]map[string]models.Vote
	now   func() time.Time
}

// NewInMemoryStore creates a new in-memory store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		reports: make(map[string]models.Report),
		votes:   make(map[string]map[string]models.Vote),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CreateReport stores a new report, assigning its id and timestamps
func (s *InMemoryStore) CreateReport(ctx context.Context, r *models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reports[r.ID]; r.ID != "" && exists {
		return fmt.Errorf("report %s: %w", r.ID, apperrors.ErrConflict)
	}
	prepareReport(r, s.now())
	s.reports[r.ID] = cloneReport(*r)
	return nil
}

// GetReport retrieves a single report by ID
func (s *InMemoryStore) GetReport(ctx context.Context, id string) (*models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.reports[id]
	if !exists {
		return nil, fmt.Errorf("report %s: %w", id, apperrors.ErrNotFound)
	}
	out := cloneReport(r)
	return &out, nil
}

// QueryReports retrieves reports from memory based on query parameters
func (s *InMemoryStore) QueryReports(ctx context.Context, q models.ReportQuery) ([]models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []models.Report{}
	for _, r := range s.reports {
		if q.Matches(r) {
			result = append(result, cloneReport(r))
		}
	}

	// Newest first; id breaks ties so paging is stable
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})

	if q.Offset >= len(result) {
		return []models.Report{}, nil
	}
	if q.Offset > 0 {
		result = result[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < len(result) {
		result = result[:q.Limit]
	}

	return result, nil
}

// UpdateStatus changes the moderation status of a report
func (s *InMemoryStore) UpdateStatus(ctx context.Context, id string, status models.ReportStatus, moderator string) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.reports[id]
	if !exists {
		return nil, fmt.Errorf("report %s: %w", id, apperrors.ErrNotFound)
	}

	return s.setStatus(r, status, moderator), nil
}

// TransitionStatus changes the status of a report that is still in from
func (s *InMemoryStore) TransitionStatus(ctx context.Context, id string, from, to models.ReportStatus, moderator string) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.reports[id]
	if !exists {
		return nil, fmt.Errorf("report %s: %w", id, apperrors.ErrNotFound)
	}
	if r.Status != from {
		return nil, fmt.Errorf("report %s is %s, not %s: %w", id, r.Status, from, apperrors.ErrConflict)
	}

	return s.setStatus(r, to, moderator), nil
}

// setStatus must be called with the write lock held
func (s *InMemoryStore) setStatus(r models.Report, status models.ReportStatus, moderator string) *models.Report {
	now := s.now()
	r.Status = status
	r.UpdatedAt = now
	r.ResolvedAt, r.ResolvedBy = resolution(status, moderator, now)
	s.reports[r.ID] = r

	out := cloneReport(r)
	return &out
}

// DeleteReport removes a report and its votes
func (s *InMemoryStore) DeleteReport(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reports[id]; !exists {
		return fmt.Errorf("report %s: %w", id, apperrors.ErrNotFound)
	}
	delete(s.reports, id)
	delete(s.votes, id)
	return nil
}

// CastVote records or replaces a user's vote on a report
func (s *InMemoryStore) CastVote(ctx context.Context, reportID, userID string, voteType models.VoteType) (*VoteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.reports[reportID]
	if !exists {
		return nil, fmt.Errorf("report %s: %w", reportID, apperrors.ErrNotFound)
	}

	byUser := s.votes[reportID]
	if byUser == nil {
		byUser = make(map[string]models.Vote)
		s.votes[reportID] = byUser
	}

	now := s.now()
	prev, hasPrev := byUser[userID]
	if hasPrev {
		if prev.VoteType == voteType {
			return nil, fmt.Errorf("user already voted %s: %w", voteType, apperrors.ErrConflict)
		}
		r.ApplyVote(prev.VoteType, -1)
	}

	byUser[userID] = models.Vote{
		ID:        uuid.NewString(),
		UserID:    userID,
		ReportID:  reportID,
		VoteType:  voteType,
		CreatedAt: now,
	}
	r.ApplyVote(voteType, 1)
	r.UpdatedAt = now
	s.reports[reportID] = r

	out := cloneReport(r)
	return &VoteResult{Report: &out, Previous: prev.VoteType}, nil
}

// RemoveVote withdraws a user's vote
func (s *InMemoryStore) RemoveVote(ctx context.Context, reportID, userID string) (*VoteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.reports[reportID]
	if !exists {
		return nil, fmt.Errorf("report %s: %w", reportID, apperrors.ErrNotFound)
	}
	prev, hasPrev := s.votes[reportID][userID]
	if !hasPrev {
		return nil, fmt.Errorf("vote by %s: %w", userID, apperrors.ErrNotFound)
	}

	delete(s.votes[reportID], userID)
	r.ApplyVote(prev.VoteType, -1)
	r.UpdatedAt = s.now()
	s.reports[reportID] = r

	out := cloneReport(r)
	return &VoteResult{Report: &out, Previous: prev.VoteType}, nil
}

// Health always returns nil for in-memory store
func (s *InMemoryStore) Health(ctx context.Context) error {
	return nil
}

// cloneReport copies the slices and pointers of r so callers cannot mutate
// stored state
func cloneReport(r models.Report) models.Report {
	r.Images = append([]string{}, r.Images...)
	if r.Analysis != nil {
		a := *r.Analysis
		a.SuggestedActions = append([]string(nil), a.SuggestedActions...)
		r.Analysis = &a
	}
	if r.ResolvedAt != nil {
		t := *r.ResolvedAt
		r.ResolvedAt = &t
	}
	return r
}
