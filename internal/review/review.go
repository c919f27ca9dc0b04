// Package review provides lifecycle transition helpers over the
// store-backed ReviewTask CRUD (spec §4.9, §9). The orchestrator creates
// review tasks on a coherence downgrade; this package is where a human or
// an admin operation assigns, completes, escalates, or cancels one, and
// where the queue processor's has_pending_reviews/has_rejected_review
// checks (spec §4.10) get a typed home instead of inlining ReviewTask
// field checks at each call site. The PENDING->ASSIGNED->{COMPLETED,
// ESCALATED,REJECTED,CANCELLED} table follows the transition-table style of
// the Intent state machine in internal/types/enums.go.
package review

import (
	"context"
	"fmt"
	"time"

	"github.com/ghmbegerez/converge/internal/cerr"
	"github.com/ghmbegerez/converge/internal/store"
	"github.com/ghmbegerez/converge/internal/types"
)

// allowedTransitions mirrors internal/types.allowedTransitions but for
// ReviewStatus: PENDING can move to ASSIGNED or directly to a terminal
// status (an admin can reject/cancel an unassigned review); ASSIGNED can
// resolve to COMPLETED, ESCALATED, REJECTED, or CANCELLED. Terminal
// statuses admit no further transitions.
var allowedTransitions = map[types.ReviewStatus]map[types.ReviewStatus]bool{
	types.ReviewPending: {
		types.ReviewAssigned:  true,
		types.ReviewRejected:  true,
		types.ReviewCancelled: true,
	},
	types.ReviewAssigned: {
		types.ReviewCompleted: true,
		types.ReviewEscalated: true,
		types.ReviewRejected:  true,
		types.ReviewCancelled: true,
	},
}

func isTerminal(s types.ReviewStatus) bool {
	switch s {
	case types.ReviewCompleted, types.ReviewRejected, types.ReviewCancelled:
		return true
	}
	return false
}

func canTransition(from, to types.ReviewStatus) bool {
	if isTerminal(from) {
		return false
	}
	next, ok := allowedTransitions[from]
	return ok && next[to]
}

// Service wraps a store for review lifecycle operations.
type Service struct {
	Store store.Store
	Now   func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Assign moves a PENDING review to ASSIGNED with the given assignee.
func (s *Service) Assign(ctx context.Context, reviewID, assignee string) error {
	return s.transition(ctx, reviewID, types.ReviewAssigned, func(r *types.ReviewTask) {
		r.Assignee = assignee
	})
}

// Complete resolves an ASSIGNED review as COMPLETED.
func (s *Service) Complete(ctx context.Context, reviewID string) error {
	return s.transition(ctx, reviewID, types.ReviewCompleted, nil)
}

// Escalate resolves an ASSIGNED review as ESCALATED, for a reviewer who
// cannot make the call themselves.
func (s *Service) Escalate(ctx context.Context, reviewID, note string) error {
	return s.transition(ctx, reviewID, types.ReviewEscalated, func(r *types.ReviewTask) {
		if note != "" {
			r.Reason = r.Reason + "; escalated: " + note
		}
	})
}

// Reject resolves a review as REJECTED. The queue processor transitions
// the owning Intent to REJECTED the next time it sees this (spec §4.10).
func (s *Service) Reject(ctx context.Context, reviewID, reason string) error {
	return s.transition(ctx, reviewID, types.ReviewRejected, func(r *types.ReviewTask) {
		if reason != "" {
			r.Reason = reason
		}
	})
}

// Cancel resolves a review as CANCELLED, for a review whose Intent was
// withdrawn before anyone acted on it.
func (s *Service) Cancel(ctx context.Context, reviewID string) error {
	return s.transition(ctx, reviewID, types.ReviewCancelled, nil)
}

func (s *Service) transition(ctx context.Context, reviewID string, next types.ReviewStatus, mutate func(*types.ReviewTask)) error {
	now := s.now()
	return s.Store.UpdateReview(ctx, reviewID, func(r *types.ReviewTask) error {
		if !canTransition(r.Status, next) {
			return cerr.New(cerr.KindStore, false, fmt.Errorf("%w: review %s->%s", cerr.ErrInvalidTransition, r.Status, next))
		}
		r.Status = next
		if mutate != nil {
			mutate(r)
		}
		if isTerminal(next) {
			r.ResolvedAt = &now
		}
		return nil
	})
}

// HasPending reports whether any review task for intentID is still
// outstanding (spec §4.10's has_pending_reviews).
func HasPending(ctx context.Context, st store.Store, intentID string) (bool, error) {
	reviews, err := st.GetReviewsForIntent(ctx, intentID)
	if err != nil {
		return false, fmt.Errorf("review: loading reviews for %s: %w", intentID, err)
	}
	for _, r := range reviews {
		if r.IsPending() {
			return true, nil
		}
	}
	return false, nil
}

// HasRejected reports whether any review task for intentID resolved as
// REJECTED (spec §4.10's has_rejected_review).
func HasRejected(ctx context.Context, st store.Store, intentID string) (bool, error) {
	reviews, err := st.GetReviewsForIntent(ctx, intentID)
	if err != nil {
		return false, fmt.Errorf("review: loading reviews for %s: %w", intentID, err)
	}
	for _, r := range reviews {
		if r.Status == types.ReviewRejected {
			return true, nil
		}
	}
	return false, nil
}
