package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/RotemPeled/Crypto-Investor-Dashboard/internal/domain/models"
	domrepo "github.com/RotemPeled/Crypto-Investor-Dashboard/internal/domain/repository"
	"github.com/RotemPeled/Crypto-Investor-Dashboard/pkg/util"
)

// VoteService records thumbs up/down on dashboard items.
type VoteService struct {
	votes     domrepo.VoteStore
	snapshots domrepo.SnapshotStore
	now       func() time.Time
	loc       *time.Location
}

func NewVoteService(votes domrepo.VoteStore, snapshots domrepo.SnapshotStore, opts ...ClockOption) *VoteService {
	c := applyClock(opts)
	return &VoteService{votes: votes, snapshots: snapshots, now: c.now, loc: c.loc}
}

// Save attaches the vote to today's dashboard. An empty dashboard id resolves
// to today's snapshot, which must exist.
func (s *VoteService) Save(ctx context.Context, userID int64, req *models.VoteRequest) (*models.Vote, error) {
	section, err := models.ParseSectionKey(req.Section)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidSection, req.Section)
	}
	day := util.Day(s.now(), s.loc)

	dashboardID := req.DashboardID
	if dashboardID == "" {
		snap, err := s.snapshots.Get(ctx, userID, day)
		if err != nil {
			return nil, fmt.Errorf("load snapshot: %w", err)
		}
		if snap == nil {
			return nil, models.ErrNotReady
		}
		dashboardID = snap.ID
	}

	v := &models.Vote{
		UserID:      userID,
		DashboardID: dashboardID,
		Section:     section,
		Item:        req.Item,
		Value:       req.Value,
		Day:         day,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.votes.SaveVote(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// List returns votes for the given day ("today", "", or YYYY-MM-DD).
func (s *VoteService) List(ctx context.Context, userID int64, date, dashboardID string) ([]models.Vote, error) {
	day, ok := util.ResolveDay(date, s.now(), s.loc)
	if !ok {
		return nil, fmt.Errorf("%w %q", models.ErrInvalidDate, date)
	}
	return s.votes.ListVotes(ctx, userID, day, dashboardID)
}
