package reporting

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"leadinbox/internal/conversation"
)

var ErrNoSnapshot = errors.New("reporting: no snapshot taken yet")

// Source is the read side of the conversation store. It is satisfied by
// conversation.Repository; reporting never writes through it.
type Source interface {
	ListConversations(ctx context.Context) ([]conversation.Conversation, error)
	ListMessages(ctx context.Context, convID string) ([]conversation.Message, error)
}

// Repository stores nightly snapshots. Append-only.
type Repository interface {
	AppendSnapshot(ctx context.Context, s Snapshot) error
	LatestSnapshot(ctx context.Context) (Snapshot, bool, error)
	ListSnapshots(ctx context.Context) ([]Snapshot, error)
}

type Service struct {
	source Source
	repo   Repository
	clock  func() time.Time
	log    *slog.Logger
}

func NewService(source Source, repo Repository, log *slog.Logger) *Service {
	return &Service{source: source, repo: repo, clock: time.Now, log: log}
}

// DailySummary computes the summary for the calendar day containing at,
// in UTC. Messages outside the day are ignored; funnel and intent counts
// cover the whole store since conversations have no day boundary.
func (s *Service) DailySummary(ctx context.Context, at time.Time) (DailySummary, error) {
	day := at.UTC().Truncate(24 * time.Hour)
	end := day.Add(24 * time.Hour)

	convs, err := s.source.ListConversations(ctx)
	if err != nil {
		return DailySummary{}, err
	}

	out := DailySummary{
		Date:               day.Format("2006-01-02"),
		IntentDistribution: map[string]int{},
	}

	var responseTotal time.Duration
	var responseCount int

	for _, c := range convs {
		if c.Intent != "" {
			out.IntentDistribution[c.Intent]++
		}
		switch c.Status {
		case conversation.StatusNew:
			out.Funnel.New++
		case conversation.StatusQualified:
			out.Funnel.Qualified++
		default:
			out.Funnel.Other++
		}
		if c.Overdue {
			out.Funnel.Overdue++
		}

		msgs, err := s.source.ListMessages(ctx, c.ID)
		if err != nil {
			return DailySummary{}, err
		}
		sort.Slice(msgs, func(i, j int) bool { return msgs[i].Timestamp.Before(msgs[j].Timestamp) })

		var firstIn, firstOutAfter *time.Time
		for i := range msgs {
			m := msgs[i]
			inDay := !m.Timestamp.Before(day) && m.Timestamp.Before(end)
			switch m.Direction {
			case conversation.DirectionIn:
				if inDay {
					out.InboundMessages++
				}
				if firstIn == nil {
					firstIn = &msgs[i].Timestamp
				}
			case conversation.DirectionOut:
				if inDay {
					out.OutboundMessages++
				}
				if firstIn != nil && firstOutAfter == nil && !m.Timestamp.Before(*firstIn) {
					firstOutAfter = &msgs[i].Timestamp
				}
			}
		}
		if firstIn != nil && firstOutAfter != nil {
			responseTotal += firstOutAfter.Sub(*firstIn)
			responseCount++
		}
	}

	if responseCount > 0 {
		out.AvgFirstResponseMs = (responseTotal / time.Duration(responseCount)).Milliseconds()
	}
	return out, nil
}

// TakeSnapshot computes the current day's summary and stores it.
func (s *Service) TakeSnapshot(ctx context.Context) (Snapshot, error) {
	now := s.clock().UTC()
	sum, err := s.DailySummary(ctx, now)
	if err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{ID: uuid.NewString(), TakenAt: now, Summary: sum}
	if err := s.repo.AppendSnapshot(ctx, snap); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func (s *Service) Latest(ctx context.Context) (Snapshot, error) {
	snap, ok, err := s.repo.LatestSnapshot(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	if !ok {
		return Snapshot{}, ErrNoSnapshot
	}
	return snap, nil
}

func (s *Service) All(ctx context.Context) ([]Snapshot, error) {
	return s.repo.ListSnapshots(ctx)
}

// Run snapshots on a fixed interval until ctx is canceled. Intended to be
// started from main when the interval is configured.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := s.TakeSnapshot(ctx); err != nil {
				s.log.Error("report snapshot failed", "error", err)
			}
		}
	}
}
