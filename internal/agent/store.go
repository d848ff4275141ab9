package agent

import (
	"context"
	"log/slog"

	"github.com/AnabVangun/publicLegiCrawler/internal/domain"
	"github.com/AnabVangun/publicLegiCrawler/internal/ports"
	"github.com/AnabVangun/publicLegiCrawler/internal/protocol"
)

// Store checks ids against the persistent store and writes outcomes.
type Store struct {
	repo   ports.Repository
	cmds   <-chan protocol.StoreCommand
	events chan<- protocol.StoreEvent
	log    *slog.Logger
}

// NewStore wires a store agent around a repository.
func NewStore(repo ports.Repository, cmds <-chan protocol.StoreCommand, events chan<- protocol.StoreEvent, logger *slog.Logger) *Store {
	return &Store{repo: repo, cmds: cmds, events: events, log: logger}
}

// Run consumes commands until the command channel is closed, then
// closes the event channel.
func (s *Store) Run(ctx context.Context) {
	defer close(s.events)
	for cmd := range s.cmds {
		switch cmd := cmd.(type) {
		case protocol.CheckNew:
			s.checkNew(ctx, cmd)
		case protocol.Persist:
			s.persist(ctx, cmd)
		}
	}
}

// checkNew answers with the ids not yet stored, preserving input
// order. The first id of the batch is the reply's correlation key;
// an empty answer is meaningful (all duplicates).
func (s *Store) checkNew(ctx context.Context, cmd protocol.CheckNew) {
	known, err := s.repo.ExistsBatch(ctx, cmd.IDs)
	if err != nil {
		s.events <- protocol.StoreFailure{Err: err}
		return
	}

	newIDs := make([]string, 0, len(cmd.IDs))
	for _, id := range cmd.IDs {
		if !known[id] {
			newIDs = append(newIDs, id)
		}
	}
	s.events <- protocol.CheckNewResult{Key: cmd.IDs[0], NewIDs: newIDs}
}

// persist partitions the outcomes, writes everything in one
// transaction, then acknowledges each item followed by an
// end-of-batch marker. A transaction error is surfaced instead of
// the acks: the batch must not vanish.
func (s *Store) persist(ctx context.Context, cmd protocol.Persist) {
	var batch domain.PersistBatch
	for _, outcome := range cmd.Outcomes {
		if outcome.Failed {
			batch.Failed = append(batch.Failed, outcome.ID)
			continue
		}
		batch.Accepted = append(batch.Accepted, domain.Accepted{
			ID:          outcome.ID,
			PublishedAt: outcome.PublishedAt,
		})
		batch.Records = append(batch.Records, outcome.Records...)
	}

	if err := s.repo.SaveBatch(ctx, batch); err != nil {
		s.events <- protocol.StoreFailure{Err: err}
		return
	}

	for _, outcome := range cmd.Outcomes {
		s.events <- protocol.PersistAck{ID: outcome.ID, Stored: !outcome.Failed}
	}
	s.events <- protocol.EndOfBatch{}
}
