package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AnabVangun/publicLegiCrawler/internal/domain"
	"github.com/AnabVangun/publicLegiCrawler/internal/protocol"
)

type fakeRepo struct {
	existing map[string]bool
	batches  []domain.PersistBatch
	saveErr  error
	checkErr error
}

func (f *fakeRepo) ExistsBatch(_ context.Context, ids []string) (map[string]bool, error) {
	if f.checkErr != nil {
		return nil, f.checkErr
	}
	result := make(map[string]bool)
	for _, id := range ids {
		if f.existing[id] {
			result[id] = true
		}
	}
	return result, nil
}

func (f *fakeRepo) SaveBatch(_ context.Context, batch domain.PersistBatch) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.batches = append(f.batches, batch)
	return nil
}

func (f *fakeRepo) InitSchema(context.Context) error { return nil }

func runStore(t *testing.T, repo *fakeRepo, cmds ...protocol.StoreCommand) []protocol.StoreEvent {
	t.Helper()

	in := make(chan protocol.StoreCommand, len(cmds))
	out := make(chan protocol.StoreEvent, 64)
	for _, cmd := range cmds {
		in <- cmd
	}
	close(in)

	NewStore(repo, in, out, testLogger()).Run(context.Background())

	var events []protocol.StoreEvent
	for ev := range out {
		events = append(events, ev)
	}
	return events
}

func TestCheckNewFiltersDuplicatesPreservingOrder(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{existing: map[string]bool{"B": true}}
	events := runStore(t, repo, protocol.CheckNew{IDs: []string{"A", "B", "C"}})

	if len(events) != 1 {
		t.Fatalf("expected one reply, got %#v", events)
	}
	reply, ok := events[0].(protocol.CheckNewResult)
	if !ok {
		t.Fatalf("expected CheckNewResult, got %#v", events[0])
	}
	if reply.Key != "A" {
		t.Fatalf("correlation key must be the first queried id, got %q", reply.Key)
	}
	if len(reply.NewIDs) != 2 || reply.NewIDs[0] != "A" || reply.NewIDs[1] != "C" {
		t.Fatalf("unexpected new ids: %v", reply.NewIDs)
	}
}

func TestCheckNewAllDuplicates(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{existing: map[string]bool{"A": true, "B": true}}
	events := runStore(t, repo, protocol.CheckNew{IDs: []string{"A", "B"}})

	reply, ok := events[0].(protocol.CheckNewResult)
	if !ok || reply.Key != "A" {
		t.Fatalf("expected CheckNewResult keyed on A, got %#v", events[0])
	}
	if len(reply.NewIDs) != 0 {
		t.Fatalf("expected empty answer for all duplicates, got %v", reply.NewIDs)
	}
}

func TestPersistPartitionsAndAcknowledges(t *testing.T) {
	t.Parallel()

	published := time.Date(2021, time.January, 12, 0, 0, 0, 0, time.UTC)
	repo := &fakeRepo{}
	outcomes := []domain.Outcome{
		{ID: "OK", PublishedAt: published, Records: []domain.Record{{TextID: "OK", Grade: "g", FullName: "N (P)", Year: 2021}}},
		{ID: "KO", Failed: true},
	}

	events := runStore(t, repo, protocol.Persist{Outcomes: outcomes})

	if len(repo.batches) != 1 {
		t.Fatalf("expected one transaction, got %d", len(repo.batches))
	}
	batch := repo.batches[0]
	if len(batch.Failed) != 1 || batch.Failed[0] != "KO" {
		t.Fatalf("unexpected failed partition: %v", batch.Failed)
	}
	if len(batch.Accepted) != 1 || batch.Accepted[0].ID != "OK" || !batch.Accepted[0].PublishedAt.Equal(published) {
		t.Fatalf("unexpected accepted partition: %+v", batch.Accepted)
	}
	if len(batch.Records) != 1 || batch.Records[0].TextID != "OK" {
		t.Fatalf("unexpected records: %+v", batch.Records)
	}

	if len(events) != 3 {
		t.Fatalf("expected 2 acks and an end-of-batch, got %#v", events)
	}
	ackOK, ok := events[0].(protocol.PersistAck)
	if !ok || ackOK.ID != "OK" || !ackOK.Stored {
		t.Fatalf("unexpected first ack: %#v", events[0])
	}
	ackKO, ok := events[1].(protocol.PersistAck)
	if !ok || ackKO.ID != "KO" || ackKO.Stored {
		t.Fatalf("unexpected second ack: %#v", events[1])
	}
	if _, ok := events[2].(protocol.EndOfBatch); !ok {
		t.Fatalf("expected EndOfBatch, got %#v", events[2])
	}
}

func TestPersistFailureAbortsBatch(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{saveErr: errors.New("constraint violated")}
	events := runStore(t, repo, protocol.Persist{Outcomes: []domain.Outcome{{ID: "X", Failed: true}}})

	if len(events) != 1 {
		t.Fatalf("a failed batch must yield only a failure event, got %#v", events)
	}
	if _, ok := events[0].(protocol.StoreFailure); !ok {
		t.Fatalf("expected StoreFailure, got %#v", events[0])
	}
}

func TestCheckNewFailureIsSurfaced(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{checkErr: errors.New("connection lost")}
	events := runStore(t, repo, protocol.CheckNew{IDs: []string{"A"}})

	if len(events) != 1 {
		t.Fatalf("expected one failure event, got %#v", events)
	}
	if _, ok := events[0].(protocol.StoreFailure); !ok {
		t.Fatalf("expected StoreFailure, got %#v", events[0])
	}
}
