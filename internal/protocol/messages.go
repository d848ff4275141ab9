// Package protocol defines the closed sets of messages exchanged
// between the coordinator, the source agent and the store agent. Each
// channel direction has its own sealed interface so dispatch is an
// exhaustive type switch rather than stringly-typed markers.
package protocol

import (
	"time"

	"github.com/AnabVangun/publicLegiCrawler/internal/domain"
)

// ControlMsg travels from the control surface to the coordinator.
type ControlMsg interface{ controlMsg() }

// SubmitJob asks the coordinator to process one listing criterion.
type SubmitJob struct{ Job domain.Job }

// EndOfSubmissions tells the coordinator no further jobs will come.
type EndOfSubmissions struct{}

func (SubmitJob) controlMsg()        {}
func (EndOfSubmissions) controlMsg() {}

// SourceCommand travels from the coordinator to the source agent.
// Closing the command channel is the shutdown signal.
type SourceCommand interface{ sourceCommand() }

// ListJob starts the listing phase of a job.
type ListJob struct{ Job domain.Job }

// FetchItems requests the content of each id, in order.
type FetchItems struct{ IDs []string }

func (ListJob) sourceCommand()    {}
func (FetchItems) sourceCommand() {}

// SourceEvent travels from the source agent to the coordinator.
type SourceEvent interface{ sourceEvent() }

// ListPage carries one page of listed ids for a job. Never empty:
// an empty listing page is not emitted.
type ListPage struct {
	Job domain.Job
	IDs []string
}

// EndOfList closes the listing phase of a job.
type EndOfList struct{ Job domain.Job }

// FetchResult carries one fetched text. HasContent is false when the
// upstream payload was structurally incomplete or the fetch failed;
// such items become failure outcomes downstream.
type FetchResult struct {
	ID          string
	PublishedAt time.Time
	Content     string
	HasContent  bool
}

// SourceFailure reports an unrecoverable listing error. Fatal to the
// run: a broken listing cannot be attributed to single items.
type SourceFailure struct {
	Job string
	Err error
}

func (ListPage) sourceEvent()      {}
func (EndOfList) sourceEvent()     {}
func (FetchResult) sourceEvent()   {}
func (SourceFailure) sourceEvent() {}

// StoreCommand travels from the coordinator to the store agent.
// Closing the command channel is the shutdown signal.
type StoreCommand interface{ storeCommand() }

// CheckNew asks which of the ids are not yet stored. IDs is never
// empty; its first element is the reply's correlation key.
type CheckNew struct{ IDs []string }

// Persist writes a batch of outcomes as one transaction.
type Persist struct{ Outcomes []domain.Outcome }

func (CheckNew) storeCommand() {}
func (Persist) storeCommand()  {}

// StoreEvent travels from the store agent to the coordinator.
type StoreEvent interface{ storeEvent() }

// CheckNewResult answers a CheckNew: the ids of the originating batch
// that are not yet stored, in their original relative order. Key is
// the first id of the originating batch.
type CheckNewResult struct {
	Key    string
	NewIDs []string
}

// PersistAck confirms one outcome reached its terminal state.
type PersistAck struct {
	ID     string
	Stored bool
}

// EndOfBatch marks the end of one Persist transaction. Purely a
// marker: the per-item acks already retired the items.
type EndOfBatch struct{}

// StoreFailure reports an aborted Persist transaction or a failed
// existence query. Fatal to the run: the batch must not vanish.
type StoreFailure struct{ Err error }

func (CheckNewResult) storeEvent() {}
func (PersistAck) storeEvent()     {}
func (EndOfBatch) storeEvent()     {}
func (StoreFailure) storeEvent()   {}
