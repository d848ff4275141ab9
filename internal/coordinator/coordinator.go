// Package coordinator multiplexes messages between the control
// surface, the source agent and the store agent, tracking every
// outstanding unit of work until it is either safely stored or safely
// recorded as failed. The loop terminates only once all accepted jobs
// have fully drained.
package coordinator

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/AnabVangun/publicLegiCrawler/internal/domain"
	"github.com/AnabVangun/publicLegiCrawler/internal/ports"
	"github.com/AnabVangun/publicLegiCrawler/internal/protocol"
)

// ErrProtocolViolation marks a reply that cannot be attributed to any
// outstanding work. It is fatal: swallowing it would leak tracked
// items and hang the drain forever.
var ErrProtocolViolation = errors.New("protocol violation")

// Coordinator owns all in-flight bookkeeping. It is single-threaded:
// it never runs agent logic, only routes messages and updates its own
// maps, so no locking is needed.
type Coordinator struct {
	control    <-chan protocol.ControlMsg
	sourceCmds chan<- protocol.SourceCommand
	sourceEvs  <-chan protocol.SourceEvent
	storeCmds  chan<- protocol.StoreCommand
	storeEvs   <-chan protocol.StoreEvent

	extract ports.ExtractFunc
	log     *slog.Logger

	// accepting is true until the control surface announces the end
	// of submissions.
	accepting bool
	// pending holds the jobs whose listing phase is still open.
	pending map[string]struct{}
	// routes maps a CheckNew correlation key (first id of the
	// originating page) to the job that produced the page.
	routes map[string]domain.Job
	// tracked maps every in-flight item id (post-dedup) to its job.
	tracked map[string]domain.Job

	// Events received while blocked on a command send are stashed
	// here and replayed in arrival order before reading the channels
	// again.
	sourceBacklog []protocol.SourceEvent
	storeBacklog  []protocol.StoreEvent
}

// Channels groups the five channels the coordinator multiplexes.
type Channels struct {
	Control    <-chan protocol.ControlMsg
	SourceCmds chan<- protocol.SourceCommand
	SourceEvs  <-chan protocol.SourceEvent
	StoreCmds  chan<- protocol.StoreCommand
	StoreEvs   <-chan protocol.StoreEvent
}

// New builds a coordinator ready to run.
func New(ch Channels, extract ports.ExtractFunc, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		control:    ch.Control,
		sourceCmds: ch.SourceCmds,
		sourceEvs:  ch.SourceEvs,
		storeCmds:  ch.StoreCmds,
		storeEvs:   ch.StoreEvs,
		extract:    extract,
		log:        logger,
		accepting:  true,
		pending:    make(map[string]struct{}),
		routes:     make(map[string]domain.Job),
		tracked:    make(map[string]domain.Job),
	}
}

// Run drives the event loop until every accepted job has drained. It
// returns nil on a clean drain and an error on a protocol violation
// or an agent failure; either way the caller owns shutting the agents
// down by closing their command channels.
func (c *Coordinator) Run() error {
	for c.alive() {
		if err := c.step(); err != nil {
			return err
		}
	}
	c.log.Info("all jobs drained")
	return nil
}

// alive reports whether any work is outstanding: submissions still
// accepted, a listing phase open, a dedup reply in flight, or a
// tracked item not yet acknowledged.
func (c *Coordinator) alive() bool {
	return c.accepting || len(c.pending) > 0 || len(c.routes) > 0 || len(c.tracked) > 0
}

// step blocks until at least one inbound channel is ready, then
// drains every ready channel completely before returning, so no
// single source can starve the others.
func (c *Coordinator) step() error {
	if len(c.sourceBacklog) == 0 && len(c.storeBacklog) == 0 {
		select {
		case msg, ok := <-c.control:
			if !ok {
				c.control = nil
				c.accepting = false
				break
			}
			if err := c.handleControl(msg); err != nil {
				return err
			}
		case ev := <-c.sourceEvs:
			c.sourceBacklog = append(c.sourceBacklog, ev)
		case ev := <-c.storeEvs:
			c.storeBacklog = append(c.storeBacklog, ev)
		}
	}

	if err := c.drainControl(); err != nil {
		return err
	}
	if err := c.drainSource(); err != nil {
		return err
	}
	return c.drainStore()
}

func (c *Coordinator) drainControl() error {
	for c.control != nil {
		select {
		case msg, ok := <-c.control:
			if !ok {
				c.control = nil
				c.accepting = false
				return nil
			}
			if err := c.handleControl(msg); err != nil {
				return err
			}
		default:
			return nil
		}
	}
	return nil
}

func (c *Coordinator) drainSource() error {
	for {
		if len(c.sourceBacklog) > 0 {
			ev := c.sourceBacklog[0]
			c.sourceBacklog = c.sourceBacklog[1:]
			if err := c.handleSource(ev); err != nil {
				return err
			}
			continue
		}
		select {
		case ev := <-c.sourceEvs:
			if err := c.handleSource(ev); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (c *Coordinator) drainStore() error {
	for {
		if len(c.storeBacklog) > 0 {
			ev := c.storeBacklog[0]
			c.storeBacklog = c.storeBacklog[1:]
			if err := c.handleStore(ev); err != nil {
				return err
			}
			continue
		}
		select {
		case ev := <-c.storeEvs:
			if err := c.handleStore(ev); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (c *Coordinator) handleControl(msg protocol.ControlMsg) error {
	switch msg := msg.(type) {
	case protocol.SubmitJob:
		if !c.accepting {
			return fmt.Errorf("%w: job %q submitted after end of submissions", ErrProtocolViolation, msg.Job.Name)
		}
		c.pending[msg.Job.Name] = struct{}{}
		c.log.Info("job submitted", "job", msg.Job.Name)
		c.sendSource(protocol.ListJob{Job: msg.Job})
	case protocol.EndOfSubmissions:
		c.accepting = false
		c.control = nil
	}
	return nil
}

func (c *Coordinator) handleSource(ev protocol.SourceEvent) error {
	switch ev := ev.(type) {
	case protocol.ListPage:
		if len(ev.IDs) == 0 {
			return fmt.Errorf("%w: empty listing page for job %q", ErrProtocolViolation, ev.Job.Name)
		}
		c.routes[ev.IDs[0]] = ev.Job
		c.sendStore(protocol.CheckNew{IDs: ev.IDs})
	case protocol.EndOfList:
		if _, ok := c.pending[ev.Job.Name]; !ok {
			return fmt.Errorf("%w: end of list for unknown job %q", ErrProtocolViolation, ev.Job.Name)
		}
		delete(c.pending, ev.Job.Name)
		c.log.Info("listing phase closed", "job", ev.Job.Name)
	case protocol.FetchResult:
		job, ok := c.tracked[ev.ID]
		if !ok {
			return fmt.Errorf("%w: fetched item %q is not tracked", ErrProtocolViolation, ev.ID)
		}
		c.sendStore(protocol.Persist{Outcomes: []domain.Outcome{c.outcome(ev, job)}})
	case protocol.SourceFailure:
		return fmt.Errorf("source agent failed on job %q: %w", ev.Job, ev.Err)
	}
	return nil
}

// outcome turns one fetched item into its terminal extraction result.
// Extraction is skipped entirely when the upstream payload carried no
// usable content.
func (c *Coordinator) outcome(ev protocol.FetchResult, job domain.Job) domain.Outcome {
	if !ev.HasContent {
		c.log.Warn("text without content", "cid", ev.ID, "job", job.Name)
		return domain.Outcome{ID: ev.ID, Failed: true}
	}

	records, ok := c.extract(ev.Content, job.Kind)
	if !ok {
		c.log.Warn("no pattern matched", "cid", ev.ID, "job", job.Name)
		return domain.Outcome{ID: ev.ID, Failed: true}
	}
	for i := range records {
		records[i].TextID = ev.ID
	}
	return domain.Outcome{ID: ev.ID, PublishedAt: ev.PublishedAt, Records: records}
}

func (c *Coordinator) handleStore(ev protocol.StoreEvent) error {
	switch ev := ev.(type) {
	case protocol.CheckNewResult:
		job, ok := c.routes[ev.Key]
		if !ok {
			return fmt.Errorf("%w: dedup reply for unknown correlation key %q", ErrProtocolViolation, ev.Key)
		}
		delete(c.routes, ev.Key)
		if len(ev.NewIDs) == 0 {
			// All duplicates, nothing to wait for.
			return nil
		}
		for _, id := range ev.NewIDs {
			c.tracked[id] = job
		}
		c.sendSource(protocol.FetchItems{IDs: ev.NewIDs})
	case protocol.PersistAck:
		if _, ok := c.tracked[ev.ID]; !ok {
			return fmt.Errorf("%w: persist ack for untracked item %q", ErrProtocolViolation, ev.ID)
		}
		delete(c.tracked, ev.ID)
	case protocol.EndOfBatch:
		// End-of-transaction marker; the per-item acks already
		// retired the items.
	case protocol.StoreFailure:
		return fmt.Errorf("store agent failed: %w", ev.Err)
	}
	return nil
}

// sendSource delivers a command without ever deafening the loop: any
// event arriving while the send blocks is stashed for replay in
// arrival order.
func (c *Coordinator) sendSource(cmd protocol.SourceCommand) {
	for {
		select {
		case c.sourceCmds <- cmd:
			return
		case ev := <-c.sourceEvs:
			c.sourceBacklog = append(c.sourceBacklog, ev)
		case ev := <-c.storeEvs:
			c.storeBacklog = append(c.storeBacklog, ev)
		}
	}
}

// sendStore is the store-side twin of sendSource.
func (c *Coordinator) sendStore(cmd protocol.StoreCommand) {
	for {
		select {
		case c.storeCmds <- cmd:
			return
		case ev := <-c.sourceEvs:
			c.sourceBacklog = append(c.sourceBacklog, ev)
		case ev := <-c.storeEvs:
			c.storeBacklog = append(c.storeBacklog, ev)
		}
	}
}
