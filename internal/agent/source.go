// Package agent hosts the two long-lived tasks the coordinator fans
// work out to: the source agent (remote catalog) and the store agent
// (persistent store). Each agent processes its inbound commands
// strictly in arrival order and is the only writer to its outbound
// channel.
package agent

import (
	"context"
	"log/slog"

	"github.com/AnabVangun/publicLegiCrawler/internal/ports"
	"github.com/AnabVangun/publicLegiCrawler/internal/protocol"
)

// Source lists and fetches texts from the remote catalog.
type Source struct {
	catalog ports.Catalog
	cmds    <-chan protocol.SourceCommand
	events  chan<- protocol.SourceEvent
	log     *slog.Logger
}

// NewSource wires a source agent around a catalog client.
func NewSource(catalog ports.Catalog, cmds <-chan protocol.SourceCommand, events chan<- protocol.SourceEvent, logger *slog.Logger) *Source {
	return &Source{catalog: catalog, cmds: cmds, events: events, log: logger}
}

// Run consumes commands until the command channel is closed, then
// closes the event channel.
func (s *Source) Run(ctx context.Context) {
	defer close(s.events)
	for cmd := range s.cmds {
		switch cmd := cmd.(type) {
		case protocol.ListJob:
			s.list(ctx, cmd)
		case protocol.FetchItems:
			s.fetch(ctx, cmd)
		}
	}
}

// list pages through the remote listing until the cumulative count
// reaches the server-reported total, emitting one ListPage per
// non-empty page and a final EndOfList.
func (s *Source) list(ctx context.Context, cmd protocol.ListJob) {
	page, count, total := 1, 0, 0
	for {
		ids, pageTotal, err := s.catalog.Search(ctx, cmd.Job.Query, page)
		if err != nil {
			s.events <- protocol.SourceFailure{Job: cmd.Job.Name, Err: err}
			return
		}
		total = pageTotal
		count += len(ids)
		if len(ids) > 0 {
			s.events <- protocol.ListPage{Job: cmd.Job, IDs: ids}
		}
		s.log.Debug("listed page", "job", cmd.Job.Name, "page", page, "count", count, "total", total)
		// The empty-page guard protects against a server that keeps
		// reporting a total it never delivers.
		if count >= total || len(ids) == 0 {
			break
		}
		page++
	}
	s.events <- protocol.EndOfList{Job: cmd.Job}
}

// fetch retrieves each text in input order. A failed or structurally
// incomplete fetch is not fatal: it yields a result without content,
// which downstream records as a failed text.
func (s *Source) fetch(ctx context.Context, cmd protocol.FetchItems) {
	for _, id := range cmd.IDs {
		text, err := s.catalog.Consult(ctx, id)
		if err != nil {
			s.log.Warn("fetch failed", "cid", id, "error", err)
			s.events <- protocol.FetchResult{ID: id}
			continue
		}
		s.events <- protocol.FetchResult{
			ID:          id,
			PublishedAt: text.PublishedAt,
			Content:     text.Content,
			HasContent:  text.HasContent,
		}
	}
}
