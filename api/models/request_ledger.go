package models

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/moyoez/localshare-go/tool"
	"github.com/moyoez/localshare-go/types"
)

// LedgerOptions tunes the approval state machine.
type LedgerOptions struct {
	// TTL expires tickets that were created longer ago than this. Zero keeps
	// tickets until they are consumed, cancelled or the process exits.
	TTL time.Duration
	// StrictDecisions rejects a decision on a ticket that is no longer pending.
	StrictDecisions bool
	Clock           tool.Clock
}

// Ledger maps request ids to download tickets.
//
//	pending -> approved | rejected   (admin)
//	approved -> deleted              (Consume, exactly once)
//	any -> deleted                   (Cancel)
type Ledger struct {
	mu      sync.Mutex
	tickets map[string]types.DownloadRequest
	opts    LedgerOptions
}

func NewLedger(opts LedgerOptions) *Ledger {
	if opts.Clock == nil {
		opts.Clock = tool.RealClock{}
	}
	return &Ledger{
		tickets: map[string]types.DownloadRequest{},
		opts:    opts,
	}
}

// Create inserts a pending ticket with a fresh id.
func (l *Ledger) Create(fileName, relPath, remoteAddr string) types.DownloadRequest {
	req := types.DownloadRequest{
		FileName:     fileName,
		RelativePath: relPath,
		Status:       types.RequestPending,
		CreatedAt:    l.opts.Clock.Now(),
		RemoteAddr:   remoteAddr,
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for {
		req.ID = tool.GenerateRandomUUID()
		if _, exists := l.tickets[req.ID]; !exists {
			break
		}
	}
	l.tickets[req.ID] = req
	return req
}

// lookupLocked returns the ticket, dropping it first if it has expired.
func (l *Ledger) lookupLocked(id string) (types.DownloadRequest, bool) {
	req, ok := l.tickets[id]
	if !ok {
		return types.DownloadRequest{}, false
	}
	if l.expiredLocked(req, l.opts.Clock.Now()) {
		delete(l.tickets, id)
		return types.DownloadRequest{}, false
	}
	return req, true
}

func (l *Ledger) expiredLocked(req types.DownloadRequest, now time.Time) bool {
	return l.opts.TTL > 0 && now.Sub(req.CreatedAt) >= l.opts.TTL
}

// Decide records the admin decision on a ticket.
func (l *Ledger) Decide(id string, decision types.RequestStatus) (types.DownloadRequest, error) {
	if !decision.IsDecision() {
		return types.DownloadRequest{}, ErrInvalidDecision
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	req, ok := l.lookupLocked(id)
	if !ok {
		return types.DownloadRequest{}, ErrTicketNotFound
	}
	if l.opts.StrictDecisions && req.Status != types.RequestPending {
		return req, ErrAlreadyDecided
	}
	req.Status = decision
	req.DecidedAt = l.opts.Clock.Now()
	l.tickets[id] = req
	return req, nil
}

// Poll reads a ticket without changing it.
func (l *Ledger) Poll(id string) (types.DownloadRequest, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	req, ok := l.lookupLocked(id)
	if !ok {
		return types.DownloadRequest{}, ErrTicketNotFound
	}
	return req, nil
}

// Consume redeems an approved ticket for relPath. The ticket is deleted on
// success, so the same id can never be redeemed twice.
func (l *Ledger) Consume(id, relPath string) (types.DownloadRequest, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	req, ok := l.lookupLocked(id)
	if !ok {
		return types.DownloadRequest{}, ErrTicketNotFound
	}
	if req.Status != types.RequestApproved {
		return req, ErrNotApproved
	}
	if tool.CleanRelPath(req.RelativePath) != tool.CleanRelPath(relPath) {
		return req, ErrTicketMismatch
	}
	delete(l.tickets, id)
	return req, nil
}

// Cancel deletes a ticket whatever its status. Reports whether it existed.
func (l *Ledger) Cancel(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.lookupLocked(id); !ok {
		return false
	}
	delete(l.tickets, id)
	return true
}

// ListPending returns a snapshot of pending tickets, oldest first.
func (l *Ledger) ListPending() []types.DownloadRequest {
	l.mu.Lock()
	now := l.opts.Clock.Now()
	out := make([]types.DownloadRequest, 0, len(l.tickets))
	for _, req := range l.tickets {
		if req.Status == types.RequestPending && !l.expiredLocked(req, now) {
			out = append(out, req)
		}
	}
	l.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// CountPending returns the number of pending tickets.
func (l *Ledger) CountPending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.opts.Clock.Now()
	n := 0
	for _, req := range l.tickets {
		if req.Status == types.RequestPending && !l.expiredLocked(req, now) {
			n++
		}
	}
	return n
}

// SweepExpired removes expired tickets and returns how many were dropped.
func (l *Ledger) SweepExpired() int {
	if l.opts.TTL <= 0 {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.opts.Clock.Now()
	n := 0
	for id, req := range l.tickets {
		if l.expiredLocked(req, now) {
			delete(l.tickets, id)
			n++
		}
	}
	return n
}

// StartSweeper purges expired tickets every interval until ctx is done.
// It does nothing when expiry is disabled.
func (l *Ledger) StartSweeper(ctx context.Context, interval time.Duration) {
	if l.opts.TTL <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := l.SweepExpired(); n > 0 {
					tool.DefaultLogger.Infof("[Ledger] Expired %d download request(s)", n)
				}
			}
		}
	}()
}
