package mctp

import "sync"

// ResponseWaiter is a single-consumer handle signalled at most once with the
// payload of a matching response (the frame after the transport header), or
// dropped on cancellation.
type ResponseWaiter struct {
	ch chan []byte
}

// newResponseWaiter creates a waiter with room for exactly one signal.
func newResponseWaiter() *ResponseWaiter {
	return &ResponseWaiter{ch: make(chan []byte, 1)}
}

// signal delivers resp to the waiter. It never blocks: the channel has room
// for exactly one value and take_match removes the entry before signalling.
func (w *ResponseWaiter) signal(resp []byte) {
	w.ch <- resp
}

// Wait blocks until a response arrives, the waiter is cancelled, or ctx-less
// cancellation is requested via cancel. Returns ErrFlowCancelled if cancelled
// before a response arrived.
func (w *ResponseWaiter) Wait(cancel <-chan struct{}) ([]byte, error) {
	select {
	case resp := <-w.ch:
		return resp, nil
	case <-cancel:
		return nil, ErrFlowCancelled
	}
}

type flowEntry struct {
	tag    MsgFlowTag
	waiter *ResponseWaiter
	live   *bool // set false when the caller cancels, for opportunistic eviction
}

// FlowTable correlates received MCTP packets with pending outbound requests
// by their MsgFlowTag. Guarded by a single mutex; critical sections never
// suspend while held and are O(N) over in-flight flows.
type FlowTable struct {
	mu      sync.Mutex
	entries []flowEntry
}

// NewFlowTable creates an empty flow table.
func NewFlowTable() *FlowTable {
	return &FlowTable{}
}

// Insert appends a new pending flow. Duplicate tags are permitted (first
// match wins on take_match); callers should rotate msg_tag per outstanding
// request to avoid relying on that.
func (t *FlowTable) Insert(tag MsgFlowTag, waiter *ResponseWaiter) *bool {
	live := true
	t.mu.Lock()
	t.entries = append(t.entries, flowEntry{tag: tag, waiter: waiter, live: &live})
	t.mu.Unlock()
	return &live
}

// TakeMatch scans in insertion order for the first entry whose stored tag
// matches recv per MatchesResponse, removes and returns it. Entries whose
// live flag has been cleared by a cancelled caller are evicted opportunistically
// as the scan passes over them.
func (t *FlowTable) TakeMatch(recv MsgFlowTag) *ResponseWaiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	kept := t.entries[:0]
	var found *ResponseWaiter
	for _, e := range t.entries {
		switch {
		case !*e.live:
			continue // opportunistic eviction of a cancelled flow
		case found == nil && e.tag.MatchesResponse(recv):
			found = e.waiter
		default:
			kept = append(kept, e)
		}
	}
	t.entries = kept
	return found
}

// Remove drops the first entry with the given tag without signalling it,
// used when transmitting the request fails. A cancelled caller's entry is
// not removed here; TakeMatch evicts it on a later scan.
func (t *FlowTable) Remove(tag MsgFlowTag) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, e := range t.entries {
		if e.tag == tag {
			t.entries = append(t.entries[:i], t.entries[i+1:]...)
			return
		}
	}
}

// Size returns the number of in-flight flows.
func (t *FlowTable) Size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
