package relay

import (
	"context"
	"sync"
)

// fakeTransport records group membership and every send so handler tests can
// assert exactly what would have gone over the wire.
type fakeTransport struct {
	mu     sync.Mutex
	member map[string]string // connID -> group
	sent   []sentEvent
}

type sentEvent struct {
	scope  string // "group", "all", or "conn"
	target string
	event  string
	args   []any
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{member: map[string]string{}}
}

func (f *fakeTransport) JoinGroup(connID, group string) {
	f.mu.Lock()
	f.member[connID] = group
	f.mu.Unlock()
}

func (f *fakeTransport) SendToGroup(_ context.Context, group, event string, args ...any) {
	f.record(sentEvent{scope: "group", target: group, event: event, args: args})
}

func (f *fakeTransport) SendToAll(_ context.Context, event string, args ...any) {
	f.record(sentEvent{scope: "all", event: event, args: args})
}

func (f *fakeTransport) SendToConnection(_ context.Context, connID, event string, args ...any) {
	f.record(sentEvent{scope: "conn", target: connID, event: event, args: args})
}

func (f *fakeTransport) record(e sentEvent) {
	f.mu.Lock()
	f.sent = append(f.sent, e)
	f.mu.Unlock()
}

func (f *fakeTransport) sends() []sentEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentEvent(nil), f.sent...)
}

func (f *fakeTransport) groupOf(connID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.member[connID]
}
