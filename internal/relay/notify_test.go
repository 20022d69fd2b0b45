package relay

import (
	"context"
	"encoding/json"
	"testing"
)

func newNotifyFixture() (*Notifications, *Chat, *Registry, *fakeTransport) {
	reg := NewRegistry()
	ft := newFakeTransport()
	bc := NewBroadcaster(ft)
	log := discardLogger()
	return NewNotifications(reg, ft, bc, log), NewChat(reg, ft, bc, log), reg, ft
}

func TestJoinGroupRegistersAndAnnounces(t *testing.T) {
	notify, _, reg, ft := newNotifyFixture()

	notify.JoinGroup(context.Background(), "c1", UserConnection{UserName: "alice", Room: "alerts"})

	u, ok := reg.Lookup("c1")
	if !ok || u.Room != "alerts" {
		t.Fatalf("membership not recorded: %+v ok=%v", u, ok)
	}
	if ft.groupOf("c1") != "alerts" {
		t.Fatalf("group = %q, want alerts", ft.groupOf("c1"))
	}

	sent := ft.sends()
	if len(sent) != 1 {
		t.Fatalf("got %d sends, want 1", len(sent))
	}
	s := sent[0]
	if s.scope != "group" || s.target != "alerts" || s.event != EventReceiveNotification {
		t.Fatalf("unexpected send: %+v", s)
	}
	if s.args[0] != "admin" || s.args[1] != "alice joined notifications in alerts." {
		t.Fatalf("unexpected announcement: %v", s.args)
	}
}

func TestSendNotificationTaggedWithStoredName(t *testing.T) {
	notify, _, _, ft := newNotifyFixture()
	ctx := context.Background()

	notify.JoinGroup(ctx, "c1", UserConnection{UserName: "alice", Room: "alerts"})

	before := len(ft.sends())
	notify.SendNotification(ctx, "c1", "deploy done")

	s := ft.sends()[before]
	if s.target != "alerts" || s.event != EventReceiveNotification {
		t.Fatalf("unexpected send: %+v", s)
	}
	if s.args[0] != "alice" || s.args[1] != "deploy done" {
		t.Fatalf("unexpected payload: %v", s.args)
	}
}

func TestSendNotificationUnjoinedSilentDrop(t *testing.T) {
	notify, _, _, ft := newNotifyFixture()

	notify.SendNotification(context.Background(), "ghost", "anyone?")

	if n := len(ft.sends()); n != 0 {
		t.Fatalf("unjoined notification must produce zero sends, got %d", n)
	}
}

// A connection that joined through chat is immediately resolvable by the
// notification handler, and vice versa: the registry is shared.
func TestCrossHandlerSharedRegistry(t *testing.T) {
	notify, chat, _, ft := newNotifyFixture()
	ctx := context.Background()

	chat.JoinRoom(ctx, "c1", UserConnection{UserName: "alice", Room: "general"})

	before := len(ft.sends())
	notify.SendNotification(ctx, "c1", "ping")
	s := ft.sends()[before]
	if s.target != "general" || s.args[0] != "alice" {
		t.Fatalf("chat join not visible to notifications: %+v", s)
	}

	notify.JoinGroup(ctx, "c2", UserConnection{UserName: "bob", Room: "random"})
	before = len(ft.sends())
	chat.SendMessage(ctx, "c2", "hello")
	s = ft.sends()[before]
	if s.target != "random" || s.args[0] != "bob" {
		t.Fatalf("notification join not visible to chat: %+v", s)
	}
}

func TestNotifyDispatch(t *testing.T) {
	notify, _, reg, ft := newNotifyFixture()
	ctx := context.Background()

	join, _ := json.Marshal(UserConnection{UserName: "alice", Room: "alerts"})
	notify.Dispatch(ctx, "c1", "JoinGroup", []json.RawMessage{join})
	if _, ok := reg.Lookup("c1"); !ok {
		t.Fatal("dispatching JoinGroup should register membership")
	}

	msg, _ := json.Marshal("heads up")
	notify.Dispatch(ctx, "c1", "SendNotification", []json.RawMessage{msg})
	sent := ft.sends()
	last := sent[len(sent)-1]
	if last.event != EventReceiveNotification || last.args[1] != "heads up" {
		t.Fatalf("unexpected dispatch result: %+v", last)
	}

	notify.Disconnected("c1")
	if _, ok := reg.Lookup("c1"); ok {
		t.Fatal("registry entry must be removed on disconnect")
	}
}
