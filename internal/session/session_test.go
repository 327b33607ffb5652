package session

import (
	"testing"

	"marketplace/internal/domain"
)

func TestNewSessionIsAnonymous(t *testing.T) {
	sess := New()

	if sess.IsAuthenticated() {
		t.Error("fresh session must be anonymous")
	}
	if sess.IsAdmin() {
		t.Error("anonymous session must not be admin")
	}
	if sess.Current() != nil {
		t.Error("anonymous session must have no principal")
	}
	if sess.CurrentID() != nil {
		t.Error("anonymous session must have no actor id")
	}
}

func TestBindAndClear(t *testing.T) {
	sess := New()
	sess.Bind(&domain.User{ID: 7, Username: "alice", Role: domain.RoleAdmin})

	if !sess.IsAuthenticated() || !sess.IsAdmin() {
		t.Error("bound admin principal not reflected")
	}
	if id := sess.CurrentID(); id == nil || *id != 7 {
		t.Errorf("expected actor id 7, got %v", id)
	}

	sess.Clear()
	if sess.IsAuthenticated() || sess.Current() != nil {
		t.Error("cleared session must be anonymous again")
	}
}

func TestUserRoleIsNotAdmin(t *testing.T) {
	sess := New()
	sess.Bind(&domain.User{ID: 2, Username: "bob", Role: domain.RoleUser})

	if !sess.IsAuthenticated() {
		t.Error("bound principal not reflected")
	}
	if sess.IsAdmin() {
		t.Error("USER role must not pass the admin check")
	}
}

func TestRebindReplacesPrincipal(t *testing.T) {
	sess := New()
	sess.Bind(&domain.User{ID: 1, Username: "alice", Role: domain.RoleUser})
	sess.Bind(&domain.User{ID: 2, Username: "bob", Role: domain.RoleAdmin})

	if id := sess.CurrentID(); id == nil || *id != 2 {
		t.Errorf("expected the later principal to win, got %v", id)
	}
}
