package redis

import (
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestSessionStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewSessionStore(client, time.Minute)

	session := store.GetOrCreate("quiz-1", "m1")
	if session.MasterID() != "m1" {
		t.Fatalf("expected master m1, got %s", session.MasterID())
	}
	if !mr.Exists("arena:session:quiz-1") {
		t.Fatalf("expected redis key to be set")
	}

	store.DeleteIfEmpty("quiz-1")
	if mr.Exists("arena:session:quiz-1") {
		t.Fatalf("expected redis key to be removed")
	}
}

func TestSessionStoreDeleteRemovesKey(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewSessionStore(client, time.Minute)

	store.GetOrCreate("quiz-1", "m1")
	store.Delete("quiz-1")
	if _, ok := store.Get("quiz-1"); ok {
		t.Fatalf("expected session removed")
	}
	if mr.Exists("arena:session:quiz-1") {
		t.Fatalf("expected redis key to be removed")
	}
}
