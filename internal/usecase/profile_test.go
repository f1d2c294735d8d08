package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/yumesaki/arcanet"
	"github.com/yumesaki/arcanet/internal/domain"
)

func TestGetProfileByRefIDUnknownCardReturnsStub(t *testing.T) {
	uc := NewProfileUsecase(newMemUserRepo(), newMemProfileRepo())
	title := &stubTitle{game: "jubeat", version: 5}

	node, err := uc.GetProfileByRefID(context.Background(), title, "R0001")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if node.Name != "root" || len(node.Children) != 0 {
		t.Fatalf("expected empty root stub, got %s with %d children", node.Name, len(node.Children))
	}
}

func TestNewProfileByRefIDCreatesAndIsIdempotent(t *testing.T) {
	users := newMemUserRepo()
	profiles := newMemProfileRepo()
	uc := NewProfileUsecase(users, profiles)
	title := &stubTitle{game: "jubeat", version: 5}

	first, err := uc.NewProfileByRefID(context.Background(), title, "R0001", "PLAYER", 1)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if first.GetStr("name", "") != "PLAYER" {
		t.Fatalf("expected name PLAYER, got %q", first.GetStr("name", ""))
	}
	if first.ExtID == 0 {
		t.Fatalf("expected extid to be assigned")
	}

	first.ReplaceInt("plays", 10)
	if err := profiles.Put(context.Background(), 1, first); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	second, err := uc.NewProfileByRefID(context.Background(), title, "R0001", "OTHER", 2)
	if err != nil {
		t.Fatalf("repeat create failed: %v", err)
	}
	if second.GetStr("name", "") != "PLAYER" || second.GetInt("plays", 0) != 10 {
		t.Fatalf("repeat create must return the stored profile untouched")
	}
}

func TestGetProfileInheritsFromPreviousVersion(t *testing.T) {
	users := newMemUserRepo()
	profiles := newMemProfileRepo()
	uc := NewProfileUsecase(users, profiles)

	v26 := &stubTitle{game: "jubeat", version: 26}
	v27 := &stubTitle{game: "jubeat", version: 27, predecessor: v26}

	if _, err := uc.NewProfileByRefID(context.Background(), v26, "R0001", "ALICE", 1); err != nil {
		t.Fatalf("seed create failed: %v", err)
	}
	old, _ := profiles.Get(context.Background(), 1, "jubeat", 26)
	old.ReplaceInt("score_cnt", 17)
	if err := profiles.Put(context.Background(), 1, old); err != nil {
		t.Fatalf("seed put failed: %v", err)
	}

	node, err := uc.GetProfileByRefID(context.Background(), v27, "R0001")
	if err != nil {
		t.Fatalf("inherit failed: %v", err)
	}
	if got := node.ChildStr("name"); got != "ALICE" {
		t.Fatalf("expected inherited name ALICE, got %q", got)
	}

	copied, err := profiles.Get(context.Background(), 1, "jubeat", 27)
	if err != nil {
		t.Fatalf("inherited profile was not written: %v", err)
	}
	if copied.GetInt("score_cnt", 0) != 17 {
		t.Fatalf("inherited profile lost state")
	}
	if copied.Version != 27 {
		t.Fatalf("inherited profile kept old version tag %d", copied.Version)
	}

	// the copy happens once
	puts := profiles.puts
	if _, err := uc.GetProfileByRefID(context.Background(), v27, "R0001"); err != nil {
		t.Fatalf("second get failed: %v", err)
	}
	if profiles.puts != puts {
		t.Fatalf("second get rewrote the profile")
	}
}

func TestGetProfileNoInheritanceWithoutPredecessor(t *testing.T) {
	users := newMemUserRepo()
	uc := NewProfileUsecase(users, newMemProfileRepo())
	title := &stubTitle{game: "danevo", version: 1}

	if _, err := users.Create(context.Background(), "R0002"); err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	_, err := uc.GetProfile(context.Background(), title, 1, "R0002")
	if !errors.Is(err, domain.ErrNoProfile) {
		t.Fatalf("expected ErrNoProfile, got %v", err)
	}
}

func TestPutProfileByRefIDMergesRequest(t *testing.T) {
	users := newMemUserRepo()
	profiles := newMemProfileRepo()
	uc := NewProfileUsecase(users, profiles)
	title := &stubTitle{game: "jubeat", version: 5}

	if _, err := uc.NewProfileByRefID(context.Background(), title, "R0001", "PLAYER", 1); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	request := arcanet.Void("gametop")
	request.AddChild(arcanet.String("name", "RENAMED"))
	saved, err := uc.PutProfileByRefID(context.Background(), title, "R0001", request)
	if err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if saved.GetStr("name", "") != "RENAMED" {
		t.Fatalf("unformat result was not persisted")
	}

	stored, _ := profiles.Get(context.Background(), 1, "jubeat", 5)
	if stored.GetStr("name", "") != "RENAMED" {
		t.Fatalf("stored profile does not reflect the request")
	}
}

func TestPutProfileByRefIDUnknownCard(t *testing.T) {
	uc := NewProfileUsecase(newMemUserRepo(), newMemProfileRepo())
	title := &stubTitle{game: "jubeat", version: 5}

	_, err := uc.PutProfileByRefID(context.Background(), title, "R9999", arcanet.Void("gametop"))
	if !errors.Is(err, domain.ErrNoProfile) {
		t.Fatalf("expected ErrNoProfile, got %v", err)
	}
}
