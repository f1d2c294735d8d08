package danevo

import (
	"context"
	"fmt"
	"time"

	"github.com/yumesaki/arcanet"
	"github.com/yumesaki/arcanet/internal/backend/core"
	"github.com/yumesaki/arcanet/internal/domain"
	"github.com/yumesaki/arcanet/internal/usecase"
	"github.com/yumesaki/arcanet/internal/utils"
)

type memUserRepo struct {
	byRefID map[string]domain.UserID
	next    domain.UserID
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byRefID: map[string]domain.UserID{}, next: 1}
}

func (m *memUserRepo) FromRefID(ctx context.Context, game string, version int, refid string) (domain.UserID, error) {
	if user, ok := m.byRefID[refid]; ok {
		return user, nil
	}
	return domain.UserNone, domain.NotFoundError{Resource: "user"}
}

func (m *memUserRepo) FromExtID(ctx context.Context, game string, version int, extid int64) (domain.UserID, error) {
	return domain.UserNone, domain.NotFoundError{Resource: "user"}
}

func (m *memUserRepo) Create(ctx context.Context, refid string) (domain.UserID, error) {
	user := m.next
	m.next++
	m.byRefID[refid] = user
	return user, nil
}

func (m *memUserRepo) EnsureExtID(ctx context.Context, game string, user domain.UserID) (int64, error) {
	return int64(10000000 + user), nil
}

type memProfileRepo struct {
	profiles map[string]*arcanet.Profile
}

func newMemProfileRepo() *memProfileRepo {
	return &memProfileRepo{profiles: map[string]*arcanet.Profile{}}
}

func profileKey(user domain.UserID, game string, version int) string {
	return fmt.Sprintf("%d:%s:%d", user, game, version)
}

func (m *memProfileRepo) Get(ctx context.Context, user domain.UserID, game string, version int) (*arcanet.Profile, error) {
	if p, ok := m.profiles[profileKey(user, game, version)]; ok {
		return p.CloneProfile(), nil
	}
	return nil, domain.NotFoundError{Resource: "profile"}
}

func (m *memProfileRepo) Put(ctx context.Context, user domain.UserID, profile *arcanet.Profile) error {
	m.profiles[profileKey(user, profile.Game, profile.Version)] = profile.CloneProfile()
	return nil
}

type testEnv struct {
	deps     core.Deps
	users    *memUserRepo
	profiles *memProfileRepo
}

func newTestEnv(now time.Time) *testEnv {
	clock := utils.Clock{NowFunc: func() time.Time { return now }}
	env := &testEnv{
		users:    newMemUserRepo(),
		profiles: newMemProfileRepo(),
	}
	env.deps = core.Deps{
		Profile: usecase.NewProfileUsecase(env.users, env.profiles),
		Clock:   clock,
	}
	return env
}

func invoke(ctx context.Context, title core.Title, module, method string, body *arcanet.Node) (*arcanet.Node, error) {
	fn, ok := title.Handler(module, method)
	if !ok {
		return title.UnhandledRequest(module, method), nil
	}
	return fn(ctx, &core.Request{
		Machine: arcanet.MachineIdentity{PCBID: "012ABC345DE6789FG"},
		Module:  module,
		Method:  method,
		Root:    body,
		Body:    body,
	})
}
