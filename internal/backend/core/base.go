package core

import (
	"context"
	"fmt"

	"github.com/yumesaki/arcanet"
	"github.com/yumesaki/arcanet/internal/domain"
	"github.com/yumesaki/arcanet/internal/usecase"
	"github.com/yumesaki/arcanet/internal/utils"
)

// MachineRepository is the slice of cabinet storage the handlers need.
type MachineRepository interface {
	Get(ctx context.Context, pcbid string) (*domain.Machine, error)
	FromShopID(ctx context.Context, shopID int64) (string, error)
	Put(ctx context.Context, machine *domain.Machine) error
}

// Deps bundles the shared engines every title handler set works
// through.
type Deps struct {
	Profile      *usecase.ProfileUsecase
	Score        *usecase.ScoreUsecase
	Schedule     *usecase.ScheduleUsecase
	Lobby        *usecase.LobbyUsecase
	Stats        *usecase.StatsUsecase
	Rivals       *usecase.RivalUsecase
	Achievements *usecase.AchievementUsecase
	Music        usecase.MusicRepository
	Machines     MachineRepository
	Clock        utils.Clock
}

// Request is one dispatched call: the resolved module/method pair, the
// request body (the single top-level child), and the calling cabinet.
type Request struct {
	Machine arcanet.MachineIdentity
	Module  string
	Method  string
	Root    *arcanet.Node
	Body    *arcanet.Node
}

// HandlerFunc produces the reply subtree for one module/method pair.
// The returned node's name must match the request module.
type HandlerFunc func(ctx context.Context, req *Request) (*arcanet.Node, error)

// Title is one version of one game: a handler table plus the profile
// projection the shared engines call back into.
type Title interface {
	usecase.ProfileFormatter
	Handler(module, method string) (HandlerFunc, bool)
	UnhandledRequest(module, method string) *arcanet.Node
}

// Base carries the handler table and shared plumbing every title
// embeds. Titles register handlers at construction and reach the
// engines through Deps.
type Base struct {
	Deps

	GameConfig *arcanet.Mapping

	game     string
	version  int
	model    arcanet.Model
	handlers map[string]HandlerFunc
}

func NewBase(deps Deps, config *arcanet.Mapping, game string, version int, model arcanet.Model) *Base {
	if config == nil {
		config = arcanet.NewMapping()
	}
	return &Base{
		Deps:       deps,
		GameConfig: config,
		game:       game,
		version:    version,
		model:      model,
		handlers:   map[string]HandlerFunc{},
	}
}

func (b *Base) Game() string         { return b.game }
func (b *Base) Version() int         { return b.version }
func (b *Base) Model() arcanet.Model { return b.model }

// Register binds one module/method pair to a handler.
func (b *Base) Register(module, method string, fn HandlerFunc) {
	b.handlers[module+"."+method] = fn
}

func (b *Base) Handler(module, method string) (HandlerFunc, bool) {
	fn, ok := b.handlers[module+"."+method]
	return fn, ok
}

// UnhandledRequest is the default reply for a method the title never
// registered: an empty container named after the module.
func (b *Base) UnhandledRequest(module, method string) *arcanet.Node {
	return arcanet.Void(module)
}

// RequireRefID pulls the card token out of the conventional attribute
// or child locations.
func RequireRefID(body *arcanet.Node) (string, error) {
	if refid := body.Attribute("rid"); refid != "" {
		return refid, nil
	}
	if refid := body.ChildStr("rid"); refid != "" {
		return refid, nil
	}
	if refid := body.ChildStr("refid"); refid != "" {
		return refid, nil
	}
	return "", fmt.Errorf("missing refid: %w", arcanet.ErrMalformedNode)
}
