package rest

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/yumesaki/arcanet"
	"github.com/yumesaki/arcanet/internal/backend/core"
	"github.com/yumesaki/arcanet/internal/domain"
	"github.com/yumesaki/arcanet/internal/present/rest/presenter"
	"github.com/yumesaki/arcanet/internal/service"
)

// ServiceRequest is the JSON envelope a cabinet posts: its declared
// model string, its PCBID and the decoded request tree.
type ServiceRequest struct {
	Model string        `json:"model"`
	PCBID string        `json:"pcbid"`
	Root  *arcanet.Node `json:"root"`
}

// ServiceResponse carries the in-band status and, on success, the
// reply tree.
type ServiceResponse struct {
	Status int           `json:"status"`
	Root   *arcanet.Node `json:"root,omitempty"`
}

type Handler struct {
	config     domain.Config
	dispatcher *core.Dispatcher
	machines   *service.MachineService
	events     *service.EventService
}

func NewHandler(
	config domain.Config,
	dispatcher *core.Dispatcher,
	machines *service.MachineService,
	events *service.EventService,
) *Handler {
	return &Handler{
		config:     config,
		dispatcher: dispatcher,
		machines:   machines,
		events:     events,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/service", h.handleService)
	e.GET("/realtime", h.handleRealtime)
	e.GET("/machines/:pcbid", h.handleMachine)
	e.GET("/health", h.handleHealth)
}

func (h *Handler) handleService(c echo.Context) error {
	ctx := c.Request().Context()

	var req ServiceRequest
	err := c.Bind(&req)
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	model, err := arcanet.ParseModel(req.Model)
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	// requests that came through the machine middleware are already
	// resolved
	machine, ok := ctx.Value(domain.MachineCtxKey).(*domain.Machine)
	if !ok {
		machine, err = h.machines.Identify(ctx, req.PCBID)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidArgument) {
				return presenter.BadRequest(c, err)
			}
			return presenter.InternalError(c, err)
		}
	}

	identity := arcanet.MachineIdentity{PCBID: machine.PCBID, Model: model}
	reply, status, err := h.dispatcher.Dispatch(ctx, identity, req.Root)
	if err != nil {
		slog.InfoContext(ctx, "request failed",
			slog.String("model", req.Model),
			slog.String("pcbid", machine.PCBID),
			slog.Int("status", status),
			slog.String("error", err.Error()))
		return presenter.OK(c, ServiceResponse{Status: status})
	}

	if h.events != nil && len(req.Root.Children) == 1 {
		event := arcanet.Event{
			Game:      model.GameCode,
			Version:   model.Version,
			Module:    req.Root.Children[0].Name,
			Method:    req.Root.Children[0].Attribute("method"),
			PCBID:     machine.PCBID,
			Timestamp: time.Now().UTC(),
		}
		if err := h.events.Publish(ctx, event); err != nil {
			slog.ErrorContext(ctx, "event publish failed",
				slog.String("error", err.Error()),
				slog.String("module", "rest"))
		}
	}

	return presenter.OK(c, ServiceResponse{Status: status, Root: reply})
}

type machineResponse struct {
	PCBID  string `json:"pcbid"`
	Name   string `json:"name"`
	Region int    `json:"region"`
	ShopID int64  `json:"shopId"`
}

func (h *Handler) handleMachine(c echo.Context) error {
	ctx := c.Request().Context()

	machine, err := h.machines.Get(ctx, c.Param("pcbid"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return presenter.NotFound(c, "machine not found")
		}
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, machineResponse{
		PCBID:  machine.PCBID,
		Name:   machine.Name,
		Region: machine.Region,
		ShopID: machine.ShopID,
	})
}

func (h *Handler) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type realtimeRequest struct {
	Type  string   `json:"type"`
	Games []string `json:"games"`
}

func (h *Handler) handleRealtime(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error(
			"Failed to upgrade WebSocket",
			slog.String("error", err.Error()),
			slog.String("module", "socket"),
		)
		return err
	}
	defer func() {
		ws.Close()
	}()

	ctx := c.Request().Context()

	input := make(chan []string)
	defer close(input)
	output := make(chan arcanet.Event)
	defer close(output)

	go h.events.Realtime(ctx, input, output)

	quit := make(chan struct{})

	go func() {
		for {
			var req realtimeRequest
			err := ws.ReadJSON(&req)
			if err != nil {

				wsErr, ok := err.(*websocket.CloseError)
				if ok {
					if !(wsErr.Code == websocket.CloseNormalClosure || wsErr.Code == websocket.CloseGoingAway) {
						slog.DebugContext(
							ctx, "WebSocket closed",
							slog.String("error", wsErr.Error()),
							slog.String("module", "socket"),
						)
					}
				} else {
					slog.ErrorContext(
						ctx, "Error reading message",
						slog.String("error", err.Error()),
						slog.String("module", "socket"),
					)
				}

				quit <- struct{}{}
				break
			}

			switch req.Type {
			case "listen":
				input <- req.Games
				slog.DebugContext(
					ctx, fmt.Sprintf("Socket subscribe: %s", req.Games),
					slog.String("module", "socket"),
				)
			case "h": // heartbeat
				// do nothing
			default:
				slog.InfoContext(
					ctx, "Unknown request type",
					slog.String("type", req.Type),
					slog.String("module", "socket"),
				)
			}
		}
	}()

	for {
		select {
		case <-quit:
			return nil
		case event := <-output:
			err := ws.WriteJSON(event)
			if err != nil {
				slog.ErrorContext(
					ctx, "Error writing message",
					slog.String("error", err.Error()),
					slog.String("module", "socket"),
				)
				return nil
			}
		}
	}
}
