package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/basecard-xyz/basecard"
	"github.com/basecard-xyz/basecard/internal/domain"
	"github.com/basecard-xyz/basecard/internal/present/rest/middleware"
	"github.com/basecard-xyz/basecard/internal/present/rest/presenter"
)

const maxProfileImageSize = 5 << 20

type Minter interface {
	Execute(ctx context.Context, draft domain.CardDraft) domain.MintFlowResult
}

type Cards interface {
	Get(ctx context.Context, address string) (domain.CardRecord, error)
	Update(ctx context.Context, address string, update domain.CardUpdate) (domain.CardRecord, error)
}

type Signals interface {
	Realtime(ctx context.Context, channels []string, output chan<- basecard.Event) error
}

type Handler struct {
	config domain.Config
	mint   Minter
	cards  Cards
	signal Signals
}

func NewHandler(
	config domain.Config,
	mint Minter,
	cards Cards,
	signal Signals,
) *Handler {
	return &Handler{
		config: config,
		mint:   mint,
		cards:  cards,
		signal: signal,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/.well-known/basecard", h.handleWellKnown)
	e.GET("/healthz", h.handleHealth)
	e.POST("/api/mint", h.handleMint, middleware.RequireIdentity)
	e.GET("/api/card/:address", h.handleGetCard)
	e.PUT("/api/card/:address", h.handleUpdateCard, middleware.RequireIdentity)
	e.GET("/api/mint/events", h.handleMintEvents)
}

func (h *Handler) handleWellKnown(c echo.Context) error {
	wellknown := basecard.WellKnown{
		Version:         "1.0",
		ChainID:         h.config.TargetChainID,
		ChainName:       domain.ChainName(h.config.TargetChainID),
		ContractAddress: h.config.ContractAddress,
		Gateway:         h.config.GatewayURL,
		Endpoints: map[string]string{
			"xyz.basecard.mint":        "/api/mint",
			"xyz.basecard.card":        "/api/card/{address}",
			"xyz.basecard.mint.events": "/api/mint/events?address={address}",
		},
	}
	return presenter.OK(c, wellknown)
}

func (h *Handler) handleHealth(c echo.Context) error {
	return presenter.OK(c, echo.Map{"status": "ok"})
}

func (h *Handler) handleMint(c echo.Context) error {
	ctx := c.Request().Context()
	requester := middleware.RequesterAddress(ctx)

	draft, err := parseDraft(c)
	if err != nil {
		return presenter.Error(c, err)
	}

	if draft.Owner == "" {
		draft.Owner = requester
	}
	if !strings.EqualFold(draft.Owner, requester) {
		return presenter.Forbidden(c, "owner must match the signing wallet")
	}
	draft.Owner = requester

	result := h.mint.Execute(ctx, draft)
	for _, w := range result.Warnings {
		slog.WarnContext(ctx, "Mint cleanup incomplete",
			slog.String("operation", result.OperationID),
			slog.String("task", w.Task),
			slog.String("error", w.Error()),
			slog.String("module", "rest"),
		)
	}
	return presenter.Mint(c, result)
}

func parseDraft(c echo.Context) (domain.CardDraft, error) {
	draft := domain.CardDraft{
		Owner:          c.FormValue("owner"),
		Nickname:       c.FormValue("nickname"),
		Role:           c.FormValue("role"),
		Bio:            c.FormValue("bio"),
		Basename:       c.FormValue("basename"),
		ProfilePreview: c.FormValue("profilePreview"),
	}

	if v := c.FormValue("useBasename"); v != "" {
		use, err := strconv.ParseBool(v)
		if err != nil {
			return draft, domain.InputError{Field: "useBasename", Reason: "must be a boolean"}
		}
		draft.UseBasename = use
	}

	if err := decodeField(c, "socials", &draft.Socials); err != nil {
		return draft, err
	}
	if err := decodeField(c, "skills", &draft.Skills); err != nil {
		return draft, err
	}
	if err := decodeField(c, "websites", &draft.Websites); err != nil {
		return draft, err
	}

	file, err := c.FormFile("profileImage")
	if err == nil {
		if file.Size > maxProfileImageSize {
			return draft, domain.InputError{Field: "profileImage", Reason: "image must be 5MB or smaller"}
		}
		src, err := file.Open()
		if err != nil {
			return draft, domain.InputError{Field: "profileImage", Reason: "unreadable upload"}
		}
		defer src.Close()
		data, err := io.ReadAll(io.LimitReader(src, maxProfileImageSize+1))
		if err != nil {
			return draft, domain.InputError{Field: "profileImage", Reason: "unreadable upload"}
		}
		if len(data) > maxProfileImageSize {
			return draft, domain.InputError{Field: "profileImage", Reason: "image must be 5MB or smaller"}
		}
		draft.ProfileImage = &domain.ProfileImage{
			Data:     data,
			MimeType: file.Header.Get("Content-Type"),
		}
	}

	return draft, nil
}

func decodeField(c echo.Context, name string, out any) error {
	raw := c.FormValue(name)
	if raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return domain.InputError{Field: name, Reason: "must be valid JSON"}
	}
	return nil
}

func (h *Handler) handleGetCard(c echo.Context) error {
	ctx := c.Request().Context()

	card, err := h.cards.Get(ctx, c.Param("address"))
	if err != nil {
		return presenter.Error(c, err)
	}

	response := cardResponse{CardRecord: card}
	if cid, path, err := basecard.ParseIPFSURI(card.ImageURI); err == nil {
		response.ImageURL = basecard.GatewayURL(h.config.GatewayURL, cid)
		if path != "" {
			response.ImageURL += "/" + path
		}
	}
	return presenter.OK(c, response)
}

type cardResponse struct {
	domain.CardRecord
	ImageURL string `json:"imageUrl,omitempty"`
}

func (h *Handler) handleUpdateCard(c echo.Context) error {
	ctx := c.Request().Context()
	address := c.Param("address")

	if !strings.EqualFold(address, middleware.RequesterAddress(ctx)) {
		return presenter.Forbidden(c, "only the card owner can update it")
	}

	var update domain.CardUpdate
	err := c.Bind(&update)
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	card, err := h.cards.Update(ctx, address, update)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, card)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Request struct {
	Type string `json:"type"`
}

func (h *Handler) handleMintEvents(c echo.Context) error {
	if h.signal == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "realtime events are not enabled"})
	}

	var channels []string
	for _, address := range strings.Split(c.QueryParam("address"), ",") {
		if !basecard.IsAddress(address) {
			continue
		}
		channels = append(channels, basecard.MintChannel(address))
	}
	if len(channels) == 0 {
		return presenter.BadRequestMessage(c, "address parameter is required")
	}

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

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	output := make(chan basecard.Event)

	go func() {
		err := h.signal.Realtime(ctx, channels, output)
		if err != nil && ctx.Err() == nil {
			slog.ErrorContext(
				ctx, "Realtime subscription ended",
				slog.String("error", err.Error()),
				slog.String("module", "socket"),
			)
		}
		cancel()
	}()

	slog.DebugContext(
		ctx, fmt.Sprintf("Socket subscribe: %s", channels),
		slog.String("module", "socket"),
	)

	go func() {
		defer cancel()
		for {
			var req Request
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
				} else if ctx.Err() == nil {
					slog.ErrorContext(
						ctx, "Error reading message",
						slog.String("error", err.Error()),
						slog.String("module", "socket"),
					)
				}
				return
			}

			switch req.Type {
			case "h": // heartbeat
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
		case <-ctx.Done():
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
