package messages

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	msgsvc "marketplace-backend/internal/application/messages"
	"marketplace-backend/internal/application/unread"
	"marketplace-backend/internal/middleware"
	"marketplace-backend/internal/pkg/contracts"
	"marketplace-backend/internal/pkg/response"
	"marketplace-backend/internal/platform/metrics"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	liveUserLocal = "live_user_id"
)

type Handlers struct {
	Service  *msgsvc.Service
	Registry *unread.Registry
	Metrics  *metrics.Metrics
}

type sendRequest struct {
	Message    string `json:"message"`
	BuyerName  string `json:"buyer_name"`
	BuyerEmail string `json:"buyer_email"`
}

// Send POST /api/v1/listings/:id/messages. The buyer email defaults to the
// session email; the seller is notified in the background.
func (h *Handlers) Send(c *fiber.Ctx) error {
	buyerID, ok := middleware.CurrentUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	listingID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid listing id")
	}
	if err := contracts.Validate(contracts.MessageSend, c.Body()); err != nil {
		return response.BadRequest(c, contracts.Message(err))
	}
	var req sendRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return response.BadRequest(c, contracts.ErrInvalidJSON.Error())
	}
	if req.BuyerEmail == "" {
		req.BuyerEmail = middleware.CurrentEmail(c)
	}

	msg, err := h.Service.Send(c.UserContext(), msgsvc.SendInput{
		ListingID:  listingID,
		BuyerID:    buyerID,
		BuyerEmail: req.BuyerEmail,
		BuyerName:  req.BuyerName,
		Message:    req.Message,
	})
	if err != nil {
		switch {
		case errors.Is(err, msgsvc.ErrFieldsRequired), errors.Is(err, msgsvc.ErrInvalidEmail):
			return response.BadRequest(c, err.Error())
		case errors.Is(err, msgsvc.ErrListingNotFound):
			return response.NotFound(c, err.Error())
		}
		middleware.Logger(c).Error().Err(err).Str("listing_id", listingID.String()).Msg("messages: send failed")
		return response.Error(c, "Failed to send message. Please try again.", fiber.StatusInternalServerError, nil)
	}
	return response.SuccessCreated(c, "Message sent successfully! The seller will be notified.", msg, nil)
}

// Inbox GET /api/v1/messages
func (h *Handlers) Inbox(c *fiber.Ctx) error {
	sellerID, ok := middleware.CurrentUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	msgs, err := h.Service.ListBySeller(c.UserContext(), sellerID)
	if err != nil {
		return response.Error(c, "Failed to fetch messages", fiber.StatusInternalServerError, nil)
	}
	return response.List(c, "Messages fetched successfully", msgs)
}

// MarkRead PATCH /api/v1/messages/:id/read
func (h *Handlers) MarkRead(c *fiber.Ctx) error {
	sellerID, ok := middleware.CurrentUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid message id")
	}
	msg, err := h.Service.MarkRead(c.UserContext(), id, sellerID)
	if err != nil {
		if errors.Is(err, msgsvc.ErrMessageNotFound) {
			return response.NotFound(c, err.Error())
		}
		return response.Error(c, "Failed to update message", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Message marked as read", msg, nil)
}

// UnreadCount GET /api/v1/messages/unread-count
func (h *Handlers) UnreadCount(c *fiber.Ctx) error {
	sellerID, ok := middleware.CurrentUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	n, err := h.Service.CountUnread(c.UserContext(), sellerID)
	if err != nil {
		return response.Error(c, "Failed to count messages", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Unread count fetched successfully", fiber.Map{"unread_count": n}, nil)
}

// UpgradeLive only lets signed-in websocket upgrades through to Live.
func (h *Handlers) UpgradeLive(c *fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	c.Locals(liveUserLocal, userID.String())
	return c.Next()
}

// Live GET /api/v1/messages/unread/live pushes {"unread_count": n} whenever
// the seller's unread count changes. The connection closes on sign out.
func (h *Handlers) Live() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, err := uuid.Parse(asString(conn.Locals(liveUserLocal)))
		if err != nil {
			conn.Close()
			return
		}

		// onChange runs under the tracker lock; only hand the value off here.
		updates := make(chan int64, 1)
		push := func(n int64) {
			select {
			case updates <- n:
			default:
				select {
				case <-updates:
				default:
				}
				updates <- n
			}
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		tracker, err := h.Registry.Open(ctx, userID, push)
		if err != nil {
			log.Warn().Err(err).Str("user_id", userID.String()).Msg("messages: live tracker failed")
			conn.Close()
			return
		}
		h.Metrics.LiveClientOpened()
		defer func() {
			h.Registry.Release(tracker)
			h.Metrics.LiveClientClosed()
			conn.Close()
		}()

		closed := make(chan struct{})
		go readLoop(conn, closed)

		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case n := <-updates:
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(fiber.Map{"unread_count": n}); err != nil {
					return
				}
			case <-ticker.C:
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-tracker.Done():
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "signed out"))
				return
			case <-closed:
				return
			}
		}
	})
}

// readLoop drains client frames so pongs and close frames are processed.
func readLoop(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Msg("messages: live connection closed")
			}
			return
		}
	}
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}
