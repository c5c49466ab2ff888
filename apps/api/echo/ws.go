package echoapi

import (
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hallpass-app/hallpass/core"
	"github.com/hallpass-app/hallpass/core/messaging"
	"github.com/hallpass-app/hallpass/realtime"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type streamApi struct {
	svc    *messaging.Service
	conf   *core.Config
	logger core.Logger
}

// registerStreamAPI wires the WebSocket edge. Browsers cannot set an
// Authorization header on a WebSocket dial, so auth rides on a `token`
// query parameter.
func registerStreamAPI(g *echo.Group, deps ServerDeps) {
	api := streamApi{
		svc:    deps.MessagingSvc,
		conf:   deps.Conf,
		logger: deps.Logger,
	}

	wg := g.Group("/ws")
	wg.GET("/conversations/:id/messages", api.streamMessages)
	wg.GET("/users/me/conversations", api.streamConversations)
}

// streamMessages pushes full message-list snapshots for one conversation.
func (api *streamApi) streamMessages(ctx echo.Context) error {
	claims, err := parseToken(ctx.QueryParam("token"), api.conf)
	if err != nil {
		return err
	}

	conv, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if !conv.HasParticipant(claims.Subject) {
		return messaging.ErrNotParticipant
	}

	sub := api.svc.SubscribeMessages(conv.ID)
	return api.stream(ctx, sub)
}

// streamConversations pushes full conversation-list snapshots for the caller.
func (api *streamApi) streamConversations(ctx echo.Context) error {
	claims, err := parseToken(ctx.QueryParam("token"), api.conf)
	if err != nil {
		return err
	}

	sub := api.svc.SubscribeConversations(claims.Subject)
	return api.stream(ctx, sub)
}

// stream pumps subscription snapshots onto the socket until either side
// goes away. The subscription is always closed on teardown.
func (api *streamApi) stream(ctx echo.Context, sub *realtime.Subscription) error {
	conn, err := upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		sub.Close()
		return errors.Wrap(err, "upgrading to websocket")
	}
	defer func() {
		sub.Close()
		_ = conn.Close()
	}()

	// drain client frames to detect disconnects
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev, ok := <-sub.C:
			if !ok {
				return nil
			}
			if err := conn.WriteJSON(ev.Payload); err != nil {
				return nil // client gone
			}
		case <-done:
			return nil
		}
	}
}
