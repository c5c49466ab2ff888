package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hallpass-app/hallpass/core"
	"github.com/hallpass-app/hallpass/core/messaging"
	"github.com/hallpass-app/hallpass/core/user"
)

type messagingApi struct {
	svc      *messaging.Service
	userSvc  *user.Service
	conf     *core.Config
	validate *validator.Validate
}

func registerMessagingAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := messagingApi{
		svc:      deps.MessagingSvc,
		userSvc:  deps.UserSvc,
		conf:     deps.Conf,
		validate: deps.Validate,
	}

	cg := g.Group("/conversations", jwt)
	cg.POST("", api.getOrCreate)
	cg.GET("", api.list)
	cg.GET("/unread-count", api.totalUnread)
	cg.GET("/:id", api.retrieve)
	cg.GET("/:id/messages", api.messages)
	cg.POST("/:id/messages", api.send)
	cg.POST("/:id/read", api.markRead)
}

// Handlers

func (api *messagingApi) getOrCreate(ctx echo.Context) error {
	var data messaging.NewConversation
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewConversation")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if data.ParticipantIDs[0] != claims.Subject && data.ParticipantIDs[1] != claims.Subject {
		return messaging.ErrNotParticipant
	}

	conv, err := api.svc.GetOrCreate(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, conv)
}

func (api *messagingApi) list(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	convs, err := api.svc.ListForUser(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "listing conversations")
	}
	return ctx.JSON(http.StatusOK, convs)
}

func (api *messagingApi) retrieve(ctx echo.Context) error {
	conv, _, err := api.getParticipantConversation(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, conv)
}

func (api *messagingApi) messages(ctx echo.Context) error {
	conv, _, err := api.getParticipantConversation(ctx)
	if err != nil {
		return err
	}

	msgs, err := api.svc.Messages(ctx.Request().Context(), conv.ID)
	if err != nil {
		return errors.Wrap(err, "listing messages")
	}
	if ctx.QueryParam("grouped") == "true" {
		return ctx.JSON(http.StatusOK, messaging.GroupByDay(msgs))
	}
	return ctx.JSON(http.StatusOK, msgs)
}

func (api *messagingApi) send(ctx echo.Context) error {
	var data SendMessageRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SendMessageRequest")
	}

	conv, claims, err := api.getParticipantConversation(ctx)
	if err != nil {
		return err
	}

	msg, err := api.svc.Send(ctx.Request().Context(), conv.ID, claims.Subject, claims.Name, data.Content)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, msg)
}

func (api *messagingApi) markRead(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	if err = api.svc.MarkRead(ctx.Request().Context(), ctx.Param("id"), claims.Subject); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"success": true})
}

func (api *messagingApi) totalUnread(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	total, err := api.svc.TotalUnread(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "summing unread counters")
	}
	return ctx.JSON(http.StatusOK, UnreadCountResponse{Total: total})
}

// getParticipantConversation loads the conversation and refuses callers
// that are not part of it.
func (api *messagingApi) getParticipantConversation(ctx echo.Context) (messaging.Conversation, Claims, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return messaging.Conversation{}, Claims{}, errors.Wrap(err, "getting context claims")
	}

	conv, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return messaging.Conversation{}, Claims{}, err
	}
	if !conv.HasParticipant(claims.Subject) {
		return messaging.Conversation{}, Claims{}, messaging.ErrNotParticipant
	}
	return conv, claims, nil
}

type (
	SendMessageRequest struct {
		Content string `json:"content"`
	}

	UnreadCountResponse struct {
		Total int `json:"total"`
	}
)
