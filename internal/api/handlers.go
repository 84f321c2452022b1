package api

import (
	"net/http"

	"qrwatcher/internal/domain"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type handler struct {
	ingest Ingestor
	logger *zap.Logger
}

type botData struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type registerRequest struct {
	Bot botData `json:"bot"`
}

type checkRegisterRequest struct {
	BotID string `json:"bot_id"`
}

type updateQRRequest struct {
	BotID  string `json:"bot_id"`
	QRData string `json:"qr_data"`
}

type updateAuthStateRequest struct {
	BotID string `json:"bot_id"`
	State string `json:"state"`
}

type customNotifyRequest struct {
	BotID      string `json:"bot_id"`
	SenderName string `json:"sender_name"`
	Message    string `json:"message"`
}

type statusResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func (h *handler) status(c echo.Context) error {
	return c.JSON(http.StatusOK, statusResponse{Status: "ok", Version: Version})
}

func (h *handler) register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c)
	}
	result, err := h.ingest.RegisterBot(c.Request().Context(), req.Bot.ID, req.Bot.Name, req.Bot.Description)
	return h.respond(c, "register", req.Bot.ID, result, err)
}

func (h *handler) checkRegister(c echo.Context) error {
	var req checkRegisterRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c)
	}
	result, err := h.ingest.CheckRegistered(c.Request().Context(), req.BotID)
	return h.respond(c, "check_register", req.BotID, result, err)
}

func (h *handler) updateQR(c echo.Context) error {
	var req updateQRRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c)
	}
	result, err := h.ingest.UpdateQR(c.Request().Context(), req.BotID, req.QRData)
	return h.respond(c, "update_qr", req.BotID, result, err)
}

func (h *handler) updateAuthState(c echo.Context) error {
	var req updateAuthStateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c)
	}
	result, err := h.ingest.SetAuthState(c.Request().Context(), req.BotID, req.State)
	return h.respond(c, "update_auth_state", req.BotID, result, err)
}

func (h *handler) customNotify(c echo.Context) error {
	var req customNotifyRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c)
	}
	result, err := h.ingest.CustomNotify(c.Request().Context(), req.BotID, req.SenderName, req.Message)
	return h.respond(c, "custom_notify", req.BotID, result, err)
}

func (h *handler) respond(c echo.Context, op, botID string, result domain.Result, err error) error {
	if err != nil {
		h.logger.Error("Failed to handle bot event",
			zap.String("op", op),
			zap.String("bot_id", botID),
			zap.Error(err),
		)
		return c.JSON(http.StatusInternalServerError, domain.Result{
			Success: false,
			Message: "Internal error",
			Data:    map[string]any{"bot_id": botID},
		})
	}
	return c.JSON(http.StatusOK, result)
}

func badRequest(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, domain.Result{Success: false, Message: "Invalid request body"})
}
