package handlers

import (
	"errors"
	"net/http"

	"github.com/garagehub/funnel-api/internal/models"
	"github.com/garagehub/funnel-api/internal/otp"
	"github.com/garagehub/funnel-api/internal/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// OTPHandlers exposes the phone verification flow
type OTPHandlers struct {
	logger *zap.Logger
	otp    *services.OTPService
}

// NewOTPHandlers creates the OTP handler set
func NewOTPHandlers(logger *zap.Logger, otpService *services.OTPService) *OTPHandlers {
	return &OTPHandlers{
		logger: logger,
		otp:    otpService,
	}
}

// SendOTP godoc
// @Summary Request a verification code
// @Description Sends a one-time code to the given 10-digit phone number and starts the resend cooldown
// @Tags otp
// @Accept json
// @Produce json
// @Param sid path string true "Session ID"
// @Param data body models.OTPSendRequest true "Phone number"
// @Success 200 {object} models.OTPStatus
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /funnel/{sid}/otp/send [post]
func (h *OTPHandlers) SendOTP(c *gin.Context) {
	sid := c.Param("sid")

	var req models.OTPSendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body: " + err.Error()})
		return
	}

	ctx := c.Request.Context()
	if req.RecaptchaToken != "" {
		ctx = otp.WithRecaptchaToken(ctx, req.RecaptchaToken)
	}

	if err := h.otp.RequestCode(ctx, sid, req.Phone); err != nil {
		h.respondOTPError(c, err, false)
		return
	}

	h.respondStatus(c, sid)
}

// VerifyOTP godoc
// @Summary Verify a code
// @Description Verifies the 6-digit code; idempotent after success
// @Tags otp
// @Accept json
// @Produce json
// @Param sid path string true "Session ID"
// @Param data body models.OTPVerifyRequest true "Verification code"
// @Success 200 {object} models.OTPStatus
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /funnel/{sid}/otp/verify [post]
func (h *OTPHandlers) VerifyOTP(c *gin.Context) {
	sid := c.Param("sid")

	var req models.OTPVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body: " + err.Error()})
		return
	}

	if err := h.otp.SubmitCode(c.Request.Context(), sid, req.Code); err != nil {
		h.respondOTPError(c, err, true)
		return
	}

	h.respondStatus(c, sid)
}

// GetOTPStatus godoc
// @Summary Get verification status
// @Description Returns sent/verified flags, the last error and the remaining resend cooldown
// @Tags otp
// @Produce json
// @Param sid path string true "Session ID"
// @Success 200 {object} models.OTPStatus
// @Failure 500 {object} ErrorResponse
// @Router /funnel/{sid}/otp [get]
func (h *OTPHandlers) GetOTPStatus(c *gin.Context) {
	h.respondStatus(c, c.Param("sid"))
}

func (h *OTPHandlers) respondStatus(c *gin.Context, sid string) {
	status, err := h.otp.Status(c.Request.Context(), sid)
	if err != nil {
		h.logger.Error("failed to load otp status",
			zap.String("session_id", sid),
			zap.Error(err))
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// respondOTPError distinguishes local gating errors from provider failures;
// the latter get a categorized user-facing message and a 502
func (h *OTPHandlers) respondOTPError(c *gin.Context, err error, verify bool) {
	switch {
	case errors.Is(err, models.ErrInvalidPhone),
		errors.Is(err, models.ErrInvalidCode),
		errors.Is(err, models.ErrCooldownActive),
		errors.Is(err, models.ErrSendInFlight),
		errors.Is(err, models.ErrVerifyInFlight),
		errors.Is(err, models.ErrNoOTPSession):
		respondError(c, err)
	default:
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: otp.UserMessage(err, verify)})
	}
}
