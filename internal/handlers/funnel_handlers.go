package handlers

import (
	"errors"
	"net/http"

	"github.com/garagehub/funnel-api/internal/catalog"
	"github.com/garagehub/funnel-api/internal/models"
	"github.com/garagehub/funnel-api/internal/services"
	"github.com/garagehub/funnel-api/internal/sessionstore"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// FunnelHandlers exposes the selection wizard, the session hand-off records
// and the final submission
type FunnelHandlers struct {
	logger  *zap.Logger
	funnel  *services.FunnelService
	otp     *services.OTPService
	submit  *services.SubmitService
	store   *sessionstore.Store
	catalog *catalog.Client
}

// NewFunnelHandlers creates the funnel handler set
func NewFunnelHandlers(
	logger *zap.Logger,
	funnel *services.FunnelService,
	otp *services.OTPService,
	submit *services.SubmitService,
	store *sessionstore.Store,
	catalogClient *catalog.Client,
) *FunnelHandlers {
	return &FunnelHandlers{
		logger:  logger,
		funnel:  funnel,
		otp:     otp,
		submit:  submit,
		store:   store,
		catalog: catalogClient,
	}
}

// CreateSession godoc
// @Summary Create a funnel session
// @Description Starts a fresh vehicle-selection session in the form view
// @Tags funnel
// @Produce json
// @Success 201 {object} models.FunnelSession
// @Failure 500 {object} ErrorResponse
// @Router /funnel [post]
func (h *FunnelHandlers) CreateSession(c *gin.Context) {
	session, err := h.funnel.CreateSession(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to create funnel session", zap.Error(err))
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

// GetState godoc
// @Summary Get funnel state
// @Description Returns the current view, selections, filtered options and OTP status
// @Tags funnel
// @Produce json
// @Param sid path string true "Session ID"
// @Success 200 {object} models.FunnelStateResponse
// @Failure 404 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /funnel/{sid} [get]
func (h *FunnelHandlers) GetState(c *gin.Context) {
	sid := c.Param("sid")

	otpStatus, err := h.otp.Status(c.Request.Context(), sid)
	if err != nil {
		respondError(c, err)
		return
	}

	state, err := h.funnel.State(c.Request.Context(), sid, otpStatus)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// OpenPicker godoc
// @Summary Open the vehicle picker
// @Description Moves from the form view to the brands view
// @Tags funnel
// @Produce json
// @Param sid path string true "Session ID"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /funnel/{sid}/picker [post]
func (h *FunnelHandlers) OpenPicker(c *gin.Context) {
	h.applyTransition(c, func(sid string) error {
		return h.funnel.OpenPicker(c.Request.Context(), sid)
	})
}

// SelectBrand godoc
// @Summary Select a car brand
// @Description Selects a brand, resets the downstream selection and advances to the models view
// @Tags funnel
// @Accept json
// @Produce json
// @Param sid path string true "Session ID"
// @Param data body models.SelectBrandRequest true "Brand to select"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /funnel/{sid}/brand [post]
func (h *FunnelHandlers) SelectBrand(c *gin.Context) {
	var req models.SelectBrandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body: " + err.Error()})
		return
	}
	h.applyTransition(c, func(sid string) error {
		return h.funnel.SelectBrand(c.Request.Context(), sid, req.Brand)
	})
}

// SelectModel godoc
// @Summary Select a car model
// @Description Selects a model, clears fuel and year and advances to the fuels view
// @Tags funnel
// @Accept json
// @Produce json
// @Param sid path string true "Session ID"
// @Param data body models.SelectModelRequest true "Model to select"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /funnel/{sid}/model [post]
func (h *FunnelHandlers) SelectModel(c *gin.Context) {
	var req models.SelectModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body: " + err.Error()})
		return
	}
	h.applyTransition(c, func(sid string) error {
		return h.funnel.SelectModel(c.Request.Context(), sid, req.Model)
	})
}

// SelectFuel godoc
// @Summary Select a fuel type
// @Description Selects a fuel type, clears the year and advances to the years view
// @Tags funnel
// @Accept json
// @Produce json
// @Param sid path string true "Session ID"
// @Param data body models.SelectFuelRequest true "Fuel type to select"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /funnel/{sid}/fuel [post]
func (h *FunnelHandlers) SelectFuel(c *gin.Context) {
	var req models.SelectFuelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body: " + err.Error()})
		return
	}
	h.applyTransition(c, func(sid string) error {
		return h.funnel.SelectFuel(c.Request.Context(), sid, req.Fuel)
	})
}

// SelectYear godoc
// @Summary Select a manufacture year
// @Description Selects a manufacture year and returns to the form view
// @Tags funnel
// @Accept json
// @Produce json
// @Param sid path string true "Session ID"
// @Param data body models.SelectYearRequest true "Year to select"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /funnel/{sid}/year [post]
func (h *FunnelHandlers) SelectYear(c *gin.Context) {
	var req models.SelectYearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body: " + err.Error()})
		return
	}
	h.applyTransition(c, func(sid string) error {
		return h.funnel.SelectYear(c.Request.Context(), sid, req.Year)
	})
}

// Back godoc
// @Summary Navigate one view back
// @Description Steps back one view; selections made so far are preserved
// @Tags funnel
// @Produce json
// @Param sid path string true "Session ID"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /funnel/{sid}/back [post]
func (h *FunnelHandlers) Back(c *gin.Context) {
	h.applyTransition(c, func(sid string) error {
		return h.funnel.Back(c.Request.Context(), sid)
	})
}

// SetSearch godoc
// @Summary Update a view's search filter
// @Description Sets the free-text filter for the brands or models view
// @Tags funnel
// @Accept json
// @Produce json
// @Param sid path string true "Session ID"
// @Param data body models.SearchRequest true "View and query"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /funnel/{sid}/search [put]
func (h *FunnelHandlers) SetSearch(c *gin.Context) {
	var req models.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body: " + err.Error()})
		return
	}
	h.applyTransition(c, func(sid string) error {
		return h.funnel.SetSearch(c.Request.Context(), sid, req.View, req.Query)
	})
}

// Submit godoc
// @Summary Submit the completed funnel
// @Description Writes the hand-off record and delivers the booking request; requires a complete selection and a verified phone
// @Tags funnel
// @Produce json
// @Param sid path string true "Session ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /funnel/{sid}/submit [post]
func (h *FunnelHandlers) Submit(c *gin.Context) {
	sid := c.Param("sid")

	session, err := h.funnel.Session(c.Request.Context(), sid)
	if err != nil {
		respondError(c, err)
		return
	}

	phone, err := h.otp.Phone(c.Request.Context(), sid)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.submit.Submit(c.Request.Context(), sid, session.State.Selection, phone, phone != ""); err != nil {
		if errors.Is(err, models.ErrSubmissionNotReady) {
			respondError(c, err)
			return
		}
		h.logger.Error("booking submission failed",
			zap.String("session_id", sid),
			zap.Error(err))
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "Failed to submit. Please try again."})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Request submitted successfully"})
}

// GetSelection godoc
// @Summary Read the hand-off selection record
// @Description Reads the hand-off record written at submission time
// @Tags session
// @Produce json
// @Param sid path string true "Session ID"
// @Success 200 {object} models.CarSelectionRecord
// @Failure 404 {object} ErrorResponse
// @Router /funnel/{sid}/selection [get]
func (h *FunnelHandlers) GetSelection(c *gin.Context) {
	record, err := h.store.GetCarSelection(c.Request.Context(), c.Param("sid"))
	if err != nil {
		if errors.Is(err, sessionstore.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "No selection stored for this session"})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// PutCart godoc
// @Summary Write the session cart record
// @Description Stores the cart record for downstream checkout pages
// @Tags session
// @Accept json
// @Produce json
// @Param sid path string true "Session ID"
// @Param data body models.CartRecord true "Cart contents"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Router /funnel/{sid}/cart [put]
func (h *FunnelHandlers) PutCart(c *gin.Context) {
	var record models.CartRecord
	if err := c.ShouldBindJSON(&record); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body: " + err.Error()})
		return
	}
	if err := h.store.PutCart(c.Request.Context(), c.Param("sid"), record); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Cart saved"})
}

// GetCart godoc
// @Summary Read the session cart record
// @Description Reads the cart record for this session
// @Tags session
// @Produce json
// @Param sid path string true "Session ID"
// @Success 200 {object} models.CartRecord
// @Failure 404 {object} ErrorResponse
// @Router /funnel/{sid}/cart [get]
func (h *FunnelHandlers) GetCart(c *gin.Context) {
	record, err := h.store.GetCart(c.Request.Context(), c.Param("sid"))
	if err != nil {
		if errors.Is(err, sessionstore.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "No cart stored for this session"})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// RefreshCatalog godoc
// @Summary Refresh the catalog cache
// @Description Busts the cached catalog so the next load re-fetches it; backs the retry affordance
// @Tags catalog
// @Produce json
// @Success 200 {object} SuccessResponse
// @Failure 500 {object} ErrorResponse
// @Router /catalog/refresh [post]
func (h *FunnelHandlers) RefreshCatalog(c *gin.Context) {
	if err := h.catalog.Refresh(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Catalog cache refreshed"})
}

func (h *FunnelHandlers) applyTransition(c *gin.Context, op func(sid string) error) {
	if err := op(c.Param("sid")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "OK"})
}
