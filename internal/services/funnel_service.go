package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/garagehub/funnel-api/internal/catalog"
	"github.com/garagehub/funnel-api/internal/config"
	"github.com/garagehub/funnel-api/internal/models"
	"github.com/garagehub/funnel-api/internal/observability"
	"github.com/garagehub/funnel-api/internal/utils"
	"github.com/garagehub/funnel-api/internal/wizard"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// FunnelService owns the wizard session: it loads the state machine from
// Redis, validates selections against the fetched catalog, applies the
// transition and persists the result.
type FunnelService struct {
	catalog *catalog.Client
	logger  *zap.Logger
}

// NewFunnelService creates a funnel service
func NewFunnelService(catalogClient *catalog.Client, logger *zap.Logger) *FunnelService {
	return &FunnelService{
		catalog: catalogClient,
		logger:  logger,
	}
}

func funnelSessionKey(sid string) string { return "funnel_session:" + sid }

// CreateSession starts a fresh funnel session in the initial form view
func (s *FunnelService) CreateSession(ctx context.Context) (*models.FunnelSession, error) {
	now := time.Now()
	session := &models.FunnelSession{
		ID:        utils.GenerateUUID(),
		State:     models.NewFunnelState(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.saveSession(ctx, session); err != nil {
		return nil, err
	}
	s.logger.Info("funnel session created", zap.String("session_id", session.ID))
	return session, nil
}

// OpenPicker moves the session from the form into the brand list
func (s *FunnelService) OpenPicker(ctx context.Context, sid string) error {
	return s.apply(ctx, sid, func(m wizard.Machine, _ *models.FunnelSession) error {
		return m.OpenPicker()
	})
}

// SelectBrand validates the brand against the catalog and applies the
// selection
func (s *FunnelService) SelectBrand(ctx context.Context, sid, brandName string) error {
	brands, err := s.catalog.Brands(ctx)
	if err != nil {
		return err
	}
	brand := findBrand(brands, brandName)
	if brand == nil {
		return models.ErrNotInCatalog
	}
	return s.apply(ctx, sid, func(m wizard.Machine, _ *models.FunnelSession) error {
		return m.SelectBrand(brand.Brand)
	})
}

// SelectModel validates the model against the selected brand and applies
// the selection
func (s *FunnelService) SelectModel(ctx context.Context, sid, modelName string) error {
	brands, err := s.catalog.Brands(ctx)
	if err != nil {
		return err
	}
	return s.apply(ctx, sid, func(m wizard.Machine, session *models.FunnelSession) error {
		brand := findBrand(brands, session.State.Selection.Brand)
		if brand == nil {
			return models.ErrNotInCatalog
		}
		model := findModel(brand.Models, modelName)
		if model == nil {
			return models.ErrNotInCatalog
		}
		return m.SelectModel(model.Name, model.ImageURL)
	})
}

// SelectFuel validates the fuel type against the selected model and applies
// the selection
func (s *FunnelService) SelectFuel(ctx context.Context, sid, fuel string) error {
	brands, err := s.catalog.Brands(ctx)
	if err != nil {
		return err
	}
	return s.apply(ctx, sid, func(m wizard.Machine, session *models.FunnelSession) error {
		brand := findBrand(brands, session.State.Selection.Brand)
		if brand == nil {
			return models.ErrNotInCatalog
		}
		model := findModel(brand.Models, session.State.Selection.Model)
		if model == nil {
			return models.ErrNotInCatalog
		}
		matched := ""
		for _, ft := range model.FuelTypes {
			if strings.EqualFold(ft, fuel) {
				matched = ft
				break
			}
		}
		if matched == "" {
			return models.ErrNotInCatalog
		}
		return m.SelectFuel(matched)
	})
}

// SelectYear applies a year choice from the offered range
func (s *FunnelService) SelectYear(ctx context.Context, sid, year string) error {
	offered := wizard.Years(time.Now())
	valid := false
	for _, y := range offered {
		if y == year {
			valid = true
			break
		}
	}
	if !valid {
		return models.ErrInvalidYear
	}
	return s.apply(ctx, sid, func(m wizard.Machine, _ *models.FunnelSession) error {
		return m.SelectYear(year)
	})
}

// Back navigates one view towards the form
func (s *FunnelService) Back(ctx context.Context, sid string) error {
	return s.apply(ctx, sid, func(m wizard.Machine, _ *models.FunnelSession) error {
		return m.Back()
	})
}

// SetSearch updates the brand or model free-text filter
func (s *FunnelService) SetSearch(ctx context.Context, sid string, view models.View, query string) error {
	return s.apply(ctx, sid, func(m wizard.Machine, _ *models.FunnelSession) error {
		return m.SetSearch(view, query)
	})
}

// Session loads the raw funnel session
func (s *FunnelService) Session(ctx context.Context, sid string) (*models.FunnelSession, error) {
	return s.loadSession(ctx, sid)
}

// State builds the full client-facing snapshot: current view with its
// filtered option list, selections and the years range. Views that do not
// need the catalog keep working when the catalog is down.
func (s *FunnelService) State(ctx context.Context, sid string, otpStatus models.OTPStatus) (*models.FunnelStateResponse, error) {
	session, err := s.loadSession(ctx, sid)
	if err != nil {
		return nil, err
	}

	// A state read keeps an active session alive
	if err := config.Redis.Expire(ctx, funnelSessionKey(sid), config.AppConfig.SessionTTL).Err(); err != nil {
		s.logger.Warn("failed to refresh session ttl",
			zap.String("session_id", sid),
			zap.Error(err))
	}

	resp := &models.FunnelStateResponse{
		SessionID: session.ID,
		View:      session.State.View,
		Direction: session.State.Direction,
		Selection: session.State.Selection,
		OTP:       otpStatus,
		Complete:  session.State.Selection.Complete() && otpStatus.Verified,
	}

	switch session.State.View {
	case models.ViewBrands:
		brands, err := s.catalog.Brands(ctx)
		if err != nil {
			return nil, err
		}
		resp.Brands = wizard.FilterBrands(brands, session.State.BrandSearch)
	case models.ViewModels:
		brands, err := s.catalog.Brands(ctx)
		if err != nil {
			return nil, err
		}
		brand := findBrand(brands, session.State.Selection.Brand)
		if brand == nil {
			return nil, models.ErrNotInCatalog
		}
		if len(brand.Models) == 0 {
			resp.EmptyState = "No models available for this brand"
			break
		}
		resp.Models = wizard.FilterModels(brand.Models, session.State.ModelSearch)
	case models.ViewFuels:
		brands, err := s.catalog.Brands(ctx)
		if err != nil {
			return nil, err
		}
		brand := findBrand(brands, session.State.Selection.Brand)
		if brand == nil {
			return nil, models.ErrNotInCatalog
		}
		model := findModel(brand.Models, session.State.Selection.Model)
		if model == nil {
			return nil, models.ErrNotInCatalog
		}
		if len(model.FuelTypes) == 0 {
			resp.EmptyState = "No fuel types available for this model"
			break
		}
		fuels := make([]models.FuelOption, 0, len(model.FuelTypes))
		for _, ft := range model.FuelTypes {
			fuels = append(fuels, models.FuelOption{
				Type:    ft,
				IconURL: s.catalog.IconFor(ctx, ft),
			})
		}
		resp.Fuels = fuels
	case models.ViewYears:
		resp.Years = wizard.Years(time.Now())
	}

	return resp, nil
}

// apply loads the session, runs one machine operation and persists the
// result, recording the transition metric
func (s *FunnelService) apply(ctx context.Context, sid string, op func(wizard.Machine, *models.FunnelSession) error) error {
	session, err := s.loadSession(ctx, sid)
	if err != nil {
		return err
	}

	from := session.State.View
	if err := op(wizard.New(&session.State), session); err != nil {
		return err
	}

	if session.State.View != from {
		observability.WizardTransitions.WithLabelValues(string(from), string(session.State.View)).Inc()
	}

	session.UpdatedAt = time.Now()
	return s.saveSession(ctx, session)
}

func (s *FunnelService) loadSession(ctx context.Context, sid string) (*models.FunnelSession, error) {
	data, err := config.Redis.Get(ctx, funnelSessionKey(sid)).Result()
	if err == redis.Nil {
		return nil, models.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load funnel session: %w", err)
	}
	var session models.FunnelSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal funnel session: %w", err)
	}
	return &session, nil
}

func (s *FunnelService) saveSession(ctx context.Context, session *models.FunnelSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal funnel session: %w", err)
	}
	if err := config.Redis.Set(ctx, funnelSessionKey(session.ID), data, config.AppConfig.SessionTTL).Err(); err != nil {
		return fmt.Errorf("failed to save funnel session: %w", err)
	}
	return nil
}

func findBrand(brands []models.CarBrand, name string) *models.CarBrand {
	for i := range brands {
		if strings.EqualFold(brands[i].Brand, name) {
			return &brands[i]
		}
	}
	return nil
}

func findModel(carModels []models.CarModel, name string) *models.CarModel {
	for i := range carModels {
		if strings.EqualFold(carModels[i].Name, name) {
			return &carModels[i]
		}
	}
	return nil
}
