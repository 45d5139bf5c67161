package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/garagehub/funnel-api/internal/config"
	"github.com/garagehub/funnel-api/internal/models"
	"github.com/garagehub/funnel-api/internal/observability"
	"github.com/garagehub/funnel-api/internal/sessionstore"
	"github.com/garagehub/funnel-api/internal/utils/httpclient"
	"go.uber.org/zap"
)

// asyncSubmitTimeout bounds a fire-and-forget delivery attempt
const asyncSubmitTimeout = 15 * time.Second

// SubmitService finalizes the funnel: it writes the hand-off record for the
// downstream pages and delivers the booking request to the external
// backend. Delivery is either awaited or fire-and-forget depending on
// SUBMIT_MODE; the hand-off record is always written first, so downstream
// pages work in both modes.
type SubmitService struct {
	store  *sessionstore.Store
	logger *zap.Logger
}

// NewSubmitService creates a submit service
func NewSubmitService(store *sessionstore.Store, logger *zap.Logger) *SubmitService {
	return &SubmitService{
		store:  store,
		logger: logger,
	}
}

// Submit validates readiness, persists the selection record and posts the
// booking request
func (s *SubmitService) Submit(ctx context.Context, sid string, selection models.Selection, phone string, verified bool) error {
	if !selection.Complete() || !verified || phone == "" {
		return models.ErrSubmissionNotReady
	}

	record := models.CarSelectionRecord{
		Brand:    selection.Brand,
		Model:    selection.Model,
		FuelType: selection.Fuel,
		Year:     selection.Year,
		Phone:    phone,
		Image:    selection.ModelImage,
	}
	if err := s.store.PutCarSelection(ctx, sid, record); err != nil {
		return err
	}

	request := models.SubmitRequest{
		Brand:    record.Brand,
		Model:    record.Model,
		FuelType: record.FuelType,
		Year:     record.Year,
		Phone:    record.Phone,
	}

	mode := config.AppConfig.SubmitMode
	if mode == config.SubmitModeAsync {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), asyncSubmitTimeout)
			defer cancel()
			if err := s.deliver(ctx, request); err != nil {
				observability.Submissions.WithLabelValues(mode, "failure").Inc()
				s.logger.Error("async booking delivery failed",
					zap.String("session_id", sid),
					zap.Error(err))
				return
			}
			observability.Submissions.WithLabelValues(mode, "success").Inc()
		}()
		return nil
	}

	if err := s.deliver(ctx, request); err != nil {
		observability.Submissions.WithLabelValues(mode, "failure").Inc()
		return err
	}
	observability.Submissions.WithLabelValues(mode, "success").Inc()
	return nil
}

func (s *SubmitService) deliver(ctx context.Context, request models.SubmitRequest) error {
	jsonBody, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to marshal booking request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, config.AppConfig.SubmitURL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create booking request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := httpclient.GetGlobalPool().Get()
	defer httpclient.GetGlobalPool().Put(client)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver booking request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("booking request failed with status: %d", resp.StatusCode)
	}

	return nil
}
