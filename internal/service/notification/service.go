package notification

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/citywatch/report-api/internal/email"
	"github.com/citywatch/report-api/internal/model"
	"github.com/citywatch/report-api/internal/repository"
	apperrors "github.com/citywatch/report-api/pkg/errors"
	"github.com/citywatch/report-api/pkg/messaging"
	"github.com/citywatch/report-api/pkg/metrics"
)

const eventChannel = "notifications.events"

// Service owns the notification lifecycle: every mutation is a
// load-modify-save pair against the per-user store, serialized per user key
// so two concurrent calls cannot clobber each other's write.
type Service struct {
	store    repository.NotificationStore
	userRepo repository.UserRepository
	broker   messaging.Broker
	emailSvc email.Service
	logger   *zerolog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewService(store repository.NotificationStore, userRepo repository.UserRepository,
	broker messaging.Broker, emailSvc email.Service, logger *zerolog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		store:    store,
		userRepo: userRepo,
		broker:   broker,
		emailSvc: emailSvc,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
		locks:    make(map[string]*sync.Mutex),
	}
}

// lockUser serializes mutations for one user key. Reads stay lock-free.
func (s *Service) lockUser(userID string) func() {
	s.mu.Lock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Create validates the submission, assigns a fresh id and timestamp and
// appends the record to the user's list. Nothing is written when validation
// fails.
func (s *Service) Create(ctx context.Context, userID string, req *model.CreateNotificationRequest) (*model.Notification, error) {
	if err := validateCreate(req); err != nil {
		s.metrics.LifecycleOperations.WithLabelValues("create", "rejected").Inc()
		return nil, err
	}

	unlock := s.lockUser(userID)
	defer unlock()

	records, err := s.store.LoadAll(ctx, userID)
	if err != nil {
		return nil, s.fail("create", err)
	}

	now := s.now()
	record := model.Notification{
		ID:          uniqueID(records, now),
		UserID:      userID,
		Description: req.Description,
		PhotoURL:    req.PhotoURL,
		Location:    req.Location,
		SubmittedAt: now.Format(time.RFC3339),
		Status:      model.NotificationStatusPending,
	}

	records = append(records, record)
	if err := s.store.SaveAll(ctx, userID, records); err != nil {
		return nil, s.fail("create", err)
	}

	s.metrics.LifecycleOperations.WithLabelValues("create", "ok").Inc()
	s.publish(ctx, "notification.created", userID, &record)
	return &record, nil
}

// List returns the user's notifications most-recent-first, optionally
// narrowed by the city/status filter. Read-only.
func (s *Service) List(ctx context.Context, userID string, filter *model.NotificationFilter) ([]model.Notification, error) {
	records, err := s.store.LoadAll(ctx, userID)
	if err != nil {
		return nil, s.fail("list", err)
	}

	// Persisted order is oldest-first; recency reversal happens here, before
	// filtering, so the filter never reorders.
	reversed := make([]model.Notification, len(records))
	for i, r := range records {
		reversed[len(records)-1-i] = r
	}

	if filter == nil {
		return reversed, nil
	}
	return Filter(reversed, filter.City, filter.Status), nil
}

// Get returns a single record by id.
func (s *Service) Get(ctx context.Context, userID, id string) (*model.Notification, error) {
	records, err := s.store.LoadAll(ctx, userID)
	if err != nil {
		return nil, s.fail("get", err)
	}
	for i := range records {
		if records[i].ID == id {
			return &records[i], nil
		}
	}
	return nil, apperrors.NotFound("notification", nil)
}

// Edit replaces the description and photo of an owned, still-pending record.
func (s *Service) Edit(ctx context.Context, userID, id string, req *model.UpdateNotificationRequest) (*model.Notification, error) {
	if strings.TrimSpace(req.Description) == "" || req.PhotoURL == "" {
		s.metrics.LifecycleOperations.WithLabelValues("edit", "rejected").Inc()
		return nil, apperrors.BadRequest("description and photo are required", nil)
	}

	unlock := s.lockUser(userID)
	defer unlock()

	records, err := s.store.LoadAll(ctx, userID)
	if err != nil {
		return nil, s.fail("edit", err)
	}

	idx := indexOf(records, id)
	if idx < 0 {
		s.metrics.LifecycleOperations.WithLabelValues("edit", "not_found").Inc()
		return nil, apperrors.NotFound("notification", nil)
	}
	if records[idx].UserID != userID {
		return nil, apperrors.Forbidden("notification belongs to another user", nil)
	}
	if records[idx].Status != model.NotificationStatusPending {
		s.metrics.LifecycleOperations.WithLabelValues("edit", "rejected").Inc()
		return nil, apperrors.BadRequest("only pending notifications can be edited", nil)
	}

	records[idx].Description = req.Description
	records[idx].PhotoURL = req.PhotoURL

	if err := s.store.SaveAll(ctx, userID, records); err != nil {
		return nil, s.fail("edit", err)
	}

	s.metrics.LifecycleOperations.WithLabelValues("edit", "ok").Inc()
	record := records[idx]
	s.publish(ctx, "notification.updated", userID, &record)
	return &record, nil
}

// Delete removes the record with the given id. Deleting an id that is not
// present persists the list unchanged, so the operation is idempotent.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	unlock := s.lockUser(userID)
	defer unlock()

	records, err := s.store.LoadAll(ctx, userID)
	if err != nil {
		return s.fail("delete", err)
	}

	remaining := records[:0:0]
	for _, r := range records {
		if r.ID != id {
			remaining = append(remaining, r)
		}
	}

	if err := s.store.SaveAll(ctx, userID, remaining); err != nil {
		return s.fail("delete", err)
	}

	s.metrics.LifecycleOperations.WithLabelValues("delete", "ok").Inc()
	s.publish(ctx, "notification.deleted", userID, &model.Notification{ID: id, UserID: userID})
	return nil
}

// Respond records the prefecture's response. The status is left untouched;
// a record counts as answered exactly when its response is non-empty.
func (s *Service) Respond(ctx context.Context, userID, id, response string) (*model.Notification, error) {
	response = strings.TrimSpace(response)
	if response == "" {
		s.metrics.LifecycleOperations.WithLabelValues("respond", "rejected").Inc()
		return nil, apperrors.BadRequest("response must not be empty", nil)
	}

	unlock := s.lockUser(userID)
	defer unlock()

	records, err := s.store.LoadAll(ctx, userID)
	if err != nil {
		return nil, s.fail("respond", err)
	}

	idx := indexOf(records, id)
	if idx < 0 {
		s.metrics.LifecycleOperations.WithLabelValues("respond", "not_found").Inc()
		return nil, apperrors.NotFound("notification", nil)
	}

	records[idx].PrefectureResponse = response

	if err := s.store.SaveAll(ctx, userID, records); err != nil {
		return nil, s.fail("respond", err)
	}

	s.metrics.LifecycleOperations.WithLabelValues("respond", "ok").Inc()
	record := records[idx]
	s.publish(ctx, "notification.responded", userID, &record)
	s.notifyOwner(ctx, &record, "Your report received a response from the prefecture.")
	return &record, nil
}

// ChangeStatus sets the record's status to any member of the closed set.
// No transition restrictions are enforced.
func (s *Service) ChangeStatus(ctx context.Context, userID, id string, status model.NotificationStatus) (*model.Notification, error) {
	if !status.Valid() {
		s.metrics.LifecycleOperations.WithLabelValues("change_status", "rejected").Inc()
		return nil, apperrors.BadRequest(fmt.Sprintf("invalid status %q", status), nil)
	}

	unlock := s.lockUser(userID)
	defer unlock()

	records, err := s.store.LoadAll(ctx, userID)
	if err != nil {
		return nil, s.fail("change_status", err)
	}

	idx := indexOf(records, id)
	if idx < 0 {
		s.metrics.LifecycleOperations.WithLabelValues("change_status", "not_found").Inc()
		return nil, apperrors.NotFound("notification", nil)
	}

	records[idx].Status = status

	if err := s.store.SaveAll(ctx, userID, records); err != nil {
		return nil, s.fail("change_status", err)
	}

	s.metrics.LifecycleOperations.WithLabelValues("change_status", "ok").Inc()
	record := records[idx]
	s.publish(ctx, "notification.status_changed", userID, &record)
	s.notifyOwner(ctx, &record, fmt.Sprintf("Your report status changed to %s.", status))
	return &record, nil
}

func (s *Service) fail(op string, err error) error {
	s.metrics.LifecycleOperations.WithLabelValues(op, "error").Inc()
	s.logger.Error().Err(err).Str("operation", op).Msg("notification store operation failed")
	return apperrors.Internal(err)
}

func (s *Service) publish(ctx context.Context, eventType, userID string, record *model.Notification) {
	if s.broker == nil {
		return
	}
	event := messaging.Event{Type: eventType, UserID: userID, Payload: record}
	if err := s.broker.Publish(ctx, eventChannel, event); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("failed to publish notification event")
	}
}

// notifyOwner emails the authoring citizen best-effort: device-scoped ids
// have no account and are skipped, and delivery failures never fail the
// lifecycle operation.
func (s *Service) notifyOwner(ctx context.Context, record *model.Notification, message string) {
	if s.emailSvc == nil || s.userRepo == nil {
		return
	}

	ownerID, err := uuid.Parse(record.UserID)
	if err != nil {
		return
	}

	owner, err := s.userRepo.Get(ctx, ownerID)
	if err != nil {
		s.logger.Debug().Err(err).Str("user_id", record.UserID).Msg("no account for notification owner")
		return
	}

	if err := s.emailSvc.SendNotificationUpdate(ctx, owner.Email, record.Description, message); err != nil {
		s.logger.Warn().Err(err).Str("email", owner.Email).Msg("failed to send notification email")
	}
}

func validateCreate(req *model.CreateNotificationRequest) error {
	if strings.TrimSpace(req.Description) == "" {
		return apperrors.BadRequest("description is required", nil)
	}
	if req.PhotoURL == "" {
		return apperrors.BadRequest("photo is required", nil)
	}
	if req.Location.City == "" {
		return apperrors.BadRequest("resolved location is required", nil)
	}
	return nil
}

func indexOf(records []model.Notification, id string) int {
	for i := range records {
		if records[i].ID == id {
			return i
		}
	}
	return -1
}

// uniqueID mints a timestamp-derived token, bumping the nanosecond value
// until it differs from every id already in the list.
func uniqueID(records []model.Notification, now time.Time) string {
	n := now.UnixNano()
	id := strconv.FormatInt(n, 10)
	for indexOf(records, id) >= 0 {
		n++
		id = strconv.FormatInt(n, 10)
	}
	return id
}
