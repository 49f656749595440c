package model

import (
	"strconv"
	"time"
)

type NotificationStatus string

const (
	NotificationStatusPending     NotificationStatus = "pending"
	NotificationStatusUnderReview NotificationStatus = "under_review"
	NotificationStatusResolved    NotificationStatus = "resolved"

	// NotificationStatusAll is the filter sentinel that matches every status.
	// It is never a stored value.
	NotificationStatusAll NotificationStatus = "all"
)

// Valid reports whether s is a member of the closed status set.
func (s NotificationStatus) Valid() bool {
	switch s {
	case NotificationStatusPending, NotificationStatusUnderReview, NotificationStatusResolved:
		return true
	}
	return false
}

// Location is the geocoded capture point of a notification. City is required;
// the client falls back to the broader administrative region name when
// reverse geocoding cannot resolve a city.
type Location struct {
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	City         string  `json:"city"`
	Neighborhood string  `json:"neighborhood,omitempty"`
	Street       string  `json:"street,omitempty"`
}

// Notification is one citizen-submitted issue report. ID is an opaque
// timestamp-derived token assigned at creation and is the sole lookup key.
type Notification struct {
	ID                 string             `json:"id"`
	UserID             string             `json:"user_id"`
	Description        string             `json:"description"`
	PhotoURL           string             `json:"photo_url"`
	Location           Location           `json:"location"`
	SubmittedAt        string             `json:"submitted_at"`
	Status             NotificationStatus `json:"status"`
	PrefectureResponse string             `json:"prefecture_response,omitempty"`
}

// Answered reports whether prefecture staff have responded to the record.
func (n *Notification) Answered() bool {
	return n.PrefectureResponse != ""
}

// NewNotificationID returns a fresh timestamp-derived token.
func NewNotificationID(now time.Time) string {
	return strconv.FormatInt(now.UnixNano(), 10)
}

type CreateNotificationRequest struct {
	Description string   `json:"description" binding:"required"`
	PhotoURL    string   `json:"photo_url" binding:"required"`
	Location    Location `json:"location" binding:"required"`
}

type UpdateNotificationRequest struct {
	Description string `json:"description" binding:"required"`
	PhotoURL    string `json:"photo_url" binding:"required"`
}

type RespondNotificationRequest struct {
	Response string `json:"response" binding:"required"`
}

type ChangeStatusRequest struct {
	Status NotificationStatus `json:"status" binding:"required,notification_status"`
}

// NotificationFilter represents the read-only list derivation parameters.
type NotificationFilter struct {
	City   string             `json:"city" form:"city"`
	Status NotificationStatus `json:"status" form:"status"`
}
