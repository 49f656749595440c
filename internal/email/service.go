package email

import (
	"context"
)

type Service interface {
	SendWelcome(ctx context.Context, to string, username string) error
	SendNotificationUpdate(ctx context.Context, to string, description string, message string) error
}
