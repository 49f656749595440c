package handler

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/citywatch/report-api/internal/model"
)

// RegisterValidations installs custom binding validators on gin's engine.
// Called once at startup.
func RegisterValidations() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}

	v.RegisterValidation("notification_status", func(fl validator.FieldLevel) bool {
		return model.NotificationStatus(fl.Field().String()).Valid()
	})
}
