package http

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/v2/bson"

	"coach_report_bot/internal/dates"
)

var (
	registerOnce sync.Once
	registerErr  error
)

// RegisterValidators adds the objectid and timezone tags to gin's binding validator
func RegisterValidators() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = fmt.Errorf("unexpected binding validator %T", binding.Validator.Engine())
			return
		}
		if err := v.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
			return ValidObjectID(fl.Field().String())
		}); err != nil {
			registerErr = fmt.Errorf("register objectid validation: %w", err)
			return
		}
		if err := v.RegisterValidation("timezone", func(fl validator.FieldLevel) bool {
			tz := fl.Field().String()
			if tz == "" {
				return true
			}
			_, err := dates.LoadLocation(tz)
			return err == nil
		}); err != nil {
			registerErr = fmt.Errorf("register timezone validation: %w", err)
		}
	})
	return registerErr
}

func ValidObjectID(s string) bool {
	_, err := bson.ObjectIDFromHex(s)
	return err == nil
}

// SanitizeString removes null bytes and invalid UTF-8
func SanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	return s
}
