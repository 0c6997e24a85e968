package settings

import (
	"errors"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var ErrInvalid = errors.New("invalid settings")

// ValidationError carries every problem found, in a stable order.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return ErrInvalid.Error() + ": " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalid }

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("bottoken", func(fl validator.FieldLevel) bool {
			return ValidBotToken(fl.Field().String())
		})
		_ = validate.RegisterValidation("chatid", func(fl validator.FieldLevel) bool {
			return ValidChatID(fl.Field().String())
		})
		validate.RegisterStructValidation(func(sl validator.StructLevel) {
			s := sl.Current().Interface().(Snapshot)
			if len(s.OrderChatIDs) == 0 && len(s.AdminLoginChatIDs) == 0 && len(s.NewCustomerChatIDs) == 0 {
				sl.ReportError(s.OrderChatIDs, "order_chat_ids", "OrderChatIDs", "recipients", "")
			}
		}, Snapshot{})
	})
	return validate
}

var chatListLabel = map[string]string{
	"OrderChatIDs":       "New Orders Notification Chat ID(s)",
	"AdminLoginChatIDs":  "Admin Login Notifications Chat ID(s)",
	"NewCustomerChatIDs": "New Customer Registration Notifications Chat ID(s)",
}

// Validate checks s and returns a *ValidationError listing every problem.
func Validate(s Snapshot) error {
	err := validatorInstance().Struct(s)
	if err == nil {
		return nil
	}
	var fes validator.ValidationErrors
	if !errors.As(err, &fes) {
		return &ValidationError{Problems: []string{err.Error()}}
	}
	problems := make([]string, 0, len(fes))
	for _, fe := range fes {
		problems = append(problems, describe(fe))
	}
	return &ValidationError{Problems: problems}
}

func describe(fe validator.FieldError) string {
	field, _, _ := strings.Cut(fe.StructField(), "[")
	switch fe.Tag() {
	case "recipients":
		return "At least one of New Orders, Admin Login, or New Customer Chat ID must be filled."
	case "chatid":
		return "Invalid " + chatListLabel[field] + ": " + fe.Value().(string)
	case "max":
		if label, ok := chatListLabel[field]; ok {
			return "You can only configure up to 30 " + label + "."
		}
	}
	switch field {
	case "BotToken":
		if fe.Tag() == "bottoken" {
			return "Bot Token must look like 123456789:ABC-DEF."
		}
		return "Bot Token is required."
	case "UpdateCheckInterval":
		return "Update Check Interval must be a positive integer (hours)."
	case "MaxMessages":
		return "Max Messages must be a non-negative integer."
	case "MaxRetries":
		return "Max Retry Attempts must be a non-negative integer."
	}
	return fe.Error()
}

// Normalize replaces empty templates with the defaults and reports whether
// any replacement happened.
func Normalize(s Snapshot) (Snapshot, bool) {
	replaced := false
	fill := func(tpl *string, def string) {
		if *tpl == "" {
			*tpl = def
			replaced = true
		}
	}
	fill(&s.OrderTemplate, DefaultOrderTemplate)
	fill(&s.AdminLoginTemplate, DefaultAdminLoginTemplate)
	fill(&s.NewCustomerTemplate, DefaultNewCustomerTemplate)
	return s, replaced
}
