package settings

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	KeyBotToken            = "TELEGRAMNOTIFY_BOT_TOKEN"
	KeyOrderChatIDs        = "TELEGRAMNOTIFY_NEW_ORDERS_CHAT_ID"
	KeyAdminLoginChatIDs   = "TELEGRAMNOTIFY_ADMIN_LOGIN_CHAT_ID"
	KeyNewCustomerChatIDs  = "TELEGRAMNOTIFY_NEW_CUSTOMER_CHAT_ID"
	KeyUpdateNotifications = "TELEGRAMNOTIFY_UPDATE_NOTIFICATIONS"
	KeyUpdateCheckInterval = "TELEGRAMNOTIFY_UPDATE_CHECK_INTERVAL"
	KeyMaxMessages         = "TELEGRAMNOTIFY_MAX_MESSAGES"
	KeyMaxRetries          = "TELEGRAMNOTIFY_MAX_RETRIES"
	KeyOrderTemplate       = "TELEGRAMNOTIFY_NEW_ORDER_TEMPLATE"
	KeyAdminLoginTemplate  = "TELEGRAMNOTIFY_ADMIN_LOGIN_TEMPLATE"
	KeyNewCustomerTemplate = "TELEGRAMNOTIFY_NEW_CUSTOMER_TEMPLATE"
	KeyLastUpdateCheck     = "TELEGRAMNOTIFY_LAST_UPDATE_CHECK"
	KeyCachedVersion       = "TELEGRAMNOTIFY_CACHED_VERSION"
)

var (
	ErrUnknownKey = errors.New("unknown settings key")
	ErrBadValue   = errors.New("bad settings value")
)

type Kind uint8

const (
	KindString Kind = iota
	KindInt
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	default:
		return "string"
	}
}

// Field describes one persisted key. Default has the Go type of Kind
// (string, int or bool).
type Field struct {
	Key     string
	Kind    Kind
	Default any
}

// Schema lists every key, in install order.
var Schema = []Field{
	{KeyBotToken, KindString, ""},
	{KeyOrderChatIDs, KindString, ""},
	{KeyAdminLoginChatIDs, KindString, ""},
	{KeyNewCustomerChatIDs, KindString, ""},
	{KeyUpdateNotifications, KindBool, true},
	{KeyUpdateCheckInterval, KindInt, 12}, // hours
	{KeyMaxMessages, KindInt, 5},
	{KeyMaxRetries, KindInt, 0},
	{KeyOrderTemplate, KindString, DefaultOrderTemplate},
	{KeyAdminLoginTemplate, KindString, DefaultAdminLoginTemplate},
	{KeyNewCustomerTemplate, KindString, DefaultNewCustomerTemplate},
	{KeyLastUpdateCheck, KindInt, 0},
	{KeyCachedVersion, KindString, ""},
}

var schemaIndex = func() map[string]Field {
	m := make(map[string]Field, len(Schema))
	for _, f := range Schema {
		m[f.Key] = f
	}
	return m
}()

// Lookup returns the schema entry for key.
func Lookup(key string) (Field, bool) {
	f, ok := schemaIndex[key]
	return f, ok
}

// Keys returns every schema key.
func Keys() []string {
	out := make([]string, 0, len(Schema))
	for _, f := range Schema {
		out = append(out, f.Key)
	}
	return out
}

// Decode converts a stored string into the key's Go type.
// A missing value (ok=false) yields the default; so does an empty int.
func Decode(key, raw string, ok bool) (any, error) {
	f, known := Lookup(key)
	if !known {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	if !ok {
		return f.Default, nil
	}
	switch f.Kind {
	case KindInt:
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return f.Default, nil
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s=%q is not an integer", ErrBadValue, key, raw)
		}
		return n, nil
	case KindBool:
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return false, nil
		}
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s=%q is not a boolean", ErrBadValue, key, raw)
		}
		return b, nil
	default:
		return raw, nil
	}
}

// Encode converts a Go value into its stored form. Booleans become "1"/"0".
func Encode(key string, v any) (string, error) {
	f, known := Lookup(key)
	if !known {
		return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	switch f.Kind {
	case KindInt:
		switch n := v.(type) {
		case int:
			return strconv.Itoa(n), nil
		case int64:
			return strconv.FormatInt(n, 10), nil
		}
	case KindBool:
		if b, ok := v.(bool); ok {
			if b {
				return "1", nil
			}
			return "0", nil
		}
	default:
		switch s := v.(type) {
		case string:
			return s, nil
		case []string:
			return strings.Join(s, ","), nil
		}
	}
	return "", fmt.Errorf("%w: %s wants %s, got %T", ErrBadValue, key, f.Kind, v)
}
