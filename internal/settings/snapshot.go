package settings

import (
	"context"
	"fmt"
	"strings"

	"tgnotifier/internal/storage"
)

// Snapshot is an immutable, typed copy of every setting.
type Snapshot struct {
	BotToken            string   `json:"bot_token" validate:"required,bottoken"`
	OrderChatIDs        []string `json:"order_chat_ids" validate:"max=30,dive,chatid"`
	AdminLoginChatIDs   []string `json:"admin_login_chat_ids" validate:"max=30,dive,chatid"`
	NewCustomerChatIDs  []string `json:"new_customer_chat_ids" validate:"max=30,dive,chatid"`
	UpdateNotifications bool     `json:"update_notifications"`
	UpdateCheckInterval int      `json:"update_check_interval" validate:"gte=1"` // hours
	MaxMessages         int      `json:"max_messages" validate:"gte=0"`          // 0 = unlimited
	MaxRetries          int      `json:"max_retries" validate:"gte=0"`           // 0 = single attempt
	OrderTemplate       string   `json:"order_template"`
	AdminLoginTemplate  string   `json:"admin_login_template"`
	NewCustomerTemplate string   `json:"new_customer_template"`

	// Update-check cache; not user-editable.
	LastUpdateCheck int64  `json:"last_update_check"`
	CachedVersion   string `json:"cached_version"`
}

// Defaults returns the snapshot of a fresh install.
func Defaults() Snapshot {
	s, _ := decodeAll(func(string) (string, bool, error) { return "", false, nil })
	return s
}

// Load reads every key from st.
func Load(ctx context.Context, st storage.Store) (Snapshot, error) {
	return decodeAll(func(key string) (string, bool, error) { return st.Get(ctx, key) })
}

func decodeAll(get func(key string) (string, bool, error)) (Snapshot, error) {
	var firstErr error
	val := func(key string) any {
		raw, ok, err := get(key)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("load %s: %w", key, err)
			}
			ok = false
		}
		v, err := Decode(key, raw, ok)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			v, _ = Decode(key, "", false)
		}
		return v
	}

	s := Snapshot{
		BotToken:            val(KeyBotToken).(string),
		OrderChatIDs:        ParseChatIDs(val(KeyOrderChatIDs).(string)),
		AdminLoginChatIDs:   ParseChatIDs(val(KeyAdminLoginChatIDs).(string)),
		NewCustomerChatIDs:  ParseChatIDs(val(KeyNewCustomerChatIDs).(string)),
		UpdateNotifications: val(KeyUpdateNotifications).(bool),
		UpdateCheckInterval: val(KeyUpdateCheckInterval).(int),
		MaxMessages:         val(KeyMaxMessages).(int),
		MaxRetries:          val(KeyMaxRetries).(int),
		OrderTemplate:       val(KeyOrderTemplate).(string),
		AdminLoginTemplate:  val(KeyAdminLoginTemplate).(string),
		NewCustomerTemplate: val(KeyNewCustomerTemplate).(string),
		LastUpdateCheck:     int64(val(KeyLastUpdateCheck).(int)),
		CachedVersion:       val(KeyCachedVersion).(string),
	}
	return s, firstErr
}

// editable returns the user-editable values in schema order.
func (s Snapshot) editable() []kv {
	return []kv{
		{KeyBotToken, s.BotToken},
		{KeyOrderChatIDs, s.OrderChatIDs},
		{KeyAdminLoginChatIDs, s.AdminLoginChatIDs},
		{KeyNewCustomerChatIDs, s.NewCustomerChatIDs},
		{KeyUpdateNotifications, s.UpdateNotifications},
		{KeyUpdateCheckInterval, s.UpdateCheckInterval},
		{KeyMaxMessages, s.MaxMessages},
		{KeyMaxRetries, s.MaxRetries},
		{KeyOrderTemplate, s.OrderTemplate},
		{KeyAdminLoginTemplate, s.AdminLoginTemplate},
		{KeyNewCustomerTemplate, s.NewCustomerTemplate},
	}
}

type kv struct {
	key string
	val any
}

// Save writes the user-editable fields of s. The update-check cache is left
// alone; see SaveUpdateCache.
func Save(ctx context.Context, st storage.Store, s Snapshot) error {
	for _, e := range s.editable() {
		if err := put(ctx, st, e.key, e.val); err != nil {
			return err
		}
	}
	return nil
}

// SaveUpdateCache persists the update checker's state.
func SaveUpdateCache(ctx context.Context, st storage.Store, lastCheck int64, version string) error {
	if err := put(ctx, st, KeyLastUpdateCheck, lastCheck); err != nil {
		return err
	}
	return put(ctx, st, KeyCachedVersion, version)
}

func put(ctx context.Context, st storage.Store, key string, v any) error {
	raw, err := Encode(key, v)
	if err != nil {
		return err
	}
	if err := st.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Redacted returns a copy safe to show: the bot token keeps only its bot id
// prefix.
func (s Snapshot) Redacted() Snapshot {
	s.BotToken = MaskToken(s.BotToken)
	s.OrderChatIDs = append([]string(nil), s.OrderChatIDs...)
	s.AdminLoginChatIDs = append([]string(nil), s.AdminLoginChatIDs...)
	s.NewCustomerChatIDs = append([]string(nil), s.NewCustomerChatIDs...)
	return s
}

// MaskToken hides the secret part of a "<id>:<secret>" bot token.
func MaskToken(tok string) string {
	if tok == "" {
		return ""
	}
	if id, _, ok := strings.Cut(tok, ":"); ok && id != "" {
		return id + ":***"
	}
	return "***"
}
