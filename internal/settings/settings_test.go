package settings

import (
	"context"
	"errors"
	"strings"
	"testing"

	"tgnotifier/internal/storage"
)

func validSnapshot() Snapshot {
	s := Defaults()
	s.BotToken = "123456:ABC"
	s.OrderChatIDs = []string{"123456789"}
	return s
}

func TestValidChatID(t *testing.T) {
	t.Parallel()
	for _, id := range []string{"123456789", "-987654321", "-1001234567890"} {
		if !ValidChatID(id) {
			t.Fatalf("ValidChatID(%q) = false", id)
		}
	}
	for _, id := range []string{"12345", "12a456789", "", "1234567890123456", "+123456789"} {
		if ValidChatID(id) {
			t.Fatalf("ValidChatID(%q) = true", id)
		}
	}
}

func TestParseChatIDs(t *testing.T) {
	t.Parallel()
	if got := ParseChatIDs("  "); got != nil {
		t.Fatalf("blank = %q", got)
	}
	got := ParseChatIDs(" 123456789 ,-987654321,")
	want := []string{"123456789", "-987654321", ""}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("ParseChatIDs = %q, want %q", got, want)
	}
}

func TestDecodeEncode(t *testing.T) {
	t.Parallel()
	cases := []struct {
		key  string
		raw  string
		ok   bool
		want any
	}{
		{KeyMaxMessages, "", false, 5},
		{KeyMaxMessages, "7", true, 7},
		{KeyMaxMessages, " ", true, 5},
		{KeyUpdateNotifications, "", false, true},
		{KeyUpdateNotifications, "0", true, false},
		{KeyUpdateNotifications, "1", true, true},
		{KeyBotToken, "t", true, "t"},
		{KeyOrderTemplate, "", false, DefaultOrderTemplate},
	}
	for _, tc := range cases {
		got, err := Decode(tc.key, tc.raw, tc.ok)
		if err != nil {
			t.Fatalf("Decode(%s, %q): %v", tc.key, tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("Decode(%s, %q) = %#v, want %#v", tc.key, tc.raw, got, tc.want)
		}
	}

	if _, err := Decode(KeyMaxRetries, "two", true); !errors.Is(err, ErrBadValue) {
		t.Fatalf("Decode bad int err = %v", err)
	}
	if _, err := Decode("NOPE", "", true); !errors.Is(err, ErrUnknownKey) {
		t.Fatalf("Decode unknown err = %v", err)
	}

	for _, tc := range []struct {
		key  string
		v    any
		want string
	}{
		{KeyUpdateNotifications, true, "1"},
		{KeyUpdateNotifications, false, "0"},
		{KeyMaxRetries, 3, "3"},
		{KeyLastUpdateCheck, int64(1700000000), "1700000000"},
		{KeyOrderChatIDs, []string{"1", "2"}, "1,2"},
	} {
		got, err := Encode(tc.key, tc.v)
		if err != nil || got != tc.want {
			t.Fatalf("Encode(%s, %v) = %q, %v", tc.key, tc.v, got, err)
		}
	}
	if _, err := Encode(KeyMaxRetries, "3"); !errors.Is(err, ErrBadValue) {
		t.Fatalf("Encode type mismatch err = %v", err)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	if err := Validate(validSnapshot()); err != nil {
		t.Fatalf("valid snapshot: %v", err)
	}

	tooMany := make([]string, 31)
	for i := range tooMany {
		tooMany[i] = "123456789"
	}

	cases := []struct {
		name   string
		mutate func(*Snapshot)
		want   string
	}{
		{"missing token", func(s *Snapshot) { s.BotToken = "" }, "Bot Token is required."},
		{"malformed token", func(s *Snapshot) { s.BotToken = "123/../x?y#z" }, "Bot Token must look like 123456789:ABC-DEF."},
		{"no recipients", func(s *Snapshot) { s.OrderChatIDs = nil }, "At least one of New Orders, Admin Login, or New Customer Chat ID must be filled."},
		{"bad chat id", func(s *Snapshot) { s.AdminLoginChatIDs = []string{"12a456789"} }, "Invalid Admin Login Notifications Chat ID(s): 12a456789"},
		{"empty chat id", func(s *Snapshot) { s.OrderChatIDs = []string{"123456789", ""} }, "Invalid New Orders Notification Chat ID(s): "},
		{"too many", func(s *Snapshot) { s.NewCustomerChatIDs = tooMany }, "You can only configure up to 30 New Customer Registration Notifications Chat ID(s)."},
		{"interval", func(s *Snapshot) { s.UpdateCheckInterval = 0 }, "Update Check Interval must be a positive integer (hours)."},
		{"max messages", func(s *Snapshot) { s.MaxMessages = -1 }, "Max Messages must be a non-negative integer."},
		{"max retries", func(s *Snapshot) { s.MaxRetries = -2 }, "Max Retry Attempts must be a non-negative integer."},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s := validSnapshot()
			tc.mutate(&s)
			err := Validate(s)
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("err = %v, want ErrInvalid", err)
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("err %T is not *ValidationError", err)
			}
			found := false
			for _, p := range ve.Problems {
				if p == tc.want {
					found = true
				}
			}
			if !found {
				t.Fatalf("problems %q do not include %q", ve.Problems, tc.want)
			}
		})
	}
}

func TestValidateReportsAllProblems(t *testing.T) {
	t.Parallel()
	s := Defaults()
	s.MaxRetries = -1
	var ve *ValidationError
	if !errors.As(Validate(s), &ve) {
		t.Fatal("expected ValidationError")
	}
	if len(ve.Problems) != 3 {
		t.Fatalf("problems = %q, want token + recipients + retries", ve.Problems)
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()
	s := validSnapshot()
	s.AdminLoginTemplate = ""
	got, replaced := Normalize(s)
	if !replaced || got.AdminLoginTemplate != DefaultAdminLoginTemplate {
		t.Fatalf("Normalize = %v, %q", replaced, got.AdminLoginTemplate)
	}
	if _, replaced := Normalize(got); replaced {
		t.Fatal("second Normalize reported a replacement")
	}
}

func TestLoadSaveRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := storage.NewMemory()

	s := validSnapshot()
	s.AdminLoginChatIDs = []string{"-987654321", "-1001234567890"}
	s.UpdateNotifications = false
	s.MaxRetries = 2
	if err := Save(ctx, st, s); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if raw, _, _ := st.Get(ctx, KeyUpdateNotifications); raw != "0" {
		t.Fatalf("stored bool = %q, want 0", raw)
	}
	if raw, _, _ := st.Get(ctx, KeyAdminLoginChatIDs); raw != "-987654321,-1001234567890" {
		t.Fatalf("stored chat ids = %q", raw)
	}
	if err := SaveUpdateCache(ctx, st, 1700000000, "v1.1.0"); err != nil {
		t.Fatalf("SaveUpdateCache: %v", err)
	}

	got, err := Load(ctx, st)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.UpdateNotifications || got.MaxRetries != 2 || len(got.AdminLoginChatIDs) != 2 {
		t.Fatalf("Load = %+v", got)
	}
	if got.LastUpdateCheck != 1700000000 || got.CachedVersion != "v1.1.0" {
		t.Fatalf("update cache = %d %q", got.LastUpdateCheck, got.CachedVersion)
	}
}

func TestLoadBadValue(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := storage.NewMemory()
	_ = st.Set(ctx, KeyMaxMessages, "lots")
	s, err := Load(ctx, st)
	if !errors.Is(err, ErrBadValue) {
		t.Fatalf("err = %v", err)
	}
	if s.MaxMessages != 5 {
		t.Fatalf("MaxMessages fallback = %d", s.MaxMessages)
	}
}

func TestInstallUninstall(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := storage.NewMemory()
	_ = st.Set(ctx, KeyBotToken, "existing")

	seed := map[string]string{KeyOrderChatIDs: "123456789", KeyMaxRetries: "1"}
	if err := Install(ctx, st, seed); err != nil {
		t.Fatalf("Install: %v", err)
	}
	s, err := Load(ctx, st)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.BotToken != "existing" {
		t.Fatalf("Install overwrote token: %q", s.BotToken)
	}
	if s.MaxRetries != 1 || len(s.OrderChatIDs) != 1 || s.MaxMessages != 5 {
		t.Fatalf("after install: %+v", s)
	}
	if raw, ok, _ := st.Get(ctx, KeyUpdateNotifications); !ok || raw != "1" {
		t.Fatalf("default bool stored as %q ok=%v", raw, ok)
	}

	if err := Install(ctx, st, map[string]string{"BOGUS": "x"}); !errors.Is(err, ErrUnknownKey) {
		t.Fatalf("bad seed err = %v", err)
	}

	if err := Uninstall(ctx, st); err != nil {
		t.Fatalf("Uninstall: %v", err)
	}
	for _, k := range Keys() {
		if _, ok, _ := st.Get(ctx, k); ok {
			t.Fatalf("%s survived Uninstall", k)
		}
	}
}

func TestReinstallKeepsStoredValues(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := storage.NewMemory()
	_ = st.Set(ctx, KeyOrderChatIDs, "123456789")
	_ = st.Set(ctx, KeyBotToken, "1:real")

	seed := map[string]string{KeyOrderChatIDs: "", KeyBotToken: "", KeyUpdateCheckInterval: "12"}
	for i := 0; i < 2; i++ {
		if err := Install(ctx, st, seed); err != nil {
			t.Fatalf("Install #%d: %v", i+1, err)
		}
	}
	if raw, _, _ := st.Get(ctx, KeyOrderChatIDs); raw != "123456789" {
		t.Fatalf("order chat ids = %q", raw)
	}
	if raw, _, _ := st.Get(ctx, KeyBotToken); raw != "1:real" {
		t.Fatalf("token = %q", raw)
	}
	if raw, _, _ := st.Get(ctx, KeyUpdateCheckInterval); raw != "12" {
		t.Fatalf("seeded interval = %q", raw)
	}
}

func TestMaskToken(t *testing.T) {
	t.Parallel()
	if got := MaskToken("123456:SECRET"); got != "123456:***" {
		t.Fatalf("MaskToken = %q", got)
	}
	if got := MaskToken("nocolon"); got != "***" {
		t.Fatalf("MaskToken = %q", got)
	}
	s := validSnapshot().Redacted()
	if strings.Contains(s.BotToken, "ABC") {
		t.Fatalf("Redacted leaked token: %q", s.BotToken)
	}
}
