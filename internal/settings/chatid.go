package settings

import (
	"regexp"
	"strings"
)

// MaxChatIDs is the per-list recipient limit.
const MaxChatIDs = 30

// Personal chats are positive, groups negative, channels/supergroups -100...
var chatIDPattern = regexp.MustCompile(`^-?[0-9]{9,15}$`)

// Bot tokens are "<bot id>:<secret>" as issued by BotFather.
var botTokenPattern = regexp.MustCompile(`^[0-9]+:[A-Za-z0-9_-]+$`)

// ValidBotToken reports whether token has the shape of a bot token.
func ValidBotToken(token string) bool { return botTokenPattern.MatchString(token) }

// ValidChatID reports whether id looks like a Telegram chat id.
func ValidChatID(id string) bool { return chatIDPattern.MatchString(id) }

// ParseChatIDs splits a comma separated list and trims each entry.
// Blank input yields nil; blank entries are kept so validation can report them.
func ParseChatIDs(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
