package tgui

// MaxMessageLen is Telegram's sendMessage text limit, counted in UTF-8 code
// points (not bytes).
const MaxMessageLen = 4096
