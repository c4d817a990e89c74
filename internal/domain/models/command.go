package models

import "strings"

type CommandType string

const (
	CommandStart   CommandType = "/start"
	CommandCancel  CommandType = "/cancel"
	CommandHelp    CommandType = "/help"
	CommandUnknown CommandType = "unknown"
)

// ParseCommand выделяет команду из текста сообщения, отбрасывая суффикс @botname и аргументы.
func ParseCommand(text string) (CommandType, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", false
	}

	name := strings.Fields(text)[0]
	if at := strings.IndexByte(name, '@'); at > 0 {
		name = name[:at]
	}

	switch cmd := CommandType(strings.ToLower(name)); cmd {
	case CommandStart, CommandCancel, CommandHelp:
		return cmd, true
	default:
		return CommandUnknown, true
	}
}

const (
	CallbackPostNow  = "post_now"
	CallbackSchedule = "schedule"
)
