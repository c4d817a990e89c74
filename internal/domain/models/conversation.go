package models

type Step int

const (
	StepAwaitingPhoto Step = iota
	StepAwaitingName
	StepAwaitingLink
	StepAwaitingScheduleMinutes
)

func (s Step) String() string {
	switch s {
	case StepAwaitingPhoto:
		return "AWAITING_PHOTO"
	case StepAwaitingName:
		return "AWAITING_NAME"
	case StepAwaitingLink:
		return "AWAITING_LINK"
	case StepAwaitingScheduleMinutes:
		return "AWAITING_SCHEDULE_MINUTES"
	default:
		return "UNKNOWN"
	}
}

const (
	FieldPhoto = "photo"
	FieldName  = "name"
	FieldLink  = "link"
	FieldDesc  = "desc"
)

// Conversation - состояние диалога с оператором в конкретном чате.
type Conversation struct {
	ChatID int64
	Step   Step
	Fields map[string]string
}

func NewConversation(chatID int64) *Conversation {
	return &Conversation{
		ChatID: chatID,
		Step:   StepAwaitingPhoto,
		Fields: make(map[string]string),
	}
}

func (c *Conversation) Reset() {
	c.Step = StepAwaitingPhoto
	c.Fields = make(map[string]string)
}

func (c *Conversation) Set(key, value string) {
	if c.Fields == nil {
		c.Fields = make(map[string]string)
	}

	c.Fields[key] = value
}

func (c *Conversation) Delete(key string) {
	delete(c.Fields, key)
}

func (c *Conversation) Get(key string) string {
	return c.Fields[key]
}

// Snapshot возвращает копию полей, не связанную с живым диалогом.
func (c *Conversation) Snapshot() map[string]string {
	fields := make(map[string]string, len(c.Fields))
	for k, v := range c.Fields {
		fields[k] = v
	}

	return fields
}
