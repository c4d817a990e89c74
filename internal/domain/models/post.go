package models

import "time"

// Post - то, что публикуется в канал.
type Post struct {
	Photo   string
	Caption string
	Link    string
}

func PostFromFields(fields map[string]string) Post {
	return Post{
		Photo:   fields[FieldPhoto],
		Caption: fields[FieldDesc],
		Link:    fields[FieldLink],
	}
}

// PublishJob - снимок полей диалога для отложенной публикации.
type PublishJob struct {
	ID        string            `json:"id"`
	ChatID    int64             `json:"chat_id"`
	Fields    map[string]string `json:"fields"`
	CreatedAt time.Time         `json:"created_at"`
	FireAt    time.Time         `json:"fire_at"`
}
