package domain

import "time"

type ThreadID string

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// DefaultTitle is the sentinel title of a thread that has not seen a user message yet.
const DefaultTitle = "New Chat"

// TitleMaxRunes bounds the title derived from the first user message.
const TitleMaxRunes = 30

type Timestamp = time.Time
