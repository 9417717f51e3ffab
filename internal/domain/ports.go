package domain

// ThreadStore holds the session registry: every thread in creation order and
// the id of the active one. All operations are total; unknown ids are no-ops.
type ThreadStore interface {
	CreateThread(thread *Thread)
	GetThread(id ThreadID) (*Thread, bool)
	ListThreads() []*Thread
	DeleteThread(id ThreadID)

	SetActive(id ThreadID)
	Active() ThreadID
	SetPersonality(id ThreadID, personalityID string)

	AppendMessage(id ThreadID, msg Message)
	RewriteLastUserMessage(id ThreadID, content string)
	UpdateLastAssistantMessage(id ThreadID, content string)
}
