package sequencer

import "context"

// Surface is the host side of a turn: whatever renders the conversation.
// Instant operations must not block; ClearThinking and
// AnimateRewriteUserMessage return once their animation has finished.
type Surface interface {
	SetTyping(visible bool)
	AddThinkingStep(text string)
	SetThinkingSteps(lines []string)
	ClearThinking(ctx context.Context) error

	AppendReply(content string)
	AppendEmptyReply()
	UpdateReply(content string)
	SetLiveCursor(visible bool)

	RewriteUserMessage(content string)
	AnimateRewriteUserMessage(ctx context.Context, content string) error
}
