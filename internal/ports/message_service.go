package ports

import "context"

// IChatAccess lets the realtime relay check room membership before a
// connection joins a chat room.
type IChatAccess interface {
	IsChatMember(ctx context.Context, chatID, userID string) (bool, error)
}
