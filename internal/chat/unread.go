package chat

// recipientsExcluding lists the participants whose unread counter moves on a
// send: everyone except the sender. A counter is never incremented for the
// sender and never goes negative (it only ever moves by +1 here and resets
// to zero in MarkAllRead).
func recipientsExcluding(conv *Conversation, userID string) []string {
	out := make([]string, 0, len(conv.Participants))
	for _, p := range conv.Participants {
		if p != userID {
			out = append(out, p)
		}
	}
	return out
}
