package pharmaapi

// RecentHistory returns the last limit messages, reduced to role and
// content. A non-positive limit uses DefaultHistoryLimit.
func RecentHistory(msgs []Message, limit int) []Message {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}
