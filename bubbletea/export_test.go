package bubbletea

// StatusLine exports statusLine for testing.
func StatusLine(m Model) string {
	return m.statusLine()
}

// RenderContent exports renderContent for testing.
func RenderContent(m Model) string {
	return m.renderContent()
}

// NextState receives the next buffered transition from f.
func NextState(f *StateFeed) StateMsg {
	return <-f.ch
}

// FeedLen returns the number of buffered transitions in f.
func FeedLen(f *StateFeed) int {
	return len(f.ch)
}
