package pipeline

// Article is one raw result from the external news search capability.
type Article struct {
	Content       string `json:"content"`
	URL           string `json:"url"`
	PublishedDate string `json:"published_date"`
}

// State is the value threaded through a pipeline run. Stages receive it by
// value and return an updated copy; nothing is shared between requests.
type State struct {
	UseCase       UseCase
	Messages      []Message
	FromCache     bool
	CacheHitScore float64

	// News pipeline fields.
	UserQuery string
	Frequency string
	Articles  []Article
	Summary   string
	SavedFile string
}

// WithMessage returns a copy of the state with the message appended. The
// message slice is cloned so earlier copies stay untouched.
func (s State) WithMessage(m Message) State {
	messages := make([]Message, 0, len(s.Messages)+1)
	messages = append(messages, s.Messages...)
	messages = append(messages, m)
	s.Messages = messages
	return s
}

// LatestText returns the content of the most recent message.
func (s State) LatestText() (string, bool) {
	if len(s.Messages) == 0 {
		return "", false
	}
	return s.Messages[len(s.Messages)-1].Content(), true
}

// FinalText returns the last message content, or empty when none exists.
func (s State) FinalText() string {
	text, _ := s.LatestText()
	return text
}
