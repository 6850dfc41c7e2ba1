package pipeline

// MessageKind discriminates the message union.
type MessageKind string

const (
	// KindText is a bare string message with no role attached.
	KindText MessageKind = "text"
	// KindStructured carries a role alongside its content.
	KindStructured MessageKind = "structured"
)

// Message is a tagged union: either plain text or a role/content pair.
// Call sites switch on Kind instead of probing for attributes.
type Message struct {
	kind    MessageKind
	role    string
	content string
}

// TextMessage builds a plain text message.
func TextMessage(text string) Message {
	return Message{kind: KindText, content: text}
}

// StructuredMessage builds a role-tagged message.
func StructuredMessage(role, content string) Message {
	return Message{kind: KindStructured, role: role, content: content}
}

// Kind reports which variant this message is.
func (m Message) Kind() MessageKind { return m.kind }

// Content returns the textual payload of either variant.
func (m Message) Content() string { return m.content }

// Role returns the role of a structured message, or false for plain text.
func (m Message) Role() (string, bool) {
	if m.kind != KindStructured {
		return "", false
	}
	return m.role, true
}
