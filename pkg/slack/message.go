package slack

// Attachment colors understood by Slack.
const (
	ColorGood    = "good"
	ColorWarning = "warning"
	ColorDanger  = "danger"
)

// Payload is the JSON body posted to a response_url.
type Payload struct {
	Text        string       `json:"text,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

type Attachment struct {
	Title     string  `json:"title,omitempty"`
	TitleLink string  `json:"title_link,omitempty"`
	Text      string  `json:"text,omitempty"`
	Fields    []Field `json:"fields,omitempty"`
	Color     string  `json:"color,omitempty"`
	Footer    string  `json:"footer,omitempty"`
}

type Field struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short,omitempty"`
}

// TextPayload is a plain message without attachments.
func TextPayload(text string) Payload {
	return Payload{Text: text}
}

// AttachmentPayload wraps a single attachment.
func AttachmentPayload(a Attachment) Payload {
	return Payload{Attachments: []Attachment{a}}
}
