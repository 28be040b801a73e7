package model

// NoticeVariant selects how a notice is presented.
type NoticeVariant string

const (
	NoticeDefault     NoticeVariant = "default"
	NoticeDestructive NoticeVariant = "destructive"
)

// Notice is a transient, dismissible notification for the user.
type Notice struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Variant     NoticeVariant `json:"variant"`
}

// ErrorNotice builds a destructive notice with the usual "Error" title.
func ErrorNotice(description string) *Notice {
	return &Notice{Title: "Error", Description: description, Variant: NoticeDestructive}
}

// InfoNotice builds a default notice.
func InfoNotice(title, description string) *Notice {
	return &Notice{Title: title, Description: description, Variant: NoticeDefault}
}

// Suggestions are the starter prompts shown in an empty chat.
var Suggestions = []string{
	"What careers match my interests in technology and creativity?",
	"How do I start a career in data science as a fresh graduate?",
	"What skills should I develop for a product management role?",
}
