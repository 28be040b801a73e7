package chat

// TitleLength is how many characters of the first message become the title.
const TitleLength = 50

// DeriveTitle turns the first message of a session into its title.
func DeriveTitle(text string) string {
	runes := []rune(text)
	if len(runes) <= TitleLength {
		return text
	}
	return string(runes[:TitleLength]) + "..."
}
