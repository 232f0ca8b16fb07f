package service

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"coldsend-backend/models"
)

// MaxConnectionNoteLength is LinkedIn's limit for an invitation note
const MaxConnectionNoteLength = 300

const truncationSuffix = "..."

// BuildEmailPrompt assembles the instructions for a cold outreach email.
// The model is asked to answer with a JSON object holding subject and body.
func BuildEmailPrompt(profile models.Profile, settings models.Settings, prefs models.Preferences) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are writing a cold outreach email as %s.\n", senderName(settings))
	if settings.UserAbout != "" {
		fmt.Fprintf(&b, "About the sender: %s\n", settings.UserAbout)
	}

	b.WriteString("\nRECIPIENT'S LINKEDIN INFO:\n")
	writeProfile(&b, profile)

	b.WriteString("\nWRITE A SHORT EMAIL (4-6 sentences max) that:\n")
	if first := profile.FirstName(); first != "" {
		fmt.Fprintf(&b, "- Greets them by first name (%s)\n", first)
	}
	b.WriteString("- Opens with something SPECIFIC from their profile that genuinely caught your attention (a project, company, role, or something from their about section)\n")
	b.WriteString("- Briefly says who the sender is\n")
	fmt.Fprintf(&b, "- %s\n", askInstruction(prefs))
	if prefs.IncludeResume {
		b.WriteString("- Mentions that the sender's resume is attached\n")
	}
	b.WriteString("- Ends naturally, not with corporate sign-offs\n")

	writeStyleRules(&b)
	b.WriteString("- Keep the body under 100 words\n")

	if custom := strings.TrimSpace(prefs.CustomInstructions); custom != "" {
		fmt.Fprintf(&b, "\nADDITIONAL INSTRUCTIONS FROM THE SENDER:\n%s\n", custom)
	}

	b.WriteString("\nOUTPUT FORMAT:\n")
	b.WriteString(`Respond with ONLY a JSON object of the form {"subject": "...", "body": "..."}.`)
	b.WriteString(" The subject is under 8 words. Do not include a signature; one is added automatically.\n")

	return b.String()
}

// BuildConnectionPrompt assembles the instructions for a LinkedIn connection note
func BuildConnectionPrompt(profile models.Profile, settings models.Settings, prefs models.Preferences) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are writing a LinkedIn connection request note as %s.\n", senderName(settings))
	if settings.UserAbout != "" {
		fmt.Fprintf(&b, "About the sender: %s\n", settings.UserAbout)
	}

	b.WriteString("\nRECIPIENT'S LINKEDIN INFO:\n")
	writeProfile(&b, profile)

	b.WriteString("\nWRITE A CONNECTION NOTE that:\n")
	b.WriteString("- References one specific thing from their profile\n")
	fmt.Fprintf(&b, "- %s\n", askInstruction(prefs))
	fmt.Fprintf(&b, "- Is at most %d characters including spaces\n", MaxConnectionNoteLength-20)

	writeStyleRules(&b)

	if custom := strings.TrimSpace(prefs.CustomInstructions); custom != "" {
		fmt.Fprintf(&b, "\nADDITIONAL INSTRUCTIONS FROM THE SENDER:\n%s\n", custom)
	}

	b.WriteString("\nJust output the note text. No greeting line labels, no quotes, no signature.\n")
	return b.String()
}

// TruncateConnectionNote enforces the platform limit regardless of model compliance
func TruncateConnectionNote(note string) string {
	note = strings.TrimSpace(note)
	if utf8.RuneCountInString(note) <= MaxConnectionNoteLength {
		return note
	}

	runes := []rune(note)
	keep := MaxConnectionNoteLength - utf8.RuneCountInString(truncationSuffix)
	return string(runes[:keep]) + truncationSuffix
}

func senderName(settings models.Settings) string {
	if settings.UserName == "" {
		return "the sender"
	}
	return settings.UserName
}

// askInstruction picks the call to action; no flags means a generic low-pressure ask
func askInstruction(prefs models.Preferences) string {
	if prefs.AskCoffeeChat {
		return "Asks for a short coffee chat (15-20 minutes, virtual is fine)"
	}
	return "Has a clear, low-pressure ask (a quick call or a piece of advice)"
}

func writeProfile(b *strings.Builder, profile models.Profile) {
	fmt.Fprintf(b, "Name: %s\n", profile.Name)
	fmt.Fprintf(b, "Headline: %s\n", profile.Headline)
	fmt.Fprintf(b, "About: %s\n", profile.About)

	if len(profile.Experiences) == 0 {
		b.WriteString("Experiences: none listed\n")
		return
	}

	b.WriteString("Experiences:\n")
	for _, exp := range profile.Experiences {
		line := exp.Title
		if exp.Company != "" {
			line += " at " + exp.Company
		}
		if exp.Duration != "" {
			line += " (" + exp.Duration + ")"
		}
		fmt.Fprintf(b, "- %s\n", line)
		if exp.Description != "" {
			fmt.Fprintf(b, "  %s\n", exp.Description)
		}
	}
}

func writeStyleRules(b *strings.Builder) {
	b.WriteString("\nCRITICAL RULES:\n")
	b.WriteString(`- NO generic openers like "I hope this email finds you well" or "I came across your profile"` + "\n")
	b.WriteString(`- NO phrases like "I was impressed by" or "Your journey is inspiring"` + "\n")
	b.WriteString(`- NO buzzwords like "leverage", "synergy", "ecosystem", "passionate about"` + "\n")
	b.WriteString("- NO exclamation points overload\n")
	b.WriteString("- Respectful but not stiff; sound like a real person, not a LinkedIn influencer\n")
	b.WriteString("- Be specific. Only mention details that are relevant to the ask\n")
}
