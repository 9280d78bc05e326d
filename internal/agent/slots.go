package agent

import (
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// Slots holds the structured parameters extracted from a message. Which
// fields are populated depends on the intent; extraction is best-effort and
// never fails, validation happens downstream.
type Slots struct {
	// CREATE
	Title   string
	DueDate *time.Time
	// DELETE / COMPLETE / UPDATE
	Reference string
	// UPDATE
	NewTitle string
}

var dateParser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// Tokens that open a date expression; everything from the first such token
// onward is handed to the natural-language date parser.
var dateKeywords = map[string]bool{
	"tomorrow": true, "today": true, "tonight": true, "next": true,
	"week": true, "month": true, "year": true,
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
	"friday": true, "saturday": true, "sunday": true,
}

var createPrefixes = []string{
	"add a task to", "add a task", "add task", "create a task", "create task",
	"new task", "remind me to", "remind me", "i need to", "i have to", "i should",
}

var firstPersonPrefixes = []string{
	"i'm", "i am", "im", "we're", "we are",
}

var deletePrefixes = []string{
	"delete the task", "delete my last task", "delete task", "remove task",
	"cancel task", "delete", "remove", "cancel", "drop", "erase",
}

var completePrefixes = []string{
	"mark as done", "mark done", "complete task", "complete", "finish",
	"done with", "check off", "mark", "finished",
}

var updatePrefixes = []string{
	"update the task", "update task", "update", "change", "modify", "edit", "rename",
}

var articles = []string{"the", "a", "an", "my"}

// Trailing completion phrases, for "mark buy milk as done" style messages.
var completeSuffixes = []string{"as done", "as complete", "as completed", "as finished", "done"}

// ExtractSlots pulls intent-specific parameters out of the message. now
// anchors relative date parsing so results are deterministic in tests.
func ExtractSlots(message string, intent Intent, now time.Time) Slots {
	message = strings.TrimSpace(message)
	switch intent {
	case IntentCreate:
		return extractCreate(message, now)
	case IntentDelete:
		return Slots{Reference: extractReference(message, deletePrefixes)}
	case IntentComplete:
		ref := extractReference(message, completePrefixes)
		return Slots{Reference: stripSuffix(ref, completeSuffixes)}
	case IntentUpdate:
		return extractUpdate(message)
	default:
		return Slots{}
	}
}

func extractCreate(message string, now time.Time) Slots {
	cleaned := stripPrefix(message, createPrefixes)

	words := strings.Fields(cleaned)
	dateIdx := -1
	for i, w := range words {
		if dateKeywords[strings.ToLower(strings.Trim(w, ".,!"))] {
			dateIdx = i
			break
		}
	}

	title := cleaned
	var due *time.Time
	if dateIdx >= 0 {
		dateStr := strings.Join(words[dateIdx:], " ")
		if parsed := parseFutureDate(dateStr, now); parsed != nil {
			due = parsed
			title = strings.Join(words[:dateIdx], " ")
		}
	}

	title = strings.TrimSpace(stripPrefix(title, firstPersonPrefixes))
	if title == "" {
		title = cleaned
	}
	return Slots{Title: title, DueDate: due}
}

func extractUpdate(message string) Slots {
	rest := stripPrefix(message, updatePrefixes)
	lower := strings.ToLower(rest)

	idx := strings.Index(lower, " to ")
	if idx < 0 {
		// No separator: reference only, composer asks for the new title.
		return Slots{Reference: stripArticles(rest)}
	}
	return Slots{
		Reference: stripArticles(strings.TrimSpace(rest[:idx])),
		NewTitle:  strings.TrimSpace(rest[idx+len(" to "):]),
	}
}

func extractReference(message string, prefixes []string) string {
	return stripArticles(stripPrefix(message, prefixes))
}

func stripArticles(s string) string {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	for _, a := range articles {
		if strings.HasPrefix(lower, a+" ") {
			return strings.TrimSpace(s[len(a)+1:])
		}
	}
	return s
}

// stripPrefix removes at most one matching prefix from the start of the
// message, case-insensitively, preserving the casing of the remainder.
func stripPrefix(s string, prefixes []string) string {
	trimmed := strings.TrimSpace(s)
	lower := strings.ToLower(trimmed)
	for _, p := range prefixes {
		if lower == p {
			return ""
		}
		if strings.HasPrefix(lower, p+" ") {
			return strings.TrimSpace(trimmed[len(p)+1:])
		}
	}
	return trimmed
}

// stripSuffix removes at most one matching suffix from the end of the
// message, case-insensitively.
func stripSuffix(s string, suffixes []string) string {
	trimmed := strings.TrimSpace(s)
	lower := strings.ToLower(trimmed)
	for _, suf := range suffixes {
		if strings.HasSuffix(lower, " "+suf) {
			return strings.TrimSpace(trimmed[:len(trimmed)-len(suf)-1])
		}
	}
	return trimmed
}

// parseFutureDate parses a natural-language date expression biased toward
// the future: a result that already passed rolls forward a day (or a week
// for weekday names).
func parseFutureDate(text string, now time.Time) *time.Time {
	r, err := dateParser.Parse(text, now)
	if err != nil || r == nil {
		return nil
	}
	t := r.Time
	if t.Before(now) {
		if weekdayRe.MatchString(strings.ToLower(text)) {
			t = t.AddDate(0, 0, 7)
		} else if now.Sub(t) > time.Minute {
			t = t.AddDate(0, 0, 1)
		}
	}
	return &t
}
