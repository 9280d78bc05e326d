package agent

import (
	"regexp"
	"strings"
)

// Intent is the classified purpose of a user message.
type Intent string

const (
	IntentCreate         Intent = "CREATE"
	IntentRead           Intent = "READ"
	IntentUpdate         Intent = "UPDATE"
	IntentComplete       Intent = "COMPLETE"
	IntentDelete         Intent = "DELETE"
	IntentConversational Intent = "CONVERSATIONAL"
	IntentHelp           Intent = "HELP"
	IntentUnknown        Intent = "UNKNOWN"
)

var (
	helpRe     = regexp.MustCompile(`\b(help|guide|instructions|explain|capabilities|how)\b`)
	readVerbRe = regexp.MustCompile(`\b(show|list|display|view|see|get)\b`)
	taskNounRe = regexp.MustCompile(`\b(task|tasks|todo|todos)\b`)
	deleteRe   = regexp.MustCompile(`\b(delete|remove|cancel|drop|erase)\b`)
	completeRe = regexp.MustCompile(`\b(complete|completed|finish|finished|done|mark)\b`)
	updateRe   = regexp.MustCompile(`\b(update|change|modify|edit|rename)\b`)
	weekdayRe  = regexp.MustCompile(`\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	actionRe   = regexp.MustCompile(`\b(go|get|make|do|take|bring|send|write|read|watch|play)\b`)
	greetingRe = regexp.MustCompile(`\b(hi|hello|hey|hiya|howdy|greetings|thanks|thx|appreciate|bye|goodbye)\b`)
)

var completePhrases = []string{"mark done", "mark as done", "done with", "check off", "mark it done"}

var conversationalPhrases = []string{
	"good morning", "good afternoon", "good evening",
	"what's up", "whats up", "how are you", "how r u",
	"thank you", "see you",
}

// Words that signal an actual task action; their presence disqualifies a
// message from being pure chit-chat ("thanks for adding that task").
var taskActionWords = []string{"add", "create", "task", "todo", "delete", "update", "complete"}

var createPhrases = []string{
	"add task", "add a task", "create task", "create a task", "new task",
	"remind me", "i need to", "i have to", "i should",
}

var createVocab = []string{
	"tomorrow", "today", "tonight", "meeting", "buy", "call",
	"go to", "going to", "schedule", "i will", "i'll", "next week",
	"next month", "plan",
}

// rule pairs a predicate with the intent it yields. The ladder is evaluated
// in order and the first match wins; the ordering is part of the observable
// contract, so ambiguous messages resolve predictably.
type rule struct {
	intent Intent
	match  func(m string) bool
}

var rules = []rule{
	// Help first, so "how do I add a task" doesn't become CREATE.
	{IntentHelp, func(m string) bool {
		return helpRe.MatchString(m) || strings.Contains(m, "what can you do")
	}},
	// Read needs a show-verb and a task noun; the noun alone is not enough.
	{IntentRead, func(m string) bool {
		return (readVerbRe.MatchString(m) || strings.Contains(m, "what are") || strings.Contains(m, "tell me")) &&
			taskNounRe.MatchString(m)
	}},
	// One-word "delete" is not a delete command.
	{IntentDelete, func(m string) bool {
		return deleteRe.MatchString(m) && (taskNounRe.MatchString(m) || wordCount(m) >= 2)
	}},
	{IntentComplete, func(m string) bool {
		if !completeRe.MatchString(m) && !containsAny(m, completePhrases) {
			return false
		}
		return taskNounRe.MatchString(m) || wordCount(m) <= 5
	}},
	// " to " doubles as the rename separator picked up by slot extraction.
	{IntentUpdate, func(m string) bool {
		return updateRe.MatchString(m) && (strings.Contains(m, "task") || strings.Contains(m, " to "))
	}},
	{IntentConversational, func(m string) bool {
		if !greetingRe.MatchString(m) && !containsAny(m, conversationalPhrases) {
			return false
		}
		return !containsAny(m, taskActionWords)
	}},
	{IntentCreate, func(m string) bool {
		return containsAny(m, createPhrases) || containsAny(m, createVocab) || weekdayRe.MatchString(m)
	}},
	// Fallback: a short declarative sentence with an action verb reads as a
	// task ("pick up dry cleaning"), as long as it isn't small talk.
	{IntentCreate, func(m string) bool {
		if strings.HasSuffix(m, "?") {
			return false
		}
		n := wordCount(m)
		if n < 2 || n > 15 {
			return false
		}
		if greetingRe.MatchString(m) || containsAny(m, conversationalPhrases) {
			return false
		}
		return actionRe.MatchString(m)
	}},
}

// Classify maps a raw message to an intent. Pure function of the text: it
// case-folds, trims, and walks the rule ladder in priority order.
func Classify(message string) Intent {
	m := strings.ToLower(strings.TrimSpace(message))
	if m == "" {
		return IntentUnknown
	}
	for _, r := range rules {
		if r.match(m) {
			return r.intent
		}
	}
	return IntentUnknown
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
