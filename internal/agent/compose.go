package agent

import (
	"fmt"
	"math/rand"
	"strings"

	"taskflow-backend/internal/types"
)

// Composer turns pipeline outcomes into user-facing reply text. It is an
// interface so tests can substitute a failing implementation and verify that
// actions survive formatting errors.
type Composer interface {
	TaskCreated(task types.TaskSnapshot) string
	TaskList(tasks []types.TaskSnapshot) string
	TaskCompleted(task types.TaskSnapshot) string
	TaskDeleted(task types.TaskSnapshot) string
	TaskUpdated(task types.TaskSnapshot) string
	Ambiguous(verb string, matches []Candidate) string
	NotFound(available []Candidate) string
	ClarifyReference(verb string) string
	ClarifyNewTitle(reference string) string
	ClarifyTitle() string
	Greeting() string
	Thanks() string
	Farewell() string
	Help() string
	UnknownCommand() string
	ToolFailure(activity string) string
	Apology() string
}

const timeLayout = "03:04 PM"

var emojiNumbers = []string{"1️⃣", "2️⃣", "3️⃣", "4️⃣", "5️⃣", "6️⃣", "7️⃣", "8️⃣", "9️⃣", "🔟"}

var greetingVariants = []string{
	"Hi there! 👋 I'm TaskFlow AI — tell me what you need to get done.",
	"Hello! 👋 How can I help with your tasks today?",
	"Hey! Ready to organize your day? Just tell me what's on your plate.",
}

var thanksVariants = []string{
	"You're welcome! 😊 Anything else I can do?",
	"My pleasure! Let me know if you need anything else.",
	"Anytime! Happy to help with your tasks.",
}

const helpText = `Here's what I can do:
• Create tasks — "add task buy milk tomorrow" or just "call mom on Friday"
• Show tasks — "show my tasks"
• Complete tasks — "mark buy milk as done"
• Update tasks — "update buy milk to buy oat milk"
• Delete tasks — "delete buy milk" (name or ID works)`

const unknownText = `I didn't quite catch that. Try one of these:
• add task buy milk tomorrow
• show my tasks
• complete buy milk
• delete buy milk`

// replyComposer is the default Composer. The random source is injected so
// variant selection is deterministic under test.
type replyComposer struct {
	rng *rand.Rand
}

func NewComposer(rng *rand.Rand) Composer {
	return &replyComposer{rng: rng}
}

func (c *replyComposer) pick(variants []string) string {
	if c.rng == nil {
		return variants[0]
	}
	return variants[c.rng.Intn(len(variants))]
}

func (c *replyComposer) TaskCreated(task types.TaskSnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ Task added!\nID: %s\nTitle: %s\nTime: %s",
		task.ShortID(), task.Title, task.CreatedAt.Format(timeLayout))
	if task.DueDate != nil {
		fmt.Fprintf(&b, "\nDue: %s", task.DueDate.Format("Mon, Jan 2"))
	}
	return b.String()
}

func (c *replyComposer) TaskList(tasks []types.TaskSnapshot) string {
	if len(tasks) == 0 {
		return "You have no tasks right now 📝"
	}
	var b strings.Builder
	b.WriteString("Here are your tasks:")
	for i, t := range tasks {
		marker := fmt.Sprintf("%d)", i+1)
		if i < len(emojiNumbers) {
			marker = emojiNumbers[i]
		}
		fmt.Fprintf(&b, "\n%s (%s) %s – %s", marker, t.ShortID(), t.Title, t.CreatedAt.Format(timeLayout))
	}
	return b.String()
}

func (c *replyComposer) TaskCompleted(task types.TaskSnapshot) string {
	return fmt.Sprintf("🎉 Awesome! Marked as done: %s (%s)", task.Title, task.ShortID())
}

func (c *replyComposer) TaskDeleted(task types.TaskSnapshot) string {
	return fmt.Sprintf("✅ Deleted: %s", task.Title)
}

func (c *replyComposer) TaskUpdated(task types.TaskSnapshot) string {
	return fmt.Sprintf("✏️ Updated! New title: %s (%s)", task.Title, task.ShortID())
}

func (c *replyComposer) Ambiguous(verb string, matches []Candidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "I found %d tasks:", len(matches))
	for i, m := range matches {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&b, "\n%d) %s (%s)", i+1, m.Title, m.ShortID())
	}
	fmt.Fprintf(&b, "\n\nWhich one should I %s?", verb)
	return b.String()
}

func (c *replyComposer) NotFound(available []Candidate) string {
	if len(available) == 0 {
		return "You don't have any tasks yet 📝"
	}
	var b strings.Builder
	b.WriteString("Task not found. Your tasks:")
	for i, t := range available {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&b, "\n• %s (%s)", t.Title, t.ShortID())
	}
	return b.String()
}

func (c *replyComposer) ClarifyReference(verb string) string {
	return fmt.Sprintf("❓ Which task would you like to %s? Please give its name or ID.", verb)
}

func (c *replyComposer) ClarifyNewTitle(reference string) string {
	return fmt.Sprintf("❓ What should %q be renamed to? Try: update %s to <new title>", reference, reference)
}

func (c *replyComposer) ClarifyTitle() string {
	return "❓ What should the task be called? Try: add task buy milk tomorrow"
}

func (c *replyComposer) Greeting() string { return c.pick(greetingVariants) }
func (c *replyComposer) Thanks() string   { return c.pick(thanksVariants) }

func (c *replyComposer) Farewell() string {
	return "Goodbye! 👋 I'll keep your tasks safe until next time."
}

func (c *replyComposer) Help() string           { return helpText }
func (c *replyComposer) UnknownCommand() string { return unknownText }

func (c *replyComposer) ToolFailure(activity string) string {
	return fmt.Sprintf("⚠️ Hmm, I couldn't %s right now. Please try again.", activity)
}

func (c *replyComposer) Apology() string {
	return "⚠️ Unable to process your request. Please try again."
}
