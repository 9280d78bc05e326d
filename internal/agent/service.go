// Package agent implements the conversational pipeline behind the chat
// endpoint: classify the message, extract slots, resolve task references,
// call the mutation tool set, and compose a reply. The pipeline is stateless
// per turn; all context comes from the conversation store.
package agent

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"

	"taskflow-backend/internal/store"
	"taskflow-backend/internal/tools"
	"taskflow-backend/internal/types"
)

// FallbackClassifier gets a shot at messages the rule ladder could not
// place. Implementations must not fail: on any internal error they return
// IntentUnknown.
type FallbackClassifier interface {
	Classify(ctx context.Context, history []store.Message, message string) Intent
}

// Service runs one chat turn end to end.
type Service struct {
	tools    tools.Toolset
	conv     store.Conversations
	composer Composer
	fallback FallbackClassifier
	log      *zap.Logger
	now      func() time.Time
}

type Option func(*Service)

// WithComposer overrides the default reply composer.
func WithComposer(c Composer) Option {
	return func(s *Service) { s.composer = c }
}

// WithFallback installs an LLM classifier for messages the rules miss.
func WithFallback(f FallbackClassifier) Option {
	return func(s *Service) { s.fallback = f }
}

// WithClock fixes the time source for deterministic date extraction.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(ts tools.Toolset, conv store.Conversations, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		tools:    ts,
		conv:     conv,
		composer: NewComposer(rand.New(rand.NewSource(time.Now().UnixNano()))),
		log:      log,
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// HandleMessage processes one user message and returns the reply plus any
// actions performed. It never returns an error: every failure mode degrades
// to an apologetic reply so the chat endpoint can always answer 200.
func (s *Service) HandleMessage(ctx context.Context, userID, message string) (resp types.ChatResponse) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("chat turn panicked", zap.Any("panic", r), zap.String("user_id", userID))
			resp = types.ChatResponse{Response: s.composer.Apology(), Actions: []types.Action{}}
		}
	}()

	message = strings.TrimSpace(message)

	conv, err := s.conv.GetOrCreate(ctx, userID)
	if err != nil {
		s.log.Error("failed to load conversation", zap.Error(err), zap.String("user_id", userID))
		return types.ChatResponse{Response: s.composer.Apology(), Actions: []types.Action{}}
	}
	if _, err := s.conv.Append(ctx, conv.ID, types.RoleUser, message); err != nil {
		// History is best-effort; the turn still runs.
		s.log.Warn("failed to store user message", zap.Error(err))
	}
	history, err := s.conv.Recent(ctx, conv.ID, store.DefaultContextLimit)
	if err != nil {
		s.log.Warn("failed to load history", zap.Error(err))
	}

	intent := Classify(message)
	if intent == IntentUnknown && s.fallback != nil {
		intent = s.fallback.Classify(ctx, history, message)
	}
	slots := ExtractSlots(message, intent, s.now())

	reply, actions := s.dispatch(ctx, userID, intent, slots, message)
	if actions == nil {
		actions = []types.Action{}
	}

	if _, err := s.conv.Append(ctx, conv.ID, types.RoleAgent, reply); err != nil {
		s.log.Warn("failed to store agent reply", zap.Error(err))
	}
	return types.ChatResponse{Response: reply, Actions: actions}
}

func (s *Service) dispatch(ctx context.Context, userID string, intent Intent, slots Slots, message string) (string, []types.Action) {
	switch intent {
	case IntentCreate:
		return s.handleCreate(ctx, userID, slots)
	case IntentRead:
		return s.handleRead(ctx, userID)
	case IntentDelete:
		return s.handleDelete(ctx, userID, slots)
	case IntentComplete:
		return s.handleComplete(ctx, userID, slots)
	case IntentUpdate:
		return s.handleUpdate(ctx, userID, slots)
	case IntentConversational:
		return s.handleConversational(message), nil
	case IntentHelp:
		return s.composer.Help(), nil
	default:
		return s.composer.UnknownCommand(), nil
	}
}

func (s *Service) handleCreate(ctx context.Context, userID string, slots Slots) (string, []types.Action) {
	if slots.Title == "" {
		return s.composer.ClarifyTitle(), nil
	}
	task, err := s.tools.AddTask(ctx, userID, tools.AddTaskInput{Title: slots.Title, DueDate: slots.DueDate})
	if err != nil {
		return s.toolError(err, "add that task"), nil
	}
	actions := []types.Action{{Type: types.ActionTaskCreated, Data: task}}
	return s.safeReply(actions, func() string { return s.composer.TaskCreated(task) }), actions
}

func (s *Service) handleRead(ctx context.Context, userID string) (string, []types.Action) {
	list, err := s.tools.ListTasks(ctx, userID, tools.ListFilter{Limit: store.DefaultContextLimit})
	if err != nil {
		return s.toolError(err, "fetch your tasks"), nil
	}
	actions := []types.Action{{Type: types.ActionTasksListed, Data: list}}
	return s.safeReply(actions, func() string { return s.composer.TaskList(list.Tasks) }), actions
}

func (s *Service) handleDelete(ctx context.Context, userID string, slots Slots) (string, []types.Action) {
	target, reply, ok := s.resolveTarget(ctx, userID, slots.Reference, "delete")
	if !ok {
		return reply, nil
	}
	task, err := s.tools.DeleteTask(ctx, target.ID, userID)
	if err != nil {
		return s.toolError(err, "delete that task"), nil
	}
	actions := []types.Action{{Type: types.ActionTaskDeleted, Data: task}}
	return s.safeReply(actions, func() string { return s.composer.TaskDeleted(task) }), actions
}

func (s *Service) handleComplete(ctx context.Context, userID string, slots Slots) (string, []types.Action) {
	target, reply, ok := s.resolveTarget(ctx, userID, slots.Reference, "complete")
	if !ok {
		return reply, nil
	}
	task, err := s.tools.CompleteTask(ctx, target.ID, userID)
	if err != nil {
		return s.toolError(err, "complete that task"), nil
	}
	actions := []types.Action{{Type: types.ActionTaskCompleted, Data: task}}
	return s.safeReply(actions, func() string { return s.composer.TaskCompleted(task) }), actions
}

func (s *Service) handleUpdate(ctx context.Context, userID string, slots Slots) (string, []types.Action) {
	target, reply, ok := s.resolveTarget(ctx, userID, slots.Reference, "update")
	if !ok {
		return reply, nil
	}
	if slots.NewTitle == "" {
		return s.composer.ClarifyNewTitle(target.Title), nil
	}
	task, err := s.tools.UpdateTask(ctx, target.ID, userID, types.UpdateTaskRequest{Title: &slots.NewTitle})
	if err != nil {
		return s.toolError(err, "update that task"), nil
	}
	actions := []types.Action{{Type: types.ActionTaskUpdated, Data: task}}
	return s.safeReply(actions, func() string { return s.composer.TaskUpdated(task) }), actions
}

// resolveTarget turns a textual reference into exactly one task. ok is false
// when the turn should end with the returned clarification reply instead of
// a tool call.
func (s *Service) resolveTarget(ctx context.Context, userID, reference, verb string) (Candidate, string, bool) {
	if reference == "" {
		return Candidate{}, s.composer.ClarifyReference(verb), false
	}
	list, err := s.tools.ListTasks(ctx, userID, tools.ListFilter{Limit: store.DefaultContextLimit})
	if err != nil {
		return Candidate{}, s.toolError(err, "look up your tasks"), false
	}
	candidates := candidatesOf(list.Tasks)
	matches := Resolve(reference, candidates)
	switch len(matches) {
	case 0:
		return Candidate{}, s.composer.NotFound(candidates), false
	case 1:
		return matches[0], "", true
	default:
		return Candidate{}, s.composer.Ambiguous(verb, matches), false
	}
}

func (s *Service) handleConversational(message string) string {
	m := strings.ToLower(message)
	switch {
	case strings.Contains(m, "thank") || strings.Contains(m, "thx") || strings.Contains(m, "appreciate"):
		return s.composer.Thanks()
	case strings.Contains(m, "bye") || strings.Contains(m, "see you"):
		return s.composer.Farewell()
	default:
		return s.composer.Greeting()
	}
}

// safeReply formats the reply after the actions have already been recorded,
// so a formatting panic degrades the text without losing the mutation.
func (s *Service) safeReply(actions []types.Action, format func() string) (reply string) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("reply formatting failed", zap.Any("panic", r), zap.Int("actions", len(actions)))
			reply = "Done! Your tasks are up to date."
		}
	}()
	return format()
}

func (s *Service) toolError(err error, activity string) string {
	s.log.Error("tool call failed", zap.Error(err))
	if tools.IsCode(err, tools.CodeInvalidInput) {
		return s.composer.ClarifyTitle()
	}
	return s.composer.ToolFailure(activity)
}

func candidatesOf(tasks []types.TaskSnapshot) []Candidate {
	out := make([]Candidate, len(tasks))
	for i, t := range tasks {
		out[i] = Candidate{ID: t.ID, Title: t.Title, IsCompleted: t.IsCompleted}
	}
	return out
}
