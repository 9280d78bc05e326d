package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		message string
		want    Intent
	}{
		// Explicit commands.
		{"add task buy milk tomorrow", IntentCreate},
		{"create a task call mom", IntentCreate},
		{"remind me to water the plants", IntentCreate},
		{"show my tasks", IntentRead},
		{"list all todos", IntentRead},
		{"what are my tasks", IntentRead},
		{"delete buy milk", IntentDelete},
		{"remove the task buy milk", IntentDelete},
		{"mark buy milk as done", IntentComplete},
		{"complete buy milk", IntentComplete},
		{"finished the report task", IntentComplete},
		{"update buy milk to buy bread", IntentUpdate},
		{"rename task shopping", IntentUpdate},

		// Help outranks create even when the message mentions adding.
		{"how do I add a task", IntentHelp},
		{"what can you do", IntentHelp},

		// Chit-chat, unless task words appear.
		{"hi", IntentConversational},
		{"good morning", IntentConversational},
		{"thanks", IntentConversational},
		{"bye", IntentConversational},

		// Implicit creation from plain statements.
		{"I am going to Karachi tomorrow", IntentCreate},
		{"meeting with Sarah on Friday", IntentCreate},
		{"take out the trash", IntentCreate},

		// A bare verb is not a command.
		{"delete", IntentUnknown},
		{"", IntentUnknown},
		{"asdf qwerty", IntentUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.message))
		})
	}
}

func TestClassifyCaseInsensitive(t *testing.T) {
	assert.Equal(t, IntentRead, Classify("SHOW MY TASKS"))
	assert.Equal(t, IntentDelete, Classify("  Delete Buy Milk  "))
}

func TestClassifyQuestionNeverImplicitCreate(t *testing.T) {
	// Ends in "?", so the implicit-create fallback must not fire.
	assert.Equal(t, IntentUnknown, Classify("should we watch something later?"))
}
