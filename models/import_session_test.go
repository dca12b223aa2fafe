package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionSession(t *testing.T) {
	allowed := []struct{ from, to string }{
		{SessionStatusPending, SessionStatusParsing},
		{SessionStatusParsing, SessionStatusParsed},
		{SessionStatusParsed, SessionStatusAnalyzing},
		{SessionStatusAnalyzing, SessionStatusAnalyzed},
		{SessionStatusAnalyzed, SessionStatusReconciling},
		{SessionStatusAnalyzed, SessionStatusExecuting},
		{SessionStatusReconciling, SessionStatusExecuting},
		{SessionStatusExecuting, SessionStatusCompleted},
		{SessionStatusExecuting, SessionStatusFailed},
		{SessionStatusParsed, SessionStatusCancelled},
		{SessionStatusReconciling, SessionStatusFailed},
	}
	for _, tc := range allowed {
		assert.True(t, CanTransitionSession(tc.from, tc.to), "%s -> %s should be allowed", tc.from, tc.to)
	}

	denied := []struct{ from, to string }{
		{SessionStatusPending, SessionStatusParsed},
		{SessionStatusParsed, SessionStatusExecuting},
		{SessionStatusParsed, SessionStatusReconciling},
		{SessionStatusExecuting, SessionStatusCancelled},
		{SessionStatusCompleted, SessionStatusExecuting},
		{SessionStatusCompleted, SessionStatusFailed},
		{SessionStatusFailed, SessionStatusPending},
		{SessionStatusCancelled, SessionStatusParsing},
		{SessionStatusAnalyzed, SessionStatusAnalyzed},
		{"unknown", SessionStatusParsing},
	}
	for _, tc := range denied {
		assert.False(t, CanTransitionSession(tc.from, tc.to), "%s -> %s should be denied", tc.from, tc.to)
	}
}

func TestTerminalStatusesHaveNoSuccessors(t *testing.T) {
	for _, terminal := range []string{SessionStatusCompleted, SessionStatusFailed, SessionStatusCancelled} {
		for next := range sessionTransitions {
			assert.False(t, CanTransitionSession(terminal, next), "%s must be terminal", terminal)
		}
	}
}
