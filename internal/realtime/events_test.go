package realtime

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChangeEvent(t *testing.T) {
	pollID := uuid.New()

	for _, kind := range []EventKind{EventVoteInserted, EventVoteDeleted, EventPollUpdated, EventPollDeleted} {
		payload := []byte(fmt.Sprintf(`{"kind":%q,"poll_id":%q}`, kind, pollID))
		event, err := ParseChangeEvent(payload)
		require.NoError(t, err)
		assert.Equal(t, kind, event.Kind)
		assert.Equal(t, pollID, event.PollID)
	}
}

func TestParseChangeEvent_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"malformed json", `{"kind":`},
		{"unknown kind", fmt.Sprintf(`{"kind":"SOMETHING_ELSE","poll_id":%q}`, uuid.New())},
		{"missing poll id", `{"kind":"VOTE_INSERTED"}`},
		{"bad poll id", `{"kind":"VOTE_INSERTED","poll_id":"not-a-uuid"}`},
		{"empty payload", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseChangeEvent([]byte(tt.payload))
			assert.Error(t, err)
		})
	}
}
