package internal

// CreateTestTranscript creates a transcript with one user and one bot message
func CreateTestTranscript(id string) *Transcript {
	return &Transcript{
		ID:     id,
		Source: "api",
		Messages: []Message{
			{
				Actor:     "user",
				Content:   "What are the opening hours?",
				Timestamp: "2024-05-01T09:00:00Z",
			},
			{
				Actor:      "assistant",
				Content:    "We are open from 9am to 6pm.",
				Timestamp:  "2024-05-01T09:00:05Z",
				References: "hours.pdf",
			},
		},
		Metadata: Metadata{
			StartedAt:     "2024-05-01T09:00:00Z",
			EndedAt:       "2024-05-01T09:00:05Z",
			MessageCount:  2,
			HasReferences: true,
		},
	}
}

// CreateTestTranscriptWithMessages creates a transcript with custom messages
func CreateTestTranscriptWithMessages(id string, messages []Message) *Transcript {
	return &Transcript{
		ID:       id,
		Source:   "api",
		Messages: messages,
		Metadata: Metadata{
			MessageCount: len(messages),
		},
	}
}

// CreateTestSummary creates a session row
func CreateTestSummary(id, endedAt, count string) SessionSummary {
	return SessionSummary{
		ID:           id,
		StartedAt:    endedAt,
		EndedAt:      endedAt,
		MessageCount: count,
	}
}
