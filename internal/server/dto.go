package server

import (
	"time"

	"github.com/memoroo/memoroo/internal/retrieval"
	"github.com/memoroo/memoroo/pkg/memory"
)

// Wire representations. Owner ids never appear on the wire: ownership is
// implied by the authenticated token, and echoing it back would only invite
// clients to trust a field the server ignores on input.

type unitJSON struct {
	ID             string    `json:"id"`
	SourceType     string    `json:"source_type"`
	Title          string    `json:"title,omitempty"`
	Content        string    `json:"content"`
	Tags           []string  `json:"tags,omitempty"`
	EmbeddingModel string    `json:"embedding_model,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toUnitJSON(u memory.MemoryUnit) unitJSON {
	return unitJSON{
		ID:             u.ID,
		SourceType:     string(u.SourceType),
		Title:          u.Title,
		Content:        u.Content,
		Tags:           u.Tags,
		EmbeddingModel: u.EmbeddingModel,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

func toUnitListJSON(units []memory.MemoryUnit) []unitJSON {
	out := make([]unitJSON, len(units))
	for i, u := range units {
		out[i] = toUnitJSON(u)
	}
	return out
}

type searchResultJSON struct {
	Unit  unitJSON `json:"unit"`
	Score float64  `json:"score"`
}

type conversationJSON struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toConversationJSON(c memory.Conversation) conversationJSON {
	return conversationJSON{
		ID:        c.ID,
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

type messageJSON struct {
	ID               string    `json:"id"`
	ConversationID   string    `json:"conversation_id"`
	Role             string    `json:"role"`
	Content          string    `json:"content"`
	Timestamp        time.Time `json:"timestamp"`
	RelatedMemoryIDs []string  `json:"related_memory_ids,omitempty"`
	Action           string    `json:"action,omitempty"`
	MoodContext      string    `json:"mood_context,omitempty"`
}

func toMessageJSON(m memory.ChatMessage) messageJSON {
	return messageJSON{
		ID:               m.ID,
		ConversationID:   m.ConversationID,
		Role:             string(m.Role),
		Content:          m.Content,
		Timestamp:        m.Timestamp,
		RelatedMemoryIDs: m.RelatedMemoryIDs,
		Action:           m.Action,
		MoodContext:      m.MoodContext,
	}
}

type edgeJSON struct {
	SourceID  string    `json:"source_id"`
	TargetID  string    `json:"target_id"`
	RelType   string    `json:"rel_type"`
	CreatedAt time.Time `json:"created_at"`
}

func toEdgeJSON(e memory.Edge) edgeJSON {
	return edgeJSON{
		SourceID:  e.SourceID,
		TargetID:  e.TargetID,
		RelType:   e.RelType,
		CreatedAt: e.CreatedAt,
	}
}

type moodLogJSON struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Score     int       `json:"score,omitempty"`
	Note      string    `json:"note,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func toMoodLogJSON(m memory.MoodLog) moodLogJSON {
	return moodLogJSON{
		ID:        m.ID,
		Label:     m.Label,
		Score:     m.Score,
		Note:      m.Note,
		Timestamp: m.Timestamp,
	}
}

type timelineEventJSON struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

func toTimelineEventJSON(ev memory.TimelineEvent) timelineEventJSON {
	return timelineEventJSON{
		ID:          ev.ID,
		Title:       ev.Title,
		Description: ev.Description,
		Timestamp:   ev.Timestamp,
	}
}

type habitJSON struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Frequency   string     `json:"frequency"`
	Streak      int        `json:"streak"`
	LastCheckIn *time.Time `json:"last_check_in,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toHabitJSON(h memory.Habit) habitJSON {
	out := habitJSON{
		ID:        h.ID,
		Name:      h.Name,
		Frequency: h.Frequency,
		Streak:    h.Streak,
		CreatedAt: h.CreatedAt,
	}
	if !h.LastCheckIn.IsZero() {
		t := h.LastCheckIn
		out.LastCheckIn = &t
	}
	return out
}

type userJSON struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func toUserJSON(u memory.User) userJSON {
	return userJSON{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		CreatedAt:   u.CreatedAt,
	}
}

func toSearchResultsJSON(results []retrieval.Result) []searchResultJSON {
	out := make([]searchResultJSON, len(results))
	for i, res := range results {
		out[i] = searchResultJSON{Unit: toUnitJSON(res.Unit), Score: res.Score}
	}
	return out
}
