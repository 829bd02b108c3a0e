package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// MemoryState mirrors the Python source's three-way recall state.
type MemoryState string

const (
	StateClear MemoryState = "clear"
	StateFuzzy MemoryState = "fuzzy"
	StateBlank MemoryState = "blank"
)

// memoryPhrases are natural filler lines for non-clear recall states,
// ported verbatim from the Python source's MEMORY_PHRASES table.
var memoryPhrases = map[MemoryState][]string{
	StateFuzzy: {
		"That rings a bell... let me think.",
		"It's on the tip of my tongue...",
		"I want to say... actually let me check.",
		"Yeah I remember something about that...",
		"Hmm, give me a sec.",
	},
	StateBlank: {
		"Not a 'where were you when' moment for me. What happened?",
		"Draw a blank on that one. Fill me in?",
		"That one didn't stick. What's the story?",
		"Not ringing any bells. Tell me more?",
	},
}

// ChatMessage is a minimal role/content pair, matching the shape every LLM
// provider in this codebase's stack accepts.
type ChatMessage struct {
	Role    string
	Content string
}

// ModelRouter is the minimal external-collaborator interface Manager needs
// for best-effort goal/fact detection — satisfied in cmd/operator by
// memoryRouterAdapter, which wraps *llmrouter.Router.
type ModelRouter interface {
	InvokeCheap(ctx context.Context, messages []ChatMessage, maxTokens int) (string, error)
}

// Manager is David's brain: people, knowledge, events, goals, unified
// behind a single recall surface (spec §4.5).
type Manager struct {
	People    *PeopleStore
	Knowledge *KnowledgeStore
	Events    *EventStore
	Goals     *GoalStore
	router    ModelRouter
	rng       *rand.Rand
}

// NewManager wires four already-open stores into a Manager. router may be
// nil — goal/fact detection degrades to a no-op, matching the Python
// source's "failures of the LLM are swallowed" policy.
func NewManager(people *PeopleStore, knowledge *KnowledgeStore, events *EventStore, goals *GoalStore, router ModelRouter) *Manager {
	return &Manager{People: people, Knowledge: knowledge, Events: events, Goals: goals, router: router, rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// StartSession decays events (once per whole day since each event's last
// decay) and prunes forgotten ones, called once per session at boot.
func (m *Manager) StartSession(ctx context.Context) error {
	if err := m.Events.DecayMemories(ctx); err != nil {
		return fmt.Errorf("start_session decay: %w", err)
	}
	if _, err := m.Events.PruneForgotten(ctx); err != nil {
		return fmt.Errorf("start_session prune: %w", err)
	}
	return nil
}

// RememberPerson records (or enriches) a person met, returning their id.
func (m *Manager) RememberPerson(ctx context.Context, name, handle, role, description, notes string) (int64, error) {
	lookup := handle
	if lookup == "" {
		lookup = name
	}
	existing, err := m.People.Find(ctx, lookup)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		p := existing[0]
		if description != "" && p.Description == "" {
			if err := m.People.Update(ctx, p.ID, description, ""); err != nil {
				return 0, err
			}
		}
		if notes != "" {
			if err := m.People.Update(ctx, p.ID, "", notes); err != nil {
				return 0, err
			}
		}
		return p.ID, nil
	}
	return m.People.Add(ctx, name, handle, role, description, notes)
}

// RecordConversation logs an interaction with a (possibly new) person.
func (m *Manager) RecordConversation(ctx context.Context, personName, summary, channel string) error {
	people, err := m.People.Find(ctx, personName)
	if err != nil {
		return err
	}
	if len(people) > 0 {
		return m.People.RecordInteraction(ctx, people[0].ID, channel)
	}
	id, err := m.People.Add(ctx, personName, "", "contact", "", "")
	if err != nil {
		return err
	}
	return m.People.RecordInteraction(ctx, id, channel)
}

// WhoIs tries to recall a person by name.
func (m *Manager) WhoIs(ctx context.Context, query string) (string, MemoryState, error) {
	context, err := m.People.GetContext(ctx, query)
	if err != nil {
		return "", StateBlank, err
	}
	if context != "" {
		return context, StateClear, nil
	}
	return "", StateBlank, nil
}

// Learn records a permanent knowledge item.
func (m *Manager) Learn(ctx context.Context, topic, content, category, source string) (int64, error) {
	return m.Knowledge.Add(ctx, category, topic, content, source)
}

// WhatIs tries to recall FLIPT knowledge by topic.
func (m *Manager) WhatIs(ctx context.Context, query string) (string, MemoryState, error) {
	context, err := m.Knowledge.GetContext(ctx, query)
	if err != nil {
		return "", StateBlank, err
	}
	if context != "" {
		return context, StateClear, nil
	}
	return "", StateBlank, nil
}

// RememberTweet stores a posted tweet as a high-significance event — his
// own output matters more than passive world news.
func (m *Manager) RememberTweet(ctx context.Context, text, context string) (int64, error) {
	title := "Tweet: " + truncateRunes(text, 50)
	summary := "Posted tweet: " + text
	if context != "" {
		summary += " | Context: " + context
	}
	url := ""
	if strings.HasPrefix(context, "http") {
		url = context
	}
	return m.Events.Add(ctx, title, summary, 7, "tweet", "david", url)
}

// RememberEvent stores a world event.
func (m *Manager) RememberEvent(ctx context.Context, title, summary string, significance int, category, source, url string) (int64, error) {
	return m.Events.Add(ctx, title, summary, significance, category, source, url)
}

// WhatHappened tries to recall an event.
func (m *Manager) WhatHappened(ctx context.Context, query string) (string, MemoryState, error) {
	context, state, err := m.Events.GetContext(ctx, query)
	return context, MemoryState(state), err
}

// Recall tries to remember something — person, knowledge, or event — and
// returns the natural phrase to accompany a non-clear result.
func (m *Manager) Recall(ctx context.Context, query string) (context string, state MemoryState, phrase string, err error) {
	var parts []string
	states := make([]MemoryState, 0, 3)

	if ctx1, s1, e := m.WhoIs(ctx, query); e == nil && ctx1 != "" {
		parts = append(parts, ctx1)
		states = append(states, s1)
	} else if e != nil {
		return "", StateBlank, "", e
	}
	if ctx2, s2, e := m.WhatIs(ctx, query); e == nil && ctx2 != "" {
		parts = append(parts, ctx2)
		states = append(states, s2)
	} else if e != nil {
		return "", StateBlank, "", e
	}
	if ctx3, s3, e := m.WhatHappened(ctx, query); e == nil && ctx3 != "" {
		parts = append(parts, ctx3)
		states = append(states, s3)
	} else if e != nil {
		return "", StateBlank, "", e
	}

	if len(parts) == 0 {
		return "", StateBlank, m.pick(StateBlank), nil
	}
	for _, s := range states {
		if s == StateClear {
			return strings.Join(parts, "\n\n"), StateClear, "", nil
		}
	}
	return strings.Join(parts, "\n\n"), StateFuzzy, m.pick(StateFuzzy), nil
}

func (m *Manager) pick(state MemoryState) string {
	options := memoryPhrases[state]
	if len(options) == 0 {
		return ""
	}
	return options[m.rng.Intn(len(options))]
}

// GetContextForResponse assembles goals, person, knowledge, and event
// context into one block suitable for prompt injection.
func (m *Manager) GetContextForResponse(ctx context.Context, message string) (string, error) {
	var parts []string

	goalCtx, err := m.Goals.GetContext(ctx)
	if err != nil {
		return "", err
	}
	if goalCtx != "" {
		parts = append(parts, goalCtx)
	}

	people, err := m.People.Find(ctx, message)
	if err != nil {
		return "", err
	}
	if len(people) > 0 {
		peopleCtx, err := m.People.GetContext(ctx, message)
		if err != nil {
			return "", err
		}
		parts = append(parts, peopleCtx)
	}

	knowledge, err := m.Knowledge.Search(ctx, message, 3)
	if err != nil {
		return "", err
	}
	if len(knowledge) > 0 {
		var b strings.Builder
		b.WriteString("**FLIPT Knowledge:**")
		for _, k := range knowledge {
			content := k.Content
			if len(content) > 100 {
				content = content[:100]
			}
			fmt.Fprintf(&b, "\n- %s: %s", k.Topic, content)
		}
		parts = append(parts, b.String())
	}

	events, state, err := m.Events.Recall(ctx, message, 0.4)
	if err != nil {
		return "", err
	}
	if len(events) > 0 && state != "blank" {
		var b strings.Builder
		b.WriteString("**Relevant events:**")
		for i, e := range events {
			if i >= 2 {
				break
			}
			summary := e.Summary
			if len(summary) > 100 {
				summary = summary[:100]
			}
			fmt.Fprintf(&b, "\n- %s: %s", e.Title, summary)
		}
		parts = append(parts, b.String())
	}

	return strings.Join(parts, "\n"), nil
}

// goalDetection is the tolerant JSON shape the classification prompt asks
// the model to return.
type goalDetection struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    int    `json:"priority"`
}

// DetectAndStoreGoal classifies message as {goal, fact, neither} via the
// model router and stores the result. Returns nil if router is unset, the
// message is too short, or classification fails — this is best-effort
// enrichment, never a hard dependency (spec §4.5).
func (m *Manager) DetectAndStoreGoal(ctx context.Context, message string) (*goalDetection, error) {
	if m.router == nil {
		return nil, nil
	}
	if len(strings.TrimSpace(message)) < 20 {
		return nil, nil
	}

	prompt := "Classify this message as one of: goal, fact, or neither.\n\n" +
		"A GOAL is something the speaker wants to achieve, build, fix, or change.\n" +
		"A FACT is a piece of knowledge, a decision, or a lesson learned.\n" +
		"NEITHER is casual conversation, questions, or greetings.\n\n" +
		"Message: " + message + "\n\n" +
		`Respond in JSON only (no markdown fences): {"type": "goal"|"fact"|"neither", "title": "short title", "description": "brief description", "priority": 1-10}`

	text, err := m.router.InvokeCheap(ctx, []ChatMessage{{Role: "user", Content: prompt}}, 200)
	if err != nil {
		return nil, nil // best-effort: swallow classification failures
	}

	text = strings.TrimSpace(text)
	text = stripCodeFences(text)
	if !strings.HasPrefix(text, "{") {
		return nil, nil
	}
	var result goalDetection
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, nil
	}

	switch result.Type {
	case "goal":
		if result.Title == "" {
			return nil, nil
		}
		id, err := m.Goals.Add(ctx, result.Title, result.Description, result.Priority, "conversation", nil)
		if err != nil {
			return nil, err
		}
		_ = id
		return &result, nil
	case "fact":
		if result.Title == "" {
			return nil, nil
		}
		if _, err := m.Knowledge.Add(ctx, "lesson", result.Title, result.Description, "conversation"); err != nil {
			return nil, err
		}
		return &result, nil
	default:
		return nil, nil
	}
}

func stripCodeFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	_, rest, found := strings.Cut(text, "\n")
	if !found {
		return text
	}
	if idx := strings.LastIndex(rest, "```"); idx >= 0 {
		rest = rest[:idx]
	}
	return strings.TrimSpace(rest)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// Summary formats the aggregate stats block the Python source's
// get_summary produces.
type Summary struct {
	People    map[string]int
	Knowledge map[string]int
	Events    map[string]float64
	Goals     map[string]int
}

// GetStats gathers stats from all four stores.
func (m *Manager) GetStats(ctx context.Context) (Summary, error) {
	var s Summary
	var err error
	if s.People, err = m.People.GetStats(ctx); err != nil {
		return s, err
	}
	if s.Knowledge, err = m.Knowledge.GetStats(ctx); err != nil {
		return s, err
	}
	if s.Events, err = m.Events.GetStats(ctx); err != nil {
		return s, err
	}
	if s.Goals, err = m.Goals.GetStats(ctx); err != nil {
		return s, err
	}
	return s, nil
}
