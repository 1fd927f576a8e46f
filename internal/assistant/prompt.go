package assistant

import "strings"

const (
	maxHistory         = 10
	maxUpstreamHistory = 4

	acknowledgement = "Understood. I will only help with tasks, learning and productivity."
)

// Turn is one prior message of the conversation as the client sends it.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

var policies = map[Role]string{
	RoleIndividual: `You are the assistant of a learning and task tracking app. Help the user plan, track and improve how they complete their tasks. Be concise, supportive and practical.

Rules:
- Use only the user data below. Do not guess or bring in outside facts.
- Only talk about tasks, learning, exams, productivity and progress.
- No medical, legal, financial or personal advice.
- For unrelated questions answer: "I'm here to help with your tasks, learning and productivity. Is there something about your progress I can help with?"
- Acknowledge what was achieved, point out what was missed without judging, and suggest a next step.`,

	RoleCounselor: `You are the assistant of a counselor dashboard. Help the counselor follow their individuals' progress, spot who needs support and suggest interventions. Be professional and concise.

Rules:
- Use only the data below. Do not guess or bring in outside facts.
- Only talk about tasks, learning, exams, productivity, progress and counseling.
- No medical, legal, financial or personal advice.
- Politely refuse questions unrelated to this app.
- Prefer concrete, actionable suggestions and motivating messages the counselor can pass on.`,
}

// Prompt is everything sent upstream for one request.
type Prompt struct {
	Role        Role
	Instruction string
	History     []Turn
	Message     string
}

// Assemble joins the role policy, the rendered summary, the trailing
// history and the new message. History beyond the last maxHistory turns
// is dropped.
func Assemble(s Summary, history []Turn, message string) Prompt {
	policy, ok := policies[s.Role]
	if !ok {
		policy = policies[RoleIndividual]
	}
	return Prompt{
		Role:        s.Role,
		Instruction: policy + "\n\n" + s.Render(),
		History:     lastTurns(history, maxHistory),
		Message:     message,
	}
}

type Part struct {
	Text string `json:"text"`
}

type Content struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

func textContent(role, text string) Content {
	return Content{Role: role, Parts: []Part{{Text: text}}}
}

// Contents is the upstream conversation: instruction, a fixed model
// acknowledgement, at most maxUpstreamHistory turns and the message.
func (p Prompt) Contents() []Content {
	turns := lastTurns(p.History, maxUpstreamHistory)
	out := make([]Content, 0, len(turns)+3)
	out = append(out,
		textContent("user", p.Instruction),
		textContent("model", acknowledgement),
	)
	for _, t := range turns {
		out = append(out, textContent(upstreamRole(t.Role), t.Content))
	}
	return append(out, textContent("user", p.Message))
}

func upstreamRole(role string) string {
	if strings.EqualFold(strings.TrimSpace(role), "assistant") {
		return "model"
	}
	return "user"
}

func lastTurns(turns []Turn, n int) []Turn {
	if len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	return append([]Turn(nil), turns...)
}
