package tasks

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog"
)

// Rewarder writes the short message shown when a task is completed.
type Rewarder interface {
	Reward(ctx context.Context, title string) string
}

var rewardTemplates = []string{
	"🎉 Nice work! %q is done. Keep it rolling!",
	"⭐ %q checked off. That is real progress!",
	"🚀 Done with %q! You are on a roll today.",
	"💪 %q complete. Every task moves you forward.",
	"🌟 %q finished. Be proud of that one!",
	"🏆 You wrapped up %q. Hold on to this momentum.",
	"✨ %q is done. Good habits are built like this.",
	"🎯 %q completed. Stay focused and keep going!",
	"🔥 You knocked out %q. Great effort!",
}

// Canned picks a random template. It never fails.
type Canned struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewCanned(seed uint64) *Canned {
	return &Canned{rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (c *Canned) Reward(_ context.Context, title string) string {
	c.mu.Lock()
	i := c.rnd.IntN(len(rewardTemplates))
	c.mu.Unlock()
	return fmt.Sprintf(rewardTemplates[i], title)
}

// completions is the part of the openai client the writer calls.
type completions interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// RewardWriter asks a chat model for the message and falls back to the
// canned templates on any failure.
type RewardWriter struct {
	chat     completions
	model    string
	fallback Rewarder
	log      zerolog.Logger
}

const rewardSystemPrompt = "You are a supportive, upbeat coach. Write a short motivational message " +
	"(at most 2 sentences) celebrating that the user finished a task. Include a relevant emoji."

func NewRewardWriter(apiKey, model string, fallback Rewarder, log zerolog.Logger, opts ...option.RequestOption) *RewardWriter {
	opts = append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, opts...)
	client := openai.NewClient(opts...)
	return &RewardWriter{
		chat:     &client.Chat.Completions,
		model:    model,
		fallback: fallback,
		log:      log,
	}
}

func (w *RewardWriter) Reward(ctx context.Context, title string) string {
	resp, err := w.chat.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(w.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(rewardSystemPrompt),
			openai.UserMessage(fmt.Sprintf("I just completed the task: %q", title)),
		},
		MaxTokens: openai.Int(100),
	})
	if err != nil {
		w.log.Warn().Err(err).Msg("reward completion failed")
		return w.fallback.Reward(ctx, title)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return w.fallback.Reward(ctx, title)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content)
}
