package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompletions struct {
	reply    string
	err      error
	captured openai.ChatCompletionNewParams
}

func (f *fakeCompletions) New(_ context.Context, body openai.ChatCompletionNewParams, _ ...option.RequestOption) (*openai.ChatCompletion, error) {
	f.captured = body
	if f.err != nil {
		return nil, f.err
	}
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: f.reply}}},
	}, nil
}

type fixedReward string

func (f fixedReward) Reward(context.Context, string) string { return string(f) }

func TestCannedMentionsTitle(t *testing.T) {
	c := NewCanned(1)
	for i := 0; i < 50; i++ {
		msg := c.Reward(context.Background(), "Read chapter 3")
		assert.Contains(t, msg, `"Read chapter 3"`)
	}
}

func TestRewardWriterUsesModel(t *testing.T) {
	fake := &fakeCompletions{reply: "  Way to go! 🎉 "}
	w := &RewardWriter{chat: fake, model: "gpt-4o-mini", fallback: fixedReward("canned"), log: zerolog.Nop()}

	got := w.Reward(context.Background(), "Essay")
	assert.Equal(t, "Way to go! 🎉", got)
	assert.Equal(t, openai.ChatModel("gpt-4o-mini"), fake.captured.Model)
	require.Len(t, fake.captured.Messages, 2)
	assert.Equal(t, int64(100), fake.captured.MaxTokens.Value)
}

func TestRewardWriterFallsBack(t *testing.T) {
	w := &RewardWriter{chat: &fakeCompletions{err: errors.New("429")}, fallback: fixedReward("canned"), log: zerolog.Nop()}
	assert.Equal(t, "canned", w.Reward(context.Background(), "Essay"))

	w.chat = &fakeCompletions{reply: "   "}
	assert.Equal(t, "canned", w.Reward(context.Background(), "Essay"))
}
