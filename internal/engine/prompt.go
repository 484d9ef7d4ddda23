package engine

import (
	"strings"

	"inferd/pkg/types"
)

// ChatStopToken ends each ChatML message; generation stops when the model
// emits it.
const ChatStopToken = "<|im_end|>"

// BuildChatPrompt flattens chat messages into a ChatML prompt ending with an
// open assistant turn.
func BuildChatPrompt(msgs []types.ChatMessage) string {
	var b strings.Builder
	for _, m := range msgs {
		b.WriteString("<|im_start|>")
		b.WriteString(m.Role)
		b.WriteString("\n")
		b.WriteString(m.Content)
		b.WriteString(ChatStopToken)
		b.WriteString("\n")
	}
	b.WriteString("<|im_start|>assistant\n")
	return b.String()
}

// EstimateTokens approximates the token count of text. The binding does not
// expose the tokenizer, so usage accounting for prompts is an estimate
// (~4 chars per token for latin-heavy text, floor 1 for non-empty input).
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	n := len(text) / 4
	if n < 1 {
		n = 1
	}
	return n
}
