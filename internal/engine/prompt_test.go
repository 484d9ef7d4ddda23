package engine

import (
	"strings"
	"testing"

	"inferd/pkg/types"
)

func TestBuildChatPrompt(t *testing.T) {
	msgs := []types.ChatMessage{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "Hello"},
	}
	p := BuildChatPrompt(msgs)
	want := "<|im_start|>system\nbe brief<|im_end|>\n<|im_start|>user\nHello<|im_end|>\n<|im_start|>assistant\n"
	if p != want {
		t.Fatalf("prompt=%q", p)
	}
	if !strings.HasSuffix(p, "<|im_start|>assistant\n") {
		t.Fatalf("prompt must end with an open assistant turn")
	}
}

func TestEstimateTokens(t *testing.T) {
	if n := EstimateTokens(""); n != 0 {
		t.Fatalf("empty=%d", n)
	}
	if n := EstimateTokens("hi"); n != 1 {
		t.Fatalf("short=%d", n)
	}
	if n := EstimateTokens(strings.Repeat("a", 40)); n != 10 {
		t.Fatalf("long=%d", n)
	}
}
