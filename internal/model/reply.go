// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"regexp"
	"strings"
)

// =============================================================================
// REPLY TEXT DERIVATION
// =============================================================================

var (
	thinkBlockRe = regexp.MustCompile(`(?is)^\s*<think>(.*?)</think>\s*`)
	imageMDRe    = regexp.MustCompile(`!\[[^\]]*\]\(([^)]+)\)`)
	bareURLRe    = regexp.MustCompile(`https?://\S+`)
	markdownRe   = regexp.MustCompile("[`*_>#-]")
	spaceRunRe   = regexp.MustCompile(`\s+`)
)

// speech synthesis is suppressed for replies starting with any of these,
// so backend failure text is never spoken aloud.
var speechSuppressPrefixes = []string{
	"model call failed",
	"image generation failed",
	"i can generate images, but image generation is currently disabled",
	"i couldn't generate that image",
	"that image size is not supported by openai",
	"openai couldn't generate that image",
}

// SplitResult is an assistant reply separated into its hidden reasoning
// segment and the visible body.
type SplitResult struct {
	Thinking    string
	VisibleText string
}

// SplitThinking splits a leading <think>...</think> block out of a reply.
// Only a block at the very start counts; if stripping it would leave nothing
// visible, the full original text stays visible.
func SplitThinking(text string) SplitResult {
	m := thinkBlockRe.FindStringSubmatch(text)
	if m == nil {
		return SplitResult{VisibleText: text}
	}
	visible := strings.TrimLeft(text[len(m[0]):], " \t\r\n")
	if visible == "" {
		visible = text
	}
	return SplitResult{
		Thinking:    strings.TrimSpace(m[1]),
		VisibleText: visible,
	}
}

// ExtractImageURL returns the target of the first markdown image reference
// in text, or "" when there is none.
func ExtractImageURL(text string) string {
	m := imageMDRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

// StripImageMarkdown removes every markdown image tag from text, alt text
// included.
func StripImageMarkdown(text string) string {
	return imageMDRe.ReplaceAllString(text, "")
}

// SpeakableText derives the text-to-speech input from a full reply: the
// thinking block, embedded images, and bare URLs are stripped, and known
// failure-message prefixes suppress synthesis entirely. An empty result
// means nothing should be spoken.
func SpeakableText(text string) string {
	visible := SplitThinking(text).VisibleText
	trimmed := strings.TrimSpace(visible)
	if trimmed == "" {
		return ""
	}
	lowered := strings.ToLower(trimmed)
	for _, prefix := range speechSuppressPrefixes {
		if strings.HasPrefix(lowered, prefix) {
			return ""
		}
	}
	out := imageMDRe.ReplaceAllString(visible, "")
	out = bareURLRe.ReplaceAllString(out, "")
	return strings.TrimSpace(out)
}

// PromptSourceText flattens a reply into plain prose for image-prompt
// drafting: thinking, images, URLs, and markdown punctuation are removed
// and whitespace is collapsed.
func PromptSourceText(text string) string {
	visible := SplitThinking(text).VisibleText
	if visible == "" {
		visible = text
	}
	out := imageMDRe.ReplaceAllString(visible, "")
	out = bareURLRe.ReplaceAllString(out, "")
	out = markdownRe.ReplaceAllString(out, " ")
	out = spaceRunRe.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}

// CompactSnippet truncates text to maxLen runes with a trailing ellipsis.
func CompactSnippet(text string, maxLen int) string {
	if text == "" {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	cut := maxLen - 1
	if cut < 0 {
		cut = 0
	}
	return strings.TrimSpace(string(runes[:cut])) + "…"
}

// styleHints maps content keywords to a visual style line for drafted
// image prompts, first match wins.
var styleHints = []struct {
	re    *regexp.Regexp
	style string
}{
	{regexp.MustCompile(`logo|brand|wordmark|icon`), "clean vector logo style"},
	{regexp.MustCompile(`anime|manga|cel shade|studio ghibli`), "anime illustration style"},
	{regexp.MustCompile(`photo|photoreal|realistic|camera|dslr|portrait`), "cinematic photorealistic style"},
	{regexp.MustCompile(`pixel|8-bit|retro game`), "retro pixel art style"},
	{regexp.MustCompile(`watercolor|oil painting|painting|sketch`), "hand-painted illustration style"},
	{regexp.MustCompile(`futuristic|cyberpunk|sci-fi|neon`), "cinematic sci-fi concept art style"},
}

// InferVisualStyle picks a rendering style for a drafted image prompt based
// on keywords in the source conversation text.
func InferVisualStyle(sourceText string) string {
	lowered := strings.ToLower(sourceText)
	for _, h := range styleHints {
		if h.re.MatchString(lowered) {
			return h.style
		}
	}
	return "high-detail digital illustration style"
}

// DraftImagePrompt builds an editable image-generation prompt from an
// assistant message and up to six preceding conversation messages.
func DraftImagePrompt(message ChatMessage, history []ChatMessage) string {
	assistantText := CompactSnippet(PromptSourceText(message.Text), 260)
	if assistantText == "" {
		return "A polished, coherent scene inspired by the current conversation."
	}

	idx := len(history) - 1
	for i, m := range history {
		if m.ID != "" && m.ID == message.ID {
			idx = i
			break
		}
	}
	start := idx - 6
	if start < 0 {
		start = 0
	}
	var recent []ChatMessage
	for _, m := range history[start:min(idx+1, len(history))] {
		if m.Role == "user" || m.Role == "assistant" {
			recent = append(recent, m)
		}
	}

	var contextLines []string
	var latestUser string
	for _, m := range recent {
		snippet := CompactSnippet(PromptSourceText(m.Text), 160)
		if snippet == "" {
			continue
		}
		who := "Assistant"
		if m.Role == "user" {
			who = "User"
			latestUser = CompactSnippet(PromptSourceText(m.Text), 180)
		}
		contextLines = append(contextLines, who+": "+snippet)
	}
	recentContext := strings.Join(contextLines, " | ")
	styleHint := InferVisualStyle(assistantText + " " + recentContext)

	lines := []string{
		styleHint + ", single cohesive composition, no text overlay, safe for work.",
		"Primary scene: " + assistantText,
	}
	if latestUser != "" {
		lines = append(lines, "Conversation intent to preserve: "+latestUser)
	}
	if recentContext != "" {
		lines = append(lines, "Context clues: "+recentContext)
	}
	return strings.Join(lines, "\n")
}
