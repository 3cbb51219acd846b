package coordinator

import (
	"strings"

	"softphone-governor/pkg/constants"
)

// ReplyPolicy turns a recognized utterance into the text the bot says back.
type ReplyPolicy interface {
	Reply(utterance string) string
}

// EchoPolicy acknowledges the utterance through Template, or says Fallback
// when nothing was recognized.
type EchoPolicy struct {
	Template string
	Fallback string
}

func NewEchoPolicy(template, fallback string) EchoPolicy {
	if template == "" {
		template = constants.DefaultReplyTemplate
	}
	if fallback == "" {
		fallback = constants.DefaultReplyFallback
	}
	return EchoPolicy{Template: template, Fallback: fallback}
}

func (p EchoPolicy) Reply(utterance string) string {
	text := strings.TrimSpace(utterance)
	if text == "" {
		return p.Fallback
	}
	return strings.ReplaceAll(p.Template, constants.ReplyTextPlaceholder, text)
}
