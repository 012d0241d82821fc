package login

import (
	"fmt"
	"net/http"
)

type PromptKind string

const (
	PromptAuthGitHub     PromptKind = "auth_github"
	PromptOrgInvite      PromptKind = "org_invite"
	PromptMismatch       PromptKind = "mismatch"
	PromptCallbackFailed PromptKind = "callback_failed"
	PromptInvalidState   PromptKind = "invalid_state"
	PromptUnknown        PromptKind = "unknown"
	PromptInviteSent     PromptKind = "invite_sent"
	PromptInviteFailed   PromptKind = "invite_failed"
)

// Link is a prompt action. A Method of POST renders as a form submit button,
// anything else as a plain link.
type Link struct {
	Href   string
	Text   string
	Method string
}

// Prompt is a user-facing instruction rendered into the page container.
type Prompt struct {
	Kind PromptKind
	Text string
	Link *Link

	// LineBreak puts the link on its own line.
	LineBreak bool
	// Alert also raises the text as a blocking browser alert.
	Alert bool
}

func authGitHubPrompt(href string) *Prompt {
	return &Prompt{
		Kind: PromptAuthGitHub,
		Text: "You have not authenticated with GitHub yet. ",
		Link: &Link{Href: href, Text: "Auth with GitHub"},
	}
}

func orgInvitePrompt(href string) *Prompt {
	return &Prompt{
		Kind: PromptOrgInvite,
		Text: "You do not appear to be a part of the Apache GitHub organization yet. " +
			"This is the first step towards getting write-access to repositories. " +
			"Click the link below to initiate an invitation",
		Link:      &Link{Href: href, Text: "Invite me to the GitHub organization!", Method: http.MethodPost},
		LineBreak: true,
	}
}

func mismatchPrompt(credentialLogin, linkedLogin string) *Prompt {
	var text string
	switch {
	case credentialLogin == "":
		text = fmt.Sprintf("Your Apache account is linked to the GitHub account %s, but you have not authed on GitHub as that account yet.", linkedLogin)
	case linkedLogin == "":
		text = fmt.Sprintf("You are authed on GitHub as %s, but this account has not been linked to your Apache account yet.", credentialLogin)
	default:
		text = fmt.Sprintf("You are authed on GitHub as %s, but your Apache account is linked to the GitHub account %s.", credentialLogin, linkedLogin)
	}
	return &Prompt{Kind: PromptMismatch, Text: text}
}

func callbackFailedPrompt() *Prompt {
	return &Prompt{Kind: PromptCallbackFailed, Text: "Something went wrong... :(", Alert: true}
}

func invalidStatePrompt(retryHref string) *Prompt {
	return &Prompt{
		Kind: PromptInvalidState,
		Text: "This sign-in attempt could not be verified. ",
		Link: &Link{Href: retryHref, Text: "Start over"},
	}
}

func unknownPrompt(retryHref string) *Prompt {
	return &Prompt{
		Kind: PromptUnknown,
		Text: "We could not reach the login service right now. ",
		Link: &Link{Href: retryHref, Text: "Try again"},
	}
}

func inviteSentPrompt(reviewURL string) *Prompt {
	return &Prompt{
		Kind: PromptInviteSent,
		Text: "An invitation has been sent to your email address. You may also review it here: ",
		Link: &Link{Href: reviewURL, Text: "Review invitation"},
	}
}

func inviteFailedPrompt() *Prompt {
	return &Prompt{Kind: PromptInviteFailed, Text: "Oops! Something went wrong, you may already have an invitation pending."}
}
