package login

import (
	"context"
	"strings"

	"github.com/jrsteele09/boxer-login/oauthflow"
	"github.com/rs/zerolog/log"
)

// Backend is the slice of the backend API the resolver needs, bound to one
// browser session.
type Backend interface {
	Preferences(ctx context.Context) (*Snapshot, error)
	CompleteOAuth(ctx context.Context, params CallbackParams) (bool, error)
	Invite(ctx context.Context) (bool, error)
}

// Flows issues and redeems anti-forgery state for OAuth redirects.
type Flows interface {
	Begin(ctx context.Context, kind oauthflow.Kind, returnURL string) (*oauthflow.Authorization, error)
	Complete(ctx context.Context, kind oauthflow.Kind, state, browserState string) (*oauthflow.State, error)
}

// Links are the local paths and external URLs prompts point at.
type Links struct {
	PagePath        string
	CompletionPath  string
	GitHubBeginPath string
	InvitePath      string
	InviteReviewURL string
}

type OutcomeKind int

const (
	OutcomeNone OutcomeKind = iota
	OutcomeRedirect
	OutcomePrompt
)

// Outcome is the single terminal action of a resolution pass.
type Outcome struct {
	Kind        OutcomeKind
	Variant     Variant
	RedirectURL string
	Prompt      *Prompt

	// State is a freshly issued anti-forgery token the caller must keep in
	// the browser until the provider calls back.
	State string
	// ClearState tells the caller to drop the stored token.
	ClearState bool
	// SignedIn reports a local session was present.
	SignedIn bool

	Err error
}

// Request is the page load being resolved.
type Request struct {
	Params CallbackParams
	// BrowserState is the token stored in the browser when the flow began.
	BrowserState string
}

type Resolver struct {
	backend Backend
	flows   Flows
	links   Links
}

func NewResolver(backend Backend, flows Flows, links Links) *Resolver {
	return &Resolver{backend: backend, flows: flows, links: links}
}

// Resolve fetches the session snapshot once and runs the guards against it in
// order. Exactly one outcome is produced.
func (r *Resolver) Resolve(ctx context.Context, req Request) Outcome {
	snapshot, err := r.backend.Preferences(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("session snapshot unavailable")
		return r.unknown(err, req.Params.IsOAuthCallback())
	}

	if req.Params.IsOAuthCallback() {
		return r.completeCallback(ctx, req)
	}

	variant := Classify(snapshot)
	outcome := Outcome{Variant: variant, SignedIn: variant != Unauthenticated}
	log.Debug().Str("variant", variant.String()).Msg("session classified")

	switch variant {
	case Unauthenticated:
		return r.beginFlow(ctx, oauthflow.KindPrimary, r.links.CompletionPath, outcome)
	case AuthenticatedUnlinked:
		outcome.Kind = OutcomePrompt
		outcome.Prompt = authGitHubPrompt(r.links.GitHubBeginPath)
	case AuthenticatedPendingInvite:
		outcome.Kind = OutcomePrompt
		outcome.Prompt = orgInvitePrompt(r.links.InvitePath)
	case AuthenticatedMismatched:
		outcome.Kind = OutcomePrompt
		outcome.Prompt = mismatchPrompt(snapshot.credentialLogin(), snapshot.linkedLogin())
	default:
		outcome.Kind = OutcomeNone
	}
	return outcome
}

// BeginGitHub starts the GitHub OAuth redirect offered by the unlinked prompt.
func (r *Resolver) BeginGitHub(ctx context.Context, returnURL string) Outcome {
	if !isLocalPath(returnURL) {
		returnURL = r.links.CompletionPath
	}
	return r.beginFlow(ctx, oauthflow.KindGitHub, returnURL, Outcome{Variant: AuthenticatedUnlinked, SignedIn: true})
}

// Invite asks the backend for an organization invitation.
func (r *Resolver) Invite(ctx context.Context) Outcome {
	okay, err := r.backend.Invite(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("invite request failed")
		return r.unknown(err, false)
	}

	outcome := Outcome{Kind: OutcomePrompt, Variant: AuthenticatedPendingInvite, SignedIn: true}
	if okay {
		outcome.Prompt = inviteSentPrompt(r.links.InviteReviewURL)
	} else {
		outcome.Prompt = inviteFailedPrompt()
	}
	return outcome
}

func (r *Resolver) completeCallback(ctx context.Context, req Request) Outcome {
	outcome := Outcome{Kind: OutcomePrompt, ClearState: true}
	kind := oauthflow.KindFromKey(req.Params.Key())

	state, err := r.flows.Complete(ctx, kind, req.Params.State(), req.BrowserState)
	if err != nil {
		log.Warn().Err(err).Str("kind", string(kind)).Msg("rejected oauth callback")
		outcome.Prompt = invalidStatePrompt(r.links.PagePath)
		outcome.Err = err
		return outcome
	}

	if providerErr := req.Params.ProviderError(); providerErr != "" {
		log.Info().Str("error", providerErr).Str("kind", string(kind)).Msg("provider denied authorization")
		outcome.Prompt = callbackFailedPrompt()
		return outcome
	}

	okay, err := r.backend.CompleteOAuth(ctx, req.Params)
	if err != nil {
		log.Warn().Err(err).Msg("oauth completion failed")
		return r.unknown(err, true)
	}
	if !okay {
		outcome.Prompt = callbackFailedPrompt()
		return outcome
	}

	redirect := r.links.CompletionPath
	if isLocalPath(state.ReturnURL) {
		redirect = state.ReturnURL
	}
	return Outcome{Kind: OutcomeRedirect, RedirectURL: redirect, ClearState: true, SignedIn: true}
}

func (r *Resolver) beginFlow(ctx context.Context, kind oauthflow.Kind, returnURL string, outcome Outcome) Outcome {
	authz, err := r.flows.Begin(ctx, kind, returnURL)
	if err != nil {
		log.Error().Err(err).Str("kind", string(kind)).Msg("failed to begin oauth flow")
		return r.unknown(err, false)
	}
	outcome.Kind = OutcomeRedirect
	outcome.RedirectURL = authz.URL
	outcome.State = authz.State
	return outcome
}

func (r *Resolver) unknown(err error, clearState bool) Outcome {
	return Outcome{Kind: OutcomePrompt, Prompt: unknownPrompt(r.links.PagePath), ClearState: clearState, Err: err}
}

// isLocalPath rejects anything that could send the browser off-site.
func isLocalPath(p string) bool {
	return strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//") && !strings.HasPrefix(p, "/\\")
}
