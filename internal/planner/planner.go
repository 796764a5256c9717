package planner

import (
	"context"
	"errors"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/linkmend/linkmend/internal/generate"
	"github.com/linkmend/linkmend/internal/resolve"
	"github.com/linkmend/linkmend/internal/vault"
)

// ErrEmptyTarget is returned when a reference names no document.
var ErrEmptyTarget = errors.New("reference has no target")

// FolderFunc is the host's choice of folder for a new note created from
// the document at contextPath ("" when there is no such document).
type FolderFunc func(contextPath string) string

// SameFolder places new notes next to the document they were linked from.
func SameFolder(contextPath string) string {
	if contextPath == "" {
		return ""
	}
	dir := path.Dir(contextPath)
	if dir == "." {
		return ""
	}
	return dir
}

// FolderPolicy selects the folder for new notes.
type FolderPolicy struct {
	// UseHostDefault defers to the Planner's FolderFunc.
	UseHostDefault bool
	// Folder is used when UseHostDefault is false; empty means vault root.
	Folder string
	// ContextPath is the document the references were found in.
	ContextPath string
}

// Draft is a planned note: where it goes and what it starts with.
type Draft struct {
	Target  string // canonical target without alias or subpath
	Path    string
	Content string

	// Generated is true when the body came from the generation service.
	Generated bool
	// GenerationErr is the recovered failure when generation was attempted
	// and the body fell back to the prompt.
	GenerationErr error
}

// Planner computes drafts. The zero value plans heading-only notes in the
// fixed folder of the policy.
type Planner struct {
	// Generator drafts bodies; nil disables generation.
	Generator generate.Generator
	// HostFolder answers host-default policies; nil means SameFolder.
	HostFolder FolderFunc
	// Now stamps generated notes; nil means time.Now.
	Now    func() time.Time
	Logger *slog.Logger
}

// Folder resolves a policy to a vault-relative folder ("" for the root).
func (p *Planner) Folder(policy FolderPolicy) string {
	folder := policy.Folder
	if policy.UseHostDefault {
		host := p.HostFolder
		if host == nil {
			host = SameFolder
		}
		folder = host(policy.ContextPath)
	}
	folder = strings.Trim(strings.TrimSpace(folder), "/")
	if folder == "." {
		return ""
	}
	return folder
}

// PathFor joins folder and target into the note path.
func PathFor(folder, target string) string {
	if folder == "" {
		return target + vault.Suffix
	}
	return folder + "/" + target + vault.Suffix
}

// Plan computes the path and initial content for a new note named by
// canonicalTarget. Generation failures never fail the plan: the draft
// then carries the prompt and a visible failure comment instead.
func (p *Planner) Plan(ctx context.Context, canonicalTarget string, policy FolderPolicy) (Draft, error) {
	target := strings.TrimSpace(resolve.Name(canonicalTarget))
	if target == "" {
		return Draft{}, ErrEmptyTarget
	}
	data := TemplateData{Target: target, Title: path.Base(target)}
	draft := Draft{
		Target: target,
		Path:   PathFor(p.Folder(policy), target),
	}

	if p.Generator == nil {
		body, err := HeadingContent(data)
		if err != nil {
			return Draft{}, err
		}
		draft.Content = body
		return draft, nil
	}

	prompt, err := Prompt(data)
	if err != nil {
		return Draft{}, err
	}
	header, err := FrontMatter(p.now())
	if err != nil {
		return Draft{}, err
	}

	start := time.Now()
	text, genErr := p.Generator.Generate(ctx, prompt)
	if genErr != nil {
		p.logger().Warn("generation failed, keeping prompt",
			"target", target, "generator", p.Generator.Name(), "error", genErr)
		draft.GenerationErr = genErr
		draft.Content = header + failureBody(prompt, genErr)
		return draft, nil
	}
	p.logger().Debug("generated note body",
		"target", target, "generator", p.Generator.Name(), "elapsed", time.Since(start))
	draft.Generated = true
	draft.Content = header + strings.TrimSpace(text) + "\n"
	return draft, nil
}

// Create writes a draft as a new document. It never overwrites.
func Create(ctx context.Context, store vault.Store, d Draft) (vault.Document, error) {
	return store.Create(ctx, d.Path, d.Content)
}

func (p *Planner) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

func (p *Planner) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return p.Logger
}
