package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/benvon/tag-catalog/internal/browser"
	"github.com/benvon/tag-catalog/internal/catalog"
	"github.com/benvon/tag-catalog/internal/models"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const browseHelp = `Commands:
  ls                          list classifications
  cd <name>                   select a classification
  show                        show the current classification and its tags
  next | prev                 page through tags
  usage                       show where the tags on this page are used
  new <name> [description]    create a classification
  rename <name>               rename the current classification
  describe <markdown>         replace the current description
  toggle                      enable or disable the current classification
  rm                          delete the current classification
  tag-add <name> [description]
  tag-describe <name> <markdown>
  tag-toggle <name>
  tag-rm <name>
  history [tag <name>]        show version history
  help
  quit`

// permissionLister is implemented by clients that can report global permissions
type permissionLister interface {
	ListPermissions(ctx context.Context) ([]models.ResourcePermission, error)
}

// NewBrowseCmd creates the interactive classification browser
func NewBrowseCmd(g *Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "browse [classification]",
		Short: "Browse and edit classifications interactively",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, cfg, err := g.Client(ctx)
			if err != nil {
				return err
			}
			start := ""
			if len(args) == 1 {
				start = args[0]
			}
			render := g.Renderer(cmd.OutOrStdout(), cfg.CatalogURL)
			session := NewSession(ctx, client, cfg.PageSize, render, cmd.InOrStdin(), g.Logger())
			return session.Run(start)
		},
	}
}

// Session is one interactive browse session over a browser.Runner
type Session struct {
	ctx    context.Context
	svc    catalog.Service
	runner *browser.Runner
	render *Renderer
	in     *bufio.Scanner
	logger *zap.Logger
}

// NewSession creates a session. When svc can list global permissions they
// seed the browser; otherwise create actions are hidden.
func NewSession(ctx context.Context, svc catalog.Service, pageSize int, render *Renderer, in io.Reader, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := browser.Options{PageSize: pageSize}
	if lister, ok := svc.(permissionLister); ok {
		perms, err := lister.ListPermissions(ctx)
		if err != nil {
			logger.Warn("failed_to_load_permissions", zap.Error(err))
		}
		opts.Permissions = perms
	}
	return &Session{
		ctx:    ctx,
		svc:    svc,
		runner: browser.NewRunner(ctx, svc, browser.New(opts), render, render, logger),
		render: render,
		in:     bufio.NewScanner(in),
		logger: logger,
	}
}

// State returns the browser state once in-flight requests have settled
func (s *Session) State() browser.State {
	s.runner.Wait()
	return s.runner.State()
}

func (s *Session) dispatch(cmd browser.Command) browser.State {
	s.runner.Dispatch(cmd)
	return s.State()
}

// Run opens the browser at start and reads commands until EOF or quit
func (s *Session) Run(start string) error {
	s.Open(start)
	for {
		s.render.printf("tagctl> ")
		if !s.in.Scan() {
			s.render.printf("\n")
			return s.in.Err()
		}
		if quit := s.Exec(s.in.Text()); quit {
			return nil
		}
	}
}

// Open loads the classification list and selects start, or the first classification
func (s *Session) Open(start string) {
	name := start
	if n, ok := browser.ParseClassificationPath(start); ok {
		name = browser.RouteName(n)
	}
	st := s.dispatch(func(b browser.State) (browser.State, []browser.Effect) { return b.Open(name) })
	s.render.Classifications(st)
	s.render.Classification(st)
}

// Exec runs one command line and reports whether the session should end
func (s *Session) Exec(line string) bool {
	args := splitArgs(line)
	if len(args) == 0 {
		return false
	}
	verb, args := strings.ToLower(args[0]), args[1:]
	rest := strings.Join(args, " ")
	st := s.State()

	switch verb {
	case "quit", "exit", "q":
		return true
	case "help", "?":
		s.render.printf("%s\n", browseHelp)
	case "ls":
		s.render.Classifications(st)
	case "cd", "select":
		if len(args) != 1 {
			s.render.Warn("usage: cd <name>")
			return false
		}
		st = s.dispatch(func(b browser.State) (browser.State, []browser.Effect) {
			return b.SelectClassification(browser.RouteName(args[0]))
		})
		s.render.Classification(st)
	case "show":
		s.render.Classification(st)
	case "next", "prev":
		dir, page := browser.CursorAfter, st.CurrentPage+1
		if verb == "prev" {
			dir, page = browser.CursorBefore, st.CurrentPage-1
		}
		next := s.dispatch(func(b browser.State) (browser.State, []browser.Effect) { return b.ChangePage(dir, page) })
		if next.CurrentPage == st.CurrentPage {
			s.render.Warn("no " + verb + " page")
			return false
		}
		s.render.Tags(next)
	case "usage":
		s.render.UsageLinks(st)
	case "new":
		s.createClassification(st, args)
	case "rename":
		if !s.selected(st) || !s.allowed(st.CanEditClassification()) {
			return false
		}
		s.dispatch(browser.State.StartRename)
		st = s.dispatch(func(b browser.State) (browser.State, []browser.Effect) { return b.RenameClassification(rest) })
		if st.Renaming {
			s.dispatch(browser.State.CancelRename)
			return false
		}
		s.render.Classification(st)
	case "describe":
		if !s.selected(st) || !s.allowed(st.CanEditClassification()) {
			return false
		}
		s.dispatch(browser.State.StartEditDescription)
		st = s.dispatch(func(b browser.State) (browser.State, []browser.Effect) { return b.UpdateDescription(rest) })
		if st.EditingDescription {
			s.dispatch(browser.State.CancelEditDescription)
			return false
		}
		s.render.Markdown(st.Current.Description)
	case "toggle":
		if !s.selected(st) || !s.allowed(st.CanEditClassification()) {
			return false
		}
		st = s.dispatch(browser.State.ToggleClassificationDisabled)
		s.render.Classification(st)
	case "rm":
		if !s.selected(st) || !s.allowed(st.CanDeleteClassification()) {
			return false
		}
		s.confirmDelete(browser.ClassificationTarget(st.Current))
	case "tag-add":
		s.createTag(st, args)
	case "tag-describe", "tag-toggle", "tag-rm":
		s.tagCommand(st, verb, args)
	case "history":
		s.history(st, args)
	default:
		s.render.Warn(fmt.Sprintf("unknown command %q, try help", verb))
	}
	return false
}

func (s *Session) selected(st browser.State) bool {
	if st.Current == nil {
		s.render.Warn("no classification selected")
		return false
	}
	return true
}

func (s *Session) allowed(ok bool) bool {
	if !ok {
		s.render.Warn(s.runner.State().Messages().Text(browser.MsgNoPermission))
	}
	return ok
}

func (s *Session) createClassification(st browser.State, args []string) {
	if len(args) == 0 {
		s.render.Warn("usage: new <name> [description]")
		return
	}
	if !s.allowed(st.CanCreateClassification()) {
		return
	}
	input := models.CreateClassification{Name: args[0], Description: strings.Join(args[1:], " ")}
	s.dispatch(browser.State.ToggleAddClassification)
	st = s.dispatch(func(b browser.State) (browser.State, []browser.Effect) { return b.CreateClassification(input) })
	if st.AddingClassification {
		s.dispatch(browser.State.ToggleAddClassification)
		return
	}
	s.render.Classifications(st)
	s.render.Classification(st)
}

func (s *Session) createTag(st browser.State, args []string) {
	if len(args) == 0 {
		s.render.Warn("usage: tag-add <name> [description]")
		return
	}
	if !s.allowed(st.CanCreateTag()) {
		return
	}
	input := models.CreateTag{Name: args[0], Description: strings.Join(args[1:], " ")}
	s.dispatch(func(b browser.State) (browser.State, []browser.Effect) { return b.OpenTagModal(nil) })
	st = s.dispatch(func(b browser.State) (browser.State, []browser.Effect) { return b.CreateTag(input) })
	if st.TagModal {
		s.dispatch(browser.State.CloseTagModal)
		return
	}
	s.render.Tags(st)
}

func (s *Session) tagCommand(st browser.State, verb string, args []string) {
	if len(args) == 0 {
		s.render.Warn("usage: " + verb + " <name>")
		return
	}
	tag := findTag(st.Tags, args[0])
	if tag == nil {
		s.render.Warn(fmt.Sprintf("no tag %q on this page", args[0]))
		return
	}

	switch verb {
	case "tag-describe":
		if !s.allowed(st.CanEditTags()) {
			return
		}
		proposed := tag.Clone()
		proposed.Description = strings.Join(args[1:], " ")
		s.dispatch(func(b browser.State) (browser.State, []browser.Effect) { return b.OpenTagModal(tag) })
		st = s.dispatch(func(b browser.State) (browser.State, []browser.Effect) { return b.UpdateTag(proposed) })
		if st.TagModal {
			s.dispatch(browser.State.CloseTagModal)
			return
		}
	case "tag-toggle":
		if !s.allowed(st.CanEditTags()) {
			return
		}
		st = s.dispatch(func(b browser.State) (browser.State, []browser.Effect) { return b.ToggleTagDisabled(tag) })
	case "tag-rm":
		if !s.allowed(st.CanDeleteTag(tag)) {
			return
		}
		s.confirmDelete(browser.TagTarget(tag))
		return
	}
	s.render.Tags(st)
}

// confirmDelete asks on the session input before deleting target
func (s *Session) confirmDelete(target browser.DeleteTarget) {
	s.dispatch(func(b browser.State) (browser.State, []browser.Effect) { return b.RequestDelete(target) })
	kind := "tag"
	if target.IsClassification {
		kind = "classification"
	}
	s.render.printf("Delete %s %q? [y/N] ", kind, target.Name)
	answer := ""
	if s.in.Scan() {
		answer = strings.ToLower(strings.TrimSpace(s.in.Text()))
	}
	if answer != "y" && answer != "yes" {
		s.dispatch(browser.State.CancelDelete)
		return
	}
	st := s.dispatch(browser.State.ConfirmDelete)
	if target.IsClassification {
		s.render.Classifications(st)
		return
	}
	s.render.Tags(st)
}

func (s *Session) history(st browser.State, args []string) {
	hist, ok := s.svc.(catalog.History)
	if !ok {
		s.render.Warn("version history is not available")
		return
	}
	if !s.selected(st) {
		return
	}
	resource, id := models.ResourceClassification, st.Current.ID
	if len(args) == 2 && args[0] == "tag" {
		tag := findTag(st.Tags, args[1])
		if tag == nil {
			s.render.Warn(fmt.Sprintf("no tag %q on this page", args[1]))
			return
		}
		resource, id = models.ResourceTag, tag.ID
	}
	h, err := hist.ListVersions(s.ctx, resource, id)
	if err != nil {
		s.render.Notify(browser.NotifyEffect{Kind: browser.FetchFailed, Message: err.Error()})
		return
	}
	s.render.History(h)
}

func findTag(tags []*models.Tag, name string) *models.Tag {
	for _, t := range tags {
		if t.Name == name || t.FullyQualifiedName == name {
			return t
		}
	}
	return nil
}

// splitArgs splits a command line on spaces, keeping double-quoted runs together
func splitArgs(line string) []string {
	var (
		args    []string
		cur     strings.Builder
		quoted  bool
		started bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
			started = true
		case r == ' ' && !quoted:
			if started {
				args = append(args, cur.String())
				cur.Reset()
				started = false
			}
		default:
			cur.WriteRune(r)
			started = true
		}
	}
	if started {
		args = append(args, cur.String())
	}
	return args
}
