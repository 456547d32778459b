package commands

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/benvon/tag-catalog/internal/browser"
	"github.com/benvon/tag-catalog/internal/models"
	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
)

const descriptionWidth = 48

// syncWriter serialises writes from the browser's fetch goroutines
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// Renderer writes catalog entities to a terminal. It is the browser's
// Navigator and Notifier.
type Renderer struct {
	out      io.Writer
	explore  string
	markdown *glamour.TermRenderer

	bold    *color.Color
	faint   *color.Color
	current *color.Color
	badge   *color.Color
	warn    *color.Color
	fail    *color.Color
	ok      *color.Color
}

// NewRenderer creates a renderer writing to out. exploreBase prefixes usage links.
func NewRenderer(out io.Writer, exploreBase string, noColor bool) *Renderer {
	r := &Renderer{
		out:     &syncWriter{w: out},
		explore: strings.TrimSuffix(exploreBase, "/"),
		bold:    color.New(color.Bold),
		faint:   color.New(color.Faint),
		current: color.New(color.FgCyan, color.Bold),
		badge:   color.New(color.FgMagenta),
		warn:    color.New(color.FgYellow),
		fail:    color.New(color.FgRed),
		ok:      color.New(color.FgGreen),
	}
	style := glamour.WithAutoStyle()
	if noColor {
		for _, c := range []*color.Color{r.bold, r.faint, r.current, r.badge, r.warn, r.fail, r.ok} {
			c.DisableColor()
		}
		style = glamour.WithStandardStyle("notty")
	}
	// a renderer that fails to build falls back to raw markdown
	r.markdown, _ = glamour.NewTermRenderer(style, glamour.WithWordWrap(80))
	return r
}

func (r *Renderer) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.out, format, args...)
}

// Markdown renders a description
func (r *Renderer) Markdown(md string) {
	if strings.TrimSpace(md) == "" {
		r.printf("%s\n", r.faint.Sprint("No description"))
		return
	}
	if r.markdown != nil {
		if out, err := r.markdown.Render(md); err == nil {
			r.printf("%s", out)
			return
		}
	}
	r.printf("%s\n", md)
}

// Navigate reports a path change
func (r *Renderer) Navigate(path string) {
	if path == "" {
		r.printf("%s\n", r.faint.Sprint("-> (no classification)"))
		return
	}
	r.printf("%s\n", r.faint.Sprint("-> "+path))
}

// Notify prints a notification
func (r *Renderer) Notify(n browser.NotifyEffect) {
	r.printf("%s %s\n", r.fail.Sprint("error:"), n.Message)
}

// Warn prints a refusal that never reached the server
func (r *Renderer) Warn(msg string) {
	r.printf("%s %s\n", r.warn.Sprint("warning:"), msg)
}

// Success prints a confirmation
func (r *Renderer) Success(msg string) {
	r.printf("%s %s\n", r.ok.Sprint("ok:"), msg)
}

// Classifications prints the side list, marking the current classification
func (r *Renderer) Classifications(s browser.State) {
	if len(s.Classifications) == 0 {
		r.printf("%s\n", r.faint.Sprint("No classifications"))
		return
	}
	for _, c := range s.Classifications {
		marker, name := "  ", c.EntityName()
		if s.Current != nil && s.Current.Name == c.Name {
			marker, name = "> ", r.current.Sprint(name)
		}
		count := 0
		if c.TermCount != nil {
			count = *c.TermCount
		}
		line := marker + name + " " + r.faint.Sprintf("(%d)", count)
		if c.Disabled {
			line += " " + r.warn.Sprint("[disabled]")
		}
		r.printf("%s\n", line)
	}
}

// Classification prints the header and tag page of the current classification
func (r *Renderer) Classification(s browser.State) {
	if s.Status == browser.StatusErrored && s.Error != "" {
		r.printf("%s %s\n", r.fail.Sprint("error:"), s.Error)
	}
	c := s.Current
	if c == nil {
		r.printf("%s\n", r.faint.Sprint("No classification selected"))
		return
	}

	header := r.bold.Sprint(c.EntityName())
	if c.Provider == models.ProviderSystem {
		header += " " + r.badge.Sprint("[system]")
	}
	if c.Disabled {
		header += " " + r.warn.Sprint("[disabled]")
	}
	r.printf("%s\n", header)
	if c.DisplayName != "" && c.DisplayName != c.Name {
		r.printf("%s\n", r.faint.Sprint(c.Name))
	}
	if c.Version > 0 {
		r.printf("%s\n", r.faint.Sprintf("version %.1f", c.Version))
	}
	r.Markdown(c.Description)
	r.Tags(s)
}

// Tags prints the current tag page as a table
func (r *Renderer) Tags(s browser.State) {
	if s.TagsLoading() {
		r.printf("%s\n", r.faint.Sprint("Loading tags..."))
		return
	}
	if len(s.Tags) == 0 {
		r.printf("%s\n", r.faint.Sprint("No tags"))
		return
	}

	tw := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tDISPLAY NAME\tDESCRIPTION\tUSAGE\tSTATE\tACTION")
	for _, t := range s.Tags {
		state := "active"
		if t.Disabled {
			state = "disabled"
		}
		action := s.DisableTagTitle(t)
		if s.CanDeleteTag(t) {
			action += ", Delete"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			t.Name,
			dash(t.DisplayName),
			dash(truncate(firstLine(t.Description), descriptionWidth)),
			usage(t.UsageCount),
			state,
			action,
		)
	}
	_ = tw.Flush()

	if s.HasPagination() {
		r.printf("%s\n", r.faint.Sprintf("page %d, %d tags", s.CurrentPage, s.Paging.Total))
	}
}

// UsageLinks prints where each tag on the page is used
func (r *Renderer) UsageLinks(s browser.State) {
	for _, t := range s.Tags {
		r.printf("%s  %s\n", t.Name, r.explore+browser.UsageLink(t.FullyQualifiedName))
	}
}

// Threads prints a thread list
func (r *Renderer) Threads(threads []*models.Thread) {
	if len(threads) == 0 {
		r.printf("%s\n", r.faint.Sprint("No threads"))
		return
	}
	tw := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tTYPE\tABOUT\tBY\tPOSTS\tSTATE")
	for _, t := range threads {
		state := "open"
		if t.Resolved {
			state = "resolved"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			t.ID, t.Type, t.About, t.CreatedBy, t.PostsCount, state)
	}
	_ = tw.Flush()
}

// Thread prints one thread with its posts
func (r *Renderer) Thread(t *models.Thread) {
	r.printf("%s %s\n", r.bold.Sprint(string(t.Type)), r.faint.Sprint(t.About))
	r.printf("%s %s\n", r.current.Sprint(t.CreatedBy), r.faint.Sprint(t.ThreadTs.Format("2006-01-02 15:04")))
	r.Markdown(t.Message)
	for _, p := range t.Posts {
		r.printf("%s %s\n", r.current.Sprint(p.From), r.faint.Sprint(p.PostTs.Format("2006-01-02 15:04")))
		r.Markdown(p.Message)
	}
}

// History prints an entity's versions, newest first
func (r *Renderer) History(h *models.EntityHistory) {
	if h == nil || len(h.Versions) == 0 {
		r.printf("%s\n", r.faint.Sprint("No versions"))
		return
	}
	tw := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "VERSION\tUPDATED\tBY\tCHANGES")
	for _, v := range h.Versions {
		_, _ = fmt.Fprintf(tw, "%.1f\t%s\t%s\t%s\n",
			v.Version, v.UpdatedAt.Format("2006-01-02 15:04"), dash(v.UpdatedBy), changes(v.ChangeDescription))
	}
	_ = tw.Flush()
}

func changes(cd models.ChangeDescription) string {
	var parts []string
	for _, f := range cd.FieldsAdded {
		parts = append(parts, "+"+f.Name)
	}
	for _, f := range cd.FieldsUpdated {
		parts = append(parts, "~"+f.Name)
	}
	for _, f := range cd.FieldsDeleted {
		parts = append(parts, "-"+f.Name)
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, " ")
}

func usage(n *int) string {
	if n == nil {
		return "0"
	}
	return strconv.Itoa(*n)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
