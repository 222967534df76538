package view

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/victornm/equiz-client/internal/answer"
	"github.com/victornm/equiz-client/internal/domain"
)

const (
	SubtitleLobby           = "Waiting for quiz to start..."
	SubtitleRanking         = "Ranking"
	SubtitleFinished        = "No more questions, waiting for host to share ranking..."
	SubtitleUnknownQuestion = "Received unknown question type."
	SubtitleChooseUsername  = "Choose a username"
)

// Screen is everything visible at one moment. At most one of Table and Form is set.
type Screen struct {
	Title    string
	User     string
	Subtitle string
	Progress string
	Image    string
	Error    string
	Info     string

	LoginVisible bool

	Table *Table
	Form  answer.Form
}

type Table struct {
	Header []string
	Rows   [][]string
}

// Painter draws a screen. It is called after every change.
type Painter interface {
	Paint(s Screen)
}

type PainterFunc func(s Screen)

func (f PainterFunc) Paint(s Screen) { f(s) }

type Config struct {
	Painter Painter
}

// Renderer owns the screen. Every render replaces the main content instead of
// patching it. Methods must be called from the event loop.
type Renderer struct {
	painter Painter
	s       Screen
}

func NewRenderer(c Config) *Renderer {
	p := c.Painter
	if p == nil {
		p = PainterFunc(func(Screen) {})
	}

	return &Renderer{painter: p}
}

// Snapshot returns a copy of the current screen.
func (r *Renderer) Snapshot() Screen {
	return r.s
}

// Render draws the screen for a server event.
func (r *Renderer) Render(ctx context.Context, ev domain.ServerEvent) {
	switch ev := ev.(type) {
	case domain.Lobby:
		r.Lobby(ev)
	case domain.Question:
		r.Question(ctx, ev)
	case domain.Ranking:
		r.Ranking(ev)
	case domain.Finished:
		r.Finished()
	}
}

func (r *Renderer) Lobby(l domain.Lobby) {
	r.clearMain()
	r.s.Subtitle = SubtitleLobby

	t := &Table{Header: []string{"Users"}}
	for _, u := range l.Users {
		t.Rows = append(t.Rows, []string{u})
	}
	r.s.Table = t

	r.Repaint()
}

func (r *Renderer) Question(ctx context.Context, q domain.Question) {
	r.clearMain()
	r.s.Subtitle = q.Title
	r.s.Progress = Progress(q)
	if q.Image != "" {
		r.s.Image = q.Image
	}

	f, err := answer.NewForm(q)
	if err != nil {
		slog.WarnContext(ctx, "view: unknown question type", "question", q.Title, "type", fmt.Sprintf("%+v", q.Type))
		r.s.Subtitle = SubtitleUnknownQuestion
		r.Repaint()
		return
	}
	r.s.Form = f

	r.Repaint()
}

func (r *Renderer) Ranking(rk domain.Ranking) {
	r.clearMain()
	r.s.Subtitle = SubtitleRanking
	r.s.Progress = ""

	t := &Table{Header: []string{"#", "User", "Score"}}
	for i, sc := range rk.Scores {
		user := sc.Name
		if sc.Label != "" {
			user = fmt.Sprintf("%s (%s)", sc.Name, sc.Label)
		}
		t.Rows = append(t.Rows, []string{fmt.Sprintf("%d.", i+1), user, ScoreCell(sc, rk.MaxScore.String())})
	}
	r.s.Table = t

	r.Repaint()
}

func (r *Renderer) Finished() {
	r.clearMain()
	r.s.Subtitle = SubtitleFinished
	r.s.Progress = ""

	r.Repaint()
}

// Error replaces the error banner.
func (r *Renderer) Error(msg string) {
	r.s.Error = msg
	r.Repaint()
}

// Info replaces the info banner.
func (r *Renderer) Info(msg string) {
	r.s.Info = msg
	r.Repaint()
}

// ClearTransient empties both banners and the image region. It does not
// paint; the render that follows does.
func (r *Renderer) ClearTransient() {
	r.s.Error = ""
	r.s.Info = ""
	r.s.Image = ""
}

func (r *Renderer) SetTitle(title string) {
	r.s.Title = title
	r.Repaint()
}

// SetUser shows the username banner, or hides it for an empty name.
func (r *Renderer) SetUser(name string) {
	r.s.User = ""
	if name != "" {
		r.s.User = "Username: " + name
	}
	r.Repaint()
}

// Clear empties the quiz screen, keeping the title and banners.
func (r *Renderer) Clear() {
	r.clearMain()
	r.s.Subtitle = ""
	r.s.Progress = ""
	r.s.Image = ""
	r.Repaint()
}

func (r *Renderer) ShowLogin() {
	r.s.Subtitle = SubtitleChooseUsername
	r.s.LoginVisible = true
	r.Repaint()
}

func (r *Renderer) HideLogin() {
	r.s.LoginVisible = false
	r.Repaint()
}

// Form returns the form on screen, nil when the screen shows no question.
func (r *Renderer) Form() answer.Form {
	if r.s.Form == nil {
		return nil
	}

	return r.s.Form
}

func (r *Renderer) Repaint() {
	r.painter.Paint(r.s)
}

func (r *Renderer) clearMain() {
	r.s.Table = nil
	r.s.Form = nil
}

// Progress formats the question position as "{id+1}/{total}".
func Progress(q domain.Question) string {
	return fmt.Sprintf("%d/%d", q.ID+1, q.Total)
}

// ScoreCell formats a ranking score as "{points}/{max_score}".
func ScoreCell(sc domain.Score, maxScore string) string {
	return fmt.Sprintf("%s/%s", sc.Points.String(), maxScore)
}
