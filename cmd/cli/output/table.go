package output

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/inkdrop/inkdrop/internal/models"
	"github.com/jedib0t/go-pretty/v6/table"
)

// RenderTable prints a pretty table to w
func RenderTable(w io.Writer, headers []string, rows [][]interface{}) {
	t := table.NewWriter()
	t.SetOutputMirror(w)

	headerRow := table.Row{}
	for _, h := range headers {
		headerRow = append(headerRow, h)
	}
	t.AppendHeader(headerRow)

	for _, row := range rows {
		t.AppendRow(table.Row(row))
	}

	t.Render()
}

// PrintJSON writes v indented.
func PrintJSON(w io.Writer, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

// Posts renders one row per post.
func Posts(w io.Writer, posts []models.Post) {
	rows := make([][]interface{}, 0, len(posts))
	for _, p := range posts {
		author := ""
		if p.Author != nil {
			author = p.Author.Username
		}
		status := "draft"
		if p.IsPublished {
			status = "published"
		}
		rows = append(rows, []interface{}{p.ID, p.Slug, p.Title, author, status, formatTime(p.PublishedAt)})
	}
	RenderTable(w, []string{"ID", "Slug", "Title", "Author", "Status", "Published"}, rows)
}

// User renders a single account as a two-column table.
func User(w io.Writer, u models.UserPublic) {
	RenderTable(w, []string{"Field", "Value"}, [][]interface{}{
		{"ID", u.ID},
		{"Username", u.Username},
		{"Email", u.Email},
		{"Bio", deref(u.Bio)},
		{"Avatar", deref(u.AvatarURL)},
		{"Joined", u.CreatedAt.Format(time.RFC3339)},
	})
}

// Post renders one post's metadata followed by its content.
func Post(w io.Writer, p models.Post) {
	Posts(w, []models.Post{p})
	if p.Excerpt != nil {
		fmt.Fprintf(w, "\n%s\n", *p.Excerpt)
	}
	fmt.Fprintf(w, "\n%s\n", p.Content)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02 15:04")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
