// Package web holds the server-rendered chat page.
package web

import (
	"embed"
	"html/template"
	"net/url"

	"github.com/xiaoyuanzhu-com/project-chat/chat"
	"github.com/xiaoyuanzhu-com/project-chat/db"
	"github.com/xiaoyuanzhu-com/project-chat/status"
)

//go:embed templates/*.html
var templateFS embed.FS

// PageTemplate is the name of the full chat page
const PageTemplate = "page"

// Query is the status window state carried in the page URL
type Query struct {
	View    status.View
	Project string
	Order   status.SortOrder
}

// Values encodes the query for links and redirects
func (q Query) Values() url.Values {
	v := url.Values{}
	if q.View != "" {
		v.Set("view", string(q.View))
	}
	if q.Project != "" {
		v.Set("project", q.Project)
	}
	if q.Order != "" {
		v.Set("order", string(q.Order))
	}
	return v
}

// URL returns the page path for q
func (q Query) URL() string {
	if enc := q.Values().Encode(); enc != "" {
		return "/?" + enc
	}
	return "/"
}

// WithView returns a copy of q showing view
func (q Query) WithView(view status.View) Query {
	q.View = view
	return q
}

// Page is the data rendered by PageTemplate
type Page struct {
	Transcript  chat.Transcript
	Panel       status.Panel
	Query       Query
	StatusError string
	Notice      string
}

// dropdown pairs a selector with the text shown before anything is chosen
type dropdown struct {
	status.Selector
	Placeholder string
}

// infoPanel is the data of one collapsible panel
type infoPanel struct {
	TitleLeft  string
	TitleRight string
	Content    string
}

var funcs = template.FuncMap{
	"isUser": func(e chat.Entry) bool { return e.Role == db.RoleUser },
	"dropdown": func(sel status.Selector, placeholder string) dropdown {
		return dropdown{Selector: sel, Placeholder: placeholder}
	},
	"info": func(left, right, content string) infoPanel {
		return infoPanel{TitleLeft: left, TitleRight: right, Content: content}
	},
	"viewActions":  func() status.View { return status.ViewActions },
	"viewTimeline": func() status.View { return status.ViewTimeline },
}

// Templates parses the embedded page templates
func Templates() (*template.Template, error) {
	return template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
}
