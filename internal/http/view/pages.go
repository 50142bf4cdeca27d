package view

import (
	"bytes"
	"html/template"
)

// PasswordPageData feeds the password prompt shown for protected codes.
type PasswordPageData struct {
	Code  string
	Name  string
	Error string
}

// StatusPageData feeds the page shown when a code cannot be followed.
type StatusPageData struct {
	Title   string
	Message string
	Detail  string
}

const layout = `
{{define "layout"}}<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="utf-8" />
	<meta name="viewport" content="width=device-width, initial-scale=1" />
	<meta name="robots" content="noindex" />
	<title>{{template "title" .}}</title>
	<style>
		:root {
			--bg: #090a0f;
			--card: rgba(255, 255, 255, 0.05);
			--border: rgba(255, 255, 255, 0.15);
			--text: #e7ecff;
			--muted: #a1acc5;
			--accent: #7dd3fc;
			--accent-strong: #38bdf8;
			--danger: #fca5a5;
			font-family: "Inter", -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif;
		}
		* { box-sizing: border-box; }
		body {
			margin: 0;
			min-height: 100vh;
			display: flex;
			align-items: center;
			justify-content: center;
			background: radial-gradient(circle at 20% 20%, #111827, #030712 60%);
			color: var(--text);
		}
		.card {
			background: var(--card);
			border: 1px solid var(--border);
			border-radius: 18px;
			padding: 32px;
			width: min(440px, 92vw);
			box-shadow: 0 45px 100px rgba(0,0,0,0.35);
		}
		h1 { font-size: 1.5rem; margin-bottom: 6px; }
		p { color: var(--muted); margin-top: 0; }
		.detail {
			margin: 20px 0 0;
			padding: 14px 18px;
			border-radius: 14px;
			background: rgba(252, 165, 165, 0.07);
			border: 1px solid rgba(252, 165, 165, 0.25);
			color: var(--danger);
		}
		form { display: flex; flex-direction: column; gap: 12px; margin-top: 24px; }
		input[type=password] {
			height: 48px;
			padding: 0 16px;
			border-radius: 12px;
			border: 1px solid var(--border);
			background: rgba(255, 255, 255, 0.04);
			color: var(--text);
			font-size: 1rem;
		}
		button {
			height: 48px;
			border: 0;
			border-radius: 999px;
			background: linear-gradient(120deg, var(--accent), var(--accent-strong));
			color: #050708;
			font-weight: 600;
			font-size: 1rem;
			cursor: pointer;
		}
	</style>
</head>
<body>
	<div class="card">{{template "body" .}}</div>
</body>
</html>
{{end}}`

var (
	passwordPageTmpl = template.Must(template.Must(template.New("password").Parse(layout)).Parse(`
{{define "title"}}Password required{{end}}
{{define "body"}}
		<h1>Password required</h1>
		<p>{{if .Name}}“{{.Name}}” is{{else}}This code is{{end}} protected. Enter the password to continue.</p>
		{{if .Error}}<div class="detail">{{.Error}}</div>{{end}}
		<form method="post" action="/r/{{.Code}}">
			<input type="password" name="password" placeholder="Password" autocomplete="current-password" autofocus required />
			<button type="submit">Continue</button>
		</form>
{{end}}`))

	statusPageTmpl = template.Must(template.Must(template.New("status").Parse(layout)).Parse(`
{{define "title"}}{{.Title}}{{end}}
{{define "body"}}
		<h1>{{.Title}}</h1>
		<p>{{.Message}}</p>
		{{if .Detail}}<div class="detail">{{.Detail}}</div>{{end}}
{{end}}`))
)

// RenderPasswordPage renders the password prompt.
func RenderPasswordPage(data PasswordPageData) (string, error) {
	return execute(passwordPageTmpl, data)
}

// RenderStatusPage renders a not found or denied page.
func RenderStatusPage(data StatusPageData) (string, error) {
	if data.Title == "" {
		data.Title = "Unavailable"
	}
	return execute(statusPageTmpl, data)
}

func execute(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
