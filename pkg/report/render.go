package report

import (
	"bytes"
	"fmt"
	"html"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
)

const htmlStyle = `body{font-family:-apple-system,Segoe UI,Helvetica,Arial,sans-serif;margin:2rem auto;max-width:72rem;color:#24292f}
table{border-collapse:collapse;margin:1rem 0}th,td{border:1px solid #d0d7de;padding:.3rem .6rem;text-align:left}
img{max-width:100%;border:1px solid #d0d7de}`

// renderMarkdown builds the report document.
func (r *Reporter) renderMarkdown(entries []Entry) []byte {
	var md strings.Builder

	md.WriteString(fmt.Sprintf("# %s\n\n", r.title()))
	md.WriteString(fmt.Sprintf("**Started:** %s\n\n", r.started.Format(time.RFC3339)))

	md.WriteString("## System Info\n\n")
	md.WriteString("| Property | Value |\n|---|---|\n")
	for _, info := range r.system {
		md.WriteString(fmt.Sprintf("| %s | %s |\n", info.Name, cell(info.Value)))
	}
	md.WriteString("\n")

	counts := map[Status]int{}
	for _, e := range entries {
		counts[e.Status]++
	}
	md.WriteString("## Summary\n\n")
	md.WriteString(fmt.Sprintf("- **Scenarios:** %d\n", len(entries)))
	for _, s := range []Status{StatusPass, StatusFail, StatusSkip, StatusWarning} {
		md.WriteString(fmt.Sprintf("- **%s:** %d\n", s, counts[s]))
	}
	md.WriteString("\n")

	if len(entries) == 0 {
		md.WriteString("_No scenarios were executed._\n")
		return []byte(md.String())
	}

	md.WriteString("## Scenarios\n\n")
	for _, e := range entries {
		md.WriteString(fmt.Sprintf("### %s %s\n\n", e.Status.icon(), e.Name))
		if e.Description != "" {
			md.WriteString(e.Description + "\n\n")
		}
		md.WriteString(fmt.Sprintf("**Status:** %s | **Started:** %s\n\n", e.Status, e.Started.Format("15:04:05")))

		if len(e.Logs) > 0 {
			md.WriteString("| Time | Status | Message |\n|---|---|---|\n")
			for _, line := range e.Logs {
				md.WriteString(fmt.Sprintf("| %s | %s | %s |\n",
					line.Time.Format("15:04:05.000"), line.Status, cell(line.Message)))
			}
			md.WriteString("\n")
		}

		for _, shot := range e.Screenshots {
			link := (&url.URL{Path: r.relative(shot)}).String()
			md.WriteString(fmt.Sprintf("![%s](%s)\n\n", altText(filepath.Base(shot)), link))
		}
	}
	return []byte(md.String())
}

// relative makes an attachment path relative to the reports directory so
// the report can be moved together with its screenshots.
func (r *Reporter) relative(path string) string {
	absReports, err1 := filepath.Abs(r.cfg.ReportsDir)
	absPath, err2 := filepath.Abs(path)
	if err1 != nil || err2 != nil {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(absReports, absPath)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// altText escapes the brackets that would end image alt text early.
func altText(s string) string {
	return strings.NewReplacer("[", `\[`, "]", `\]`).Replace(s)
}

// cell escapes text for a single Markdown table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\r\n", " ")
	return strings.ReplaceAll(s, "\n", " ")
}

// renderHTML converts the Markdown report into a standalone HTML page.
func renderHTML(title string, md []byte) ([]byte, error) {
	var body bytes.Buffer
	if err := markdown.Convert(md, &body); err != nil {
		return nil, err
	}

	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n")
	page.WriteString(fmt.Sprintf("<title>%s</title>\n", html.EscapeString(title)))
	page.WriteString("<style>" + htmlStyle + "</style>\n</head>\n<body>\n")
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")
	return page.Bytes(), nil
}
