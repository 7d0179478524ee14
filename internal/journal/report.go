package journal

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
)

// Stats summarizes a set of records.
type Stats struct {
	Total  int
	Client int
	Server int
}

func Summarize(recs []Record) Stats {
	st := Stats{Total: len(recs)}
	for _, r := range recs {
		switch r.Sender {
		case Client:
			st.Client++
		case Server:
			st.Server++
		}
	}
	return st
}

var reportTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"stamp": func(r Record) string { return r.Timestamp.Format(TimestampLayout) },
	"lower": func(s Sender) string { return strings.ToLower(s.String()) },
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>TCP Activity Log</title>
<style>
body { font-family: 'Courier New', monospace; background-color: #1e1e1e; color: #d4d4d4; padding: 20px; max-width: 1200px; margin: 0 auto; }
h1 { color: #FFB74D; text-align: center; border-bottom: 2px solid #FFB74D; padding-bottom: 10px; }
.stats { background-color: #2d2d2d; padding: 15px; border-radius: 5px; margin-bottom: 20px; display: flex; justify-content: space-around; }
.stat-item { text-align: center; }
.stat-number { font-size: 24px; font-weight: bold; color: #4FC3F7; }
.stat-label { font-size: 12px; color: #888; }
.log-entry { margin: 15px 0; padding: 15px; border-left: 4px solid; border-radius: 4px; }
.log-entry.client-msg { border-color: #4FC3F7; background-color: #1a2a3a; }
.log-entry.server-msg { border-color: #81C784; background-color: #1a2a1a; }
.field { margin: 8px 0; }
.label { font-weight: bold; color: #FFB74D; display: inline-block; min-width: 120px; }
.timestamp { color: #CE93D8; }
.sender.client { color: #4FC3F7; font-weight: bold; }
.sender.server { color: #81C784; font-weight: bold; }
.ip { color: #FFB74D; }
.content { background-color: #2d2d2d; padding: 8px; border-radius: 4px; margin-top: 5px; white-space: pre-wrap; }
.filter-buttons { text-align: center; margin: 20px 0; }
.filter-btn { background-color: #333; color: #fff; border: 2px solid #555; padding: 8px 16px; margin: 0 5px; border-radius: 5px; cursor: pointer; font-family: inherit; }
.filter-btn.active { border-color: #FFB74D; background-color: #FFB74D; color: #000; }
</style>
<script>
function filterLogs(ev, filter) {
	document.querySelectorAll('.filter-btn').forEach(b => b.classList.remove('active'));
	ev.target.classList.add('active');
	document.querySelectorAll('.log-entry').forEach(e => {
		e.style.display = (filter === 'all' || e.classList.contains(filter + '-msg')) ? 'block' : 'none';
	});
}
</script>
</head>
<body>
<h1>TCP Activity Log</h1>
<div class="stats">
	<div class="stat-item"><div class="stat-number">{{.Stats.Total}}</div><div class="stat-label">Total messages</div></div>
	<div class="stat-item"><div class="stat-number">{{.Stats.Client}}</div><div class="stat-label">From clients</div></div>
	<div class="stat-item"><div class="stat-number">{{.Stats.Server}}</div><div class="stat-label">From server</div></div>
</div>
<div class="filter-buttons">
	<button class="filter-btn active" onclick="filterLogs(event, 'all')">All</button>
	<button class="filter-btn" onclick="filterLogs(event, 'client')">Clients only</button>
	<button class="filter-btn" onclick="filterLogs(event, 'server')">Server only</button>
</div>
{{range .Records}}<div class="log-entry {{lower .Sender}}-msg">
	<div class="field"><span class="label">TIMESTAMP:</span> <span class="timestamp">{{stamp .}}</span></div>
	<div class="field"><span class="label">SENDER:</span> <span class="sender {{lower .Sender}}">{{.Sender}}</span></div>
	<div class="field"><span class="label">PEER:</span> <span class="ip">{{.Peer}}</span></div>
	<div class="field"><span class="label">CONTENT:</span></div>
	<div class="content">{{.Content}}</div>
</div>
{{end}}</body>
</html>
`))

// RenderHTML writes the browsable report for recs to w.
func RenderHTML(w io.Writer, recs []Record) error {
	return reportTmpl.Execute(w, struct {
		Stats   Stats
		Records []Record
	}{Summarize(recs), recs})
}

// WriteHTMLReport atomically replaces the report at path.
func WriteHTMLReport(path string, recs []Record) error {
	var buf bytes.Buffer
	if err := RenderHTML(&buf, recs); err != nil {
		return fmt.Errorf("rendering report: %w", err)
	}
	return writeFileAtomic(path, buf.Bytes())
}

// Markdown renders recs as a Markdown document.
func Markdown(recs []Record) string {
	st := Summarize(recs)
	var b strings.Builder
	b.WriteString("# TCP Activity Log\n\n")
	fmt.Fprintf(&b, "| Total | From clients | From server |\n|---|---|---|\n| %d | %d | %d |\n\n", st.Total, st.Client, st.Server)
	if len(recs) == 0 {
		b.WriteString("_No activity recorded yet._\n")
		return b.String()
	}
	b.WriteString("| Time | Sender | Peer | Content |\n|---|---|---|---|\n")
	for _, r := range recs {
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
			r.Timestamp.Format(TimestampLayout), r.Sender, r.Peer, markdownCell(r.Content))
	}
	return b.String()
}

func markdownCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", "<br>")
}

// RenderTerminal renders the Markdown report with glamour using the named
// standard style ("dark", "light", "notty", ...).
func RenderTerminal(recs []Record, style string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("creating renderer: %w", err)
	}
	return r.Render(Markdown(recs))
}
