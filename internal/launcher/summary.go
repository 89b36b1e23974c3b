package launcher

import (
	"html/template"
	"os"
	"path/filepath"
)

var summaryTemplate = template.Must(template.New("summary").Parse(`<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.ProjectName}} - AURA-X Summary</title>
  <style>
    body { font-family: Arial, sans-serif; margin: 2rem; line-height: 1.5; }
    h1 { margin-bottom: 0.25rem; }
    .muted { color: #555; margin-top: 0; }
    ul { padding-left: 1.2rem; }
    code { background: #f5f5f5; padding: 0.1rem 0.25rem; }
  </style>
</head>
<body>
  <h1>{{.ProjectName}}</h1>
  <p class="muted">CLI project generated by AURA-X.</p>
  <p>Run your project from the terminal in this directory:</p>
  <p><code>{{.ProjectRoot}}</code></p>
  <h2>Generated files</h2>
  <ul>{{range .Files}}<li>{{.}}</li>
{{end}}</ul>
</body>
</html>
`))

type summaryData struct {
	ProjectName string
	ProjectRoot string
	Files       []string
}

// writeSummaryPage renders a browsable file listing for projects that have
// no web entry point.
func (l *Launcher) writeSummaryPage(root string) (string, error) {
	summaryPath := filepath.Join(root, summaryFileName)

	// Collect before creating the page so it does not list itself.
	data := summaryData{
		ProjectName: filepath.Base(root),
		ProjectRoot: root,
		Files:       collectFileList(root),
	}

	f, err := os.Create(summaryPath)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := summaryTemplate.Execute(f, data); err != nil {
		return "", err
	}
	return summaryPath, nil
}
