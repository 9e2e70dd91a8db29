package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

const DefaultSubject = "Stock Tickers with Sentiment Analysis"

// HTMLEmailRenderer renders notifications as HTML emails with a plain text fallback.
type HTMLEmailRenderer struct {
	tmpl    *template.Template
	subject string
}

func NewHTMLEmailRenderer(subject string) *HTMLEmailRenderer {
	if subject == "" {
		subject = DefaultSubject
	}
	t := template.Must(template.New("email").Funcs(template.FuncMap{
		"sentiment": func(v float64) string { return fmt.Sprintf("%.2f", v) },
		"postdate":  formatPostDate,
		"scale":     formatScale,
		"inc":       func(i int) int { return i + 1 },
	}).Parse(emailHTMLTemplate))
	return &HTMLEmailRenderer{tmpl: t, subject: subject}
}

func (r *HTMLEmailRenderer) Render(data NotificationData) (*RenderedMessage, error) {
	var htmlBuf bytes.Buffer
	if err := r.tmpl.Execute(&htmlBuf, data); err != nil {
		return nil, fmt.Errorf("failed to render HTML template: %w", err)
	}

	return &RenderedMessage{
		Subject: r.subject,
		Text:    renderPlainText(data),
		HTML:    htmlBuf.String(),
	}, nil
}

func renderPlainText(data NotificationData) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Top stock tickers discussed on r/%s:\n\n", data.Subreddit))
	if len(data.Results) == 0 {
		sb.WriteString("No tickers were mentioned in this run.\n")
		return sb.String()
	}

	for _, res := range data.Results {
		sb.WriteString(FormatResult(res, data.Granularity, data.ScaleMax))
		sb.WriteString("\n")
	}

	if data.Total > len(data.Results) {
		sb.WriteString(fmt.Sprintf("\n(%d more tickers not shown)\n", data.Total-len(data.Results)))
	}

	return sb.String()
}
