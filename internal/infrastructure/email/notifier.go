package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"strings"

	mail "github.com/wneessen/go-mail"
	"github.com/yuin/goldmark"

	"arxivwatch/internal/config"
	"arxivwatch/internal/domain"
	"arxivwatch/internal/ports"
)

// Notifier delivers paper summaries as multipart email over SMTP.
type Notifier struct {
	client *mail.Client
	from   string
	to     []string
	logger *slog.Logger
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier builds an SMTP client with mandatory STARTTLS.
func NewNotifier(cfg config.SMTPConfig, logger *slog.Logger) (*Notifier, error) {
	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return nil, fmt.Errorf("build smtp client: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Notifier{client: client, from: cfg.From, to: cfg.To, logger: logger}, nil
}

// Notify sends one email carrying the paper's metadata and its summary.
func (n *Notifier) Notify(ctx context.Context, paper domain.Paper, summary string) error {
	msg, err := n.buildMessage(paper, summary)
	if err != nil {
		return err
	}

	if err := n.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}

	n.logger.Info("sent email notification",
		"paper_id", paper.ID,
		"paper_title", paper.Title,
		"recipient_count", len(n.to),
	)
	return nil
}

func (n *Notifier) buildMessage(paper domain.Paper, summary string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(n.from); err != nil {
		return nil, fmt.Errorf("set from address: %w", err)
	}
	if err := msg.To(n.to...); err != nil {
		return nil, fmt.Errorf("set recipients: %w", err)
	}
	msg.Subject(paper.Title)

	msg.SetBodyString(mail.TypeTextPlain, textBody(paper, summary))

	html, err := htmlBody(paper, summary)
	if err != nil {
		return nil, fmt.Errorf("render html body: %w", err)
	}
	msg.AddAlternativeString(mail.TypeTextHTML, html)

	return msg, nil
}

func authorsLine(paper domain.Paper) string {
	if len(paper.Authors) == 0 {
		return "Unknown"
	}
	return strings.Join(paper.Authors, ", ")
}

func textBody(paper domain.Paper, summary string) string {
	return fmt.Sprintf(`New arXiv Paper: %s

Authors: %s
Published: %s

Summary:
%s

Read the full paper: %s
`, paper.Title, authorsLine(paper), paper.Published, summary, paper.Link)
}

var htmlBodyTemplate = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html>
<head>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif;
            line-height: 1.6;
            color: #333;
            max-width: 800px;
            margin: 0 auto;
            padding: 20px;
        }
        .header {
            background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
            color: white;
            padding: 30px;
            border-radius: 10px;
            margin-bottom: 30px;
        }
        .header h1 {
            margin: 0 0 15px 0;
            font-size: 24px;
            font-weight: 600;
        }
        .metadata {
            font-size: 14px;
            opacity: 0.95;
        }
        .metadata p {
            margin: 5px 0;
        }
        .summary {
            background: #f8f9fa;
            padding: 25px;
            border-radius: 8px;
            border-left: 4px solid #667eea;
            margin: 20px 0;
        }
        .summary h2 {
            margin-top: 0;
            color: #667eea;
            font-size: 20px;
        }
        .link {
            margin-top: 30px;
            text-align: center;
        }
        .link a {
            display: inline-block;
            background: #667eea;
            color: white;
            padding: 12px 30px;
            text-decoration: none;
            border-radius: 6px;
            font-weight: 500;
        }
    </style>
</head>
<body>
    <div class="header">
        <h1>{{.Title}}</h1>
        <div class="metadata">
            <p><strong>Authors:</strong> {{.Authors}}</p>
            <p><strong>Published:</strong> {{.Published}}</p>
        </div>
    </div>

    <div class="summary">
        <h2>Summary</h2>
        {{.Summary}}
    </div>

    <div class="link">
        <a href="{{.Link}}">Read Full Paper on arXiv</a>
    </div>
</body>
</html>
`))

func htmlBody(paper domain.Paper, summary string) (string, error) {
	var rendered bytes.Buffer
	if err := goldmark.Convert([]byte(summary), &rendered); err != nil {
		return "", fmt.Errorf("render summary markdown: %w", err)
	}

	data := struct {
		Title     string
		Authors   string
		Published string
		Summary   template.HTML
		Link      string
	}{
		Title:     paper.Title,
		Authors:   authorsLine(paper),
		Published: paper.Published,
		Summary:   template.HTML(rendered.String()),
		Link:      paper.Link,
	}

	var out bytes.Buffer
	if err := htmlBodyTemplate.Execute(&out, data); err != nil {
		return "", fmt.Errorf("execute email template: %w", err)
	}
	return out.String(), nil
}
