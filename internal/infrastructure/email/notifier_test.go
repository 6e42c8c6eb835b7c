package email

import (
	"strings"
	"testing"

	mail "github.com/wneessen/go-mail"

	"arxivwatch/internal/config"
	"arxivwatch/internal/domain"
)

func testPaper() domain.Paper {
	return domain.Paper{
		ID:        "2401.12345",
		Title:     "A Sample Paper",
		Link:      "https://arxiv.org/abs/2401.12345",
		Published: "Fri, 12 Jan 2024 00:00:00 -0500",
		Authors:   []string{"Alice Smith", "Bob Jones"},
	}
}

func TestTextBody(t *testing.T) {
	t.Parallel()

	body := textBody(testPaper(), "The summary.")

	for _, want := range []string{
		"A Sample Paper",
		"Alice Smith, Bob Jones",
		"Fri, 12 Jan 2024 00:00:00 -0500",
		"The summary.",
		"https://arxiv.org/abs/2401.12345",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("text body missing %q:\n%s", want, body)
		}
	}
}

func TestTextBodyUnknownAuthors(t *testing.T) {
	t.Parallel()

	paper := testPaper()
	paper.Authors = nil

	if body := textBody(paper, "s"); !strings.Contains(body, "Authors: Unknown") {
		t.Fatalf("expected Unknown authors, got:\n%s", body)
	}
}

func TestHTMLBodyRendersMarkdown(t *testing.T) {
	t.Parallel()

	body, err := htmlBody(testPaper(), "The method is **novel** and fast.")
	if err != nil {
		t.Fatalf("htmlBody returned error: %v", err)
	}

	if !strings.Contains(body, "<strong>novel</strong>") {
		t.Fatalf("markdown summary not rendered to HTML:\n%s", body)
	}
	if !strings.Contains(body, `href="https://arxiv.org/abs/2401.12345"`) {
		t.Fatalf("paper link missing from HTML body:\n%s", body)
	}
	if !strings.Contains(body, "A Sample Paper") {
		t.Fatalf("title missing from HTML body:\n%s", body)
	}
}

func TestBuildMessage(t *testing.T) {
	t.Parallel()

	notifier, err := NewNotifier(config.SMTPConfig{
		Host:     "smtp.example.org",
		Port:     587,
		Username: "user",
		Password: "pass",
		From:     "watcher@example.org",
		To:       []string{"alice@example.org", "bob@example.org"},
	}, nil)
	if err != nil {
		t.Fatalf("NewNotifier returned error: %v", err)
	}

	msg, err := notifier.buildMessage(testPaper(), "The summary.")
	if err != nil {
		t.Fatalf("buildMessage returned error: %v", err)
	}

	subjects := msg.GetGenHeader(mail.HeaderSubject)
	if len(subjects) != 1 || subjects[0] != "A Sample Paper" {
		t.Fatalf("unexpected subject: %v", subjects)
	}

	recipients, err := msg.GetRecipients()
	if err != nil {
		t.Fatalf("GetRecipients returned error: %v", err)
	}
	if len(recipients) != 2 {
		t.Fatalf("expected 2 recipients, got %v", recipients)
	}
}
