package notify

import (
	"bytes"
	"embed"
	"encoding/base64"
	"fmt"
	"html/template"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/yuin/goldmark"
)

//go:embed templates/base_notification.html
var templateFS embed.FS

var baseTemplate = template.Must(template.ParseFS(templateFS, "templates/base_notification.html"))

// Message is one email. Body is Markdown and is rendered into the base
// notification layout under Title.
type Message struct {
	To          []string
	Subject     string
	Title       string
	Body        string
	Attachments []string
}

// HTML renders the message body into the notification layout.
func (m Message) HTML() (string, error) {
	var body bytes.Buffer
	if err := goldmark.Convert([]byte(m.Body), &body); err != nil {
		return "", fmt.Errorf("render body: %w", err)
	}
	title := m.Title
	if title == "" {
		title = m.Subject
	}
	var out bytes.Buffer
	err := baseTemplate.Execute(&out, struct {
		Title string
		Body  template.HTML
	}{title, template.HTML(body.String())})
	if err != nil {
		return "", fmt.Errorf("render layout: %w", err)
	}
	return out.String(), nil
}

// Encode writes m as a MIME multipart/mixed message from sender.
func Encode(w io.Writer, from string, m Message, date time.Time) error {
	html, err := m.HTML()
	if err != nil {
		return err
	}

	mw := multipart.NewWriter(w)
	headers := []struct{ key, value string }{
		{"From", from},
		{"To", strings.Join(m.To, ", ")},
		{"Subject", mime.QEncoding.Encode("utf-8", m.Subject)},
		{"Date", date.Format(time.RFC1123Z)},
		{"MIME-Version", "1.0"},
		{"Content-Type", "multipart/mixed; boundary=" + mw.Boundary()},
	}
	for _, h := range headers {
		if _, err := fmt.Fprintf(w, "%s: %s\r\n", h.key, h.value); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, "\r\n"); err != nil {
		return err
	}

	part, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"text/html; charset=utf-8"},
		"Content-Transfer-Encoding": {"base64"},
	})
	if err != nil {
		return err
	}
	if err := writeBase64(part, []byte(html)); err != nil {
		return err
	}

	for _, path := range m.Attachments {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("attachment %s: %w", path, err)
		}
		name := filepath.Base(path)
		part, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {mimetype.Detect(data).String()},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {mime.FormatMediaType("attachment", map[string]string{"filename": name})},
		})
		if err != nil {
			return err
		}
		if err := writeBase64(part, data); err != nil {
			return err
		}
	}
	return mw.Close()
}

// writeBase64 wraps encoded lines at 76 characters.
func writeBase64(w io.Writer, data []byte) error {
	enc := base64.StdEncoding.EncodeToString(data)
	for len(enc) > 76 {
		if _, err := io.WriteString(w, enc[:76]+"\r\n"); err != nil {
			return err
		}
		enc = enc[76:]
	}
	_, err := io.WriteString(w, enc+"\r\n")
	return err
}
