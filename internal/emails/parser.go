package emails

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"tonelearn/internal/models"
)

// ErrEmptyMessage is returned for input with no headers or body
var ErrEmptyMessage = errors.New("empty message")

var (
	wroteLine     = regexp.MustCompile(`(?i)^\s*on\s.+wrote:\s*$`)
	separatorLine = regexp.MustCompile(`(?i)^\s*(-{2,}\s*(original message|forwarded message)\s*-{2,}|begin forwarded message:)\s*$`)
	outlookHeader = regexp.MustCompile(`(?i)^\s*from:\s.+`)
	outlookNext   = regexp.MustCompile(`(?i)^\s*(sent|date|to|subject):\s`)
	looseAddress  = regexp.MustCompile(`[^\s<>"',;]+@[^\s<>"',;]+`)
)

var addressParser = &mail.AddressParser{WordDecoder: new(mime.WordDecoder)}

// ParseEMLFile parses a single EML file
func ParseEMLFile(filename string) (*models.HistoricalMessage, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read EML file: %w", err)
	}
	return ParseMessage(raw)
}

// ParseMessage parses one RFC 5322 message into a HistoricalMessage.
// The raw bytes are kept for re-display.
func ParseMessage(raw []byte) (*models.HistoricalMessage, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, ErrEmptyMessage
	}

	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to read email message: %w", err)
	}

	header := msg.Header
	m := &models.HistoricalMessage{
		MessageID:  cleanMessageID(header.Get("Message-ID")),
		Subject:    decodeHeader(header.Get("Subject")),
		From:       parseAddresses(header.Get("From")),
		To:         parseAddresses(header.Get("To")),
		Cc:         parseAddresses(header.Get("Cc")),
		Bcc:        parseAddresses(header.Get("Bcc")),
		InReplyTo:  cleanMessageID(header.Get("In-Reply-To")),
		RawMessage: string(raw),
	}

	if dateStr := header.Get("Date"); dateStr != "" {
		if date, err := mail.ParseDate(dateStr); err == nil {
			m.SentAt = date.UTC()
		}
	}

	body, err := extractBody(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to extract body: %w", err)
	}
	m.UserReply, m.RespondedTo = SplitReply(body)

	return m, nil
}

// SplitReply separates the text the author wrote from the quoted or
// forwarded content below it.
func SplitReply(body string) (reply, quoted string) {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	lines := strings.Split(body, "\n")

	cut := len(lines)
	for i, line := range lines {
		if wroteLine.MatchString(line) || separatorLine.MatchString(line) || strings.HasPrefix(strings.TrimSpace(line), ">") {
			cut = i
			break
		}
		// Outlook: "From: x" directly followed by Sent/Date/To/Subject
		if outlookHeader.MatchString(line) && i+1 < len(lines) && outlookNext.MatchString(lines[i+1]) {
			cut = i
			break
		}
		// Gmail sometimes wraps the attribution: "On <date>, <name>\n<addr> wrote:"
		if i+1 < len(lines) && strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), "on ") &&
			strings.HasSuffix(strings.TrimSpace(lines[i+1]), "wrote:") {
			cut = i
			break
		}
	}

	reply = strings.TrimSpace(strings.Join(lines[:cut], "\n"))

	var q []string
	for _, line := range lines[cut:] {
		trimmed := strings.TrimLeft(line, " ")
		for strings.HasPrefix(trimmed, ">") {
			trimmed = strings.TrimLeft(strings.TrimPrefix(trimmed, ">"), " ")
		}
		q = append(q, trimmed)
	}
	quoted = strings.TrimSpace(strings.Join(q, "\n"))
	return reply, quoted
}

// parseAddresses tolerates malformed headers by falling back to a
// best-effort split so a bad sender never blocks ingestion.
func parseAddresses(header string) []models.Address {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil
	}

	list, err := addressParser.ParseList(header)
	if err == nil {
		out := make([]models.Address, 0, len(list))
		for _, a := range list {
			out = append(out, models.Address{Email: models.NormalizeEmail(a.Address), Name: strings.TrimSpace(a.Name)})
		}
		return out
	}

	var out []models.Address
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if a, err := addressParser.Parse(part); err == nil {
			out = append(out, models.Address{Email: models.NormalizeEmail(a.Address), Name: strings.TrimSpace(a.Name)})
			continue
		}
		if email := looseAddress.FindString(part); email != "" {
			out = append(out, models.Address{Email: models.NormalizeEmail(email)})
		}
	}
	return out
}

// MBOXProgress tracks the progress of MBOX parsing
type MBOXProgress struct {
	BytesProcessed   int64
	TotalBytes       int64
	EmailsProcessed  int
	EmailsSkipped    int
	PercentComplete  float64
	CurrentBatchSize int
}

// MBOXBatchCallback is called for each batch of messages parsed
type MBOXBatchCallback func(batch []*models.HistoricalMessage, progress MBOXProgress) error

// ParseMBOXFile streams an MBOX file in batches
func ParseMBOXFile(filename string, batchSize int, callback MBOXBatchCallback) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open MBOX file: %w", err)
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to get file info: %w", err)
	}
	return ParseMBOX(file, info.Size(), batchSize, callback)
}

// ParseMBOX parses an MBOX stream in batches. Messages that fail to parse
// are counted in EmailsSkipped rather than aborting the stream.
// totalBytes is only used for progress and may be 0.
func ParseMBOX(r io.Reader, totalBytes int64, batchSize int, callback MBOXBatchCallback) error {
	if batchSize <= 0 {
		batchSize = 100
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024) // 10MB max line

	var (
		batch          []*models.HistoricalMessage
		current        bytes.Buffer
		processed      int
		skipped        int
		bytesProcessed int64
	)

	progress := func(done bool) MBOXProgress {
		p := MBOXProgress{
			BytesProcessed:   bytesProcessed,
			TotalBytes:       totalBytes,
			EmailsProcessed:  processed,
			EmailsSkipped:    skipped,
			CurrentBatchSize: len(batch),
		}
		switch {
		case done:
			p.PercentComplete = 100
		case totalBytes > 0:
			p.PercentComplete = float64(bytesProcessed) / float64(totalBytes) * 100
		}
		return p
	}

	flushMessage := func() {
		if current.Len() == 0 {
			return
		}
		m, err := ParseMessage(current.Bytes())
		if err != nil {
			skipped++
		} else {
			batch = append(batch, m)
			processed++
		}
		current.Reset()
	}

	for scanner.Scan() {
		line := scanner.Text()
		bytesProcessed += int64(len(line) + 1)

		// Each message starts with a "From " envelope line
		if strings.HasPrefix(line, "From ") {
			flushMessage()
			if len(batch) >= batchSize {
				if err := callback(batch, progress(false)); err != nil {
					return fmt.Errorf("batch processing error at email %d: %w", processed, err)
				}
				batch = nil
			}
			continue
		}

		// mboxrd escaping
		if strings.HasPrefix(line, ">From ") {
			line = line[1:]
		}
		current.WriteString(line)
		current.WriteString("\n")
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading MBOX: %w", err)
	}

	flushMessage()
	if len(batch) > 0 {
		if err := callback(batch, progress(true)); err != nil {
			return fmt.Errorf("final batch processing error: %w", err)
		}
	}
	return nil
}

// ParseDirectory recursively parses all EML files in a directory.
// onError receives files that could not be parsed; it may be nil.
func ParseDirectory(dirPath string, onError func(path string, err error)) ([]*models.HistoricalMessage, error) {
	var messages []*models.HistoricalMessage

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(strings.ToLower(path), ".eml") {
			return nil
		}

		m, err := ParseEMLFile(path)
		if err != nil {
			if onError != nil {
				onError(path, err)
			}
			return nil
		}
		messages = append(messages, m)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	return messages, nil
}

// extractBody extracts the body text from an email message
func extractBody(msg *mail.Message) (string, error) {
	contentType := msg.Header.Get("Content-Type")
	transferEncoding := msg.Header.Get("Content-Transfer-Encoding")
	if contentType == "" {
		return extractSinglePartBody(msg.Body, "text/plain", transferEncoding)
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		body, err := io.ReadAll(msg.Body)
		if err != nil {
			return "", err
		}
		return string(body), nil
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		return extractMultipartBody(msg.Body, params["boundary"])
	}

	body, err := extractSinglePartBody(msg.Body, mediaType, transferEncoding)
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(mediaType, "text/html") {
		return cleanHTML(body), nil
	}
	return body, nil
}

// extractMultipartBody extracts text from multipart email, preferring text/plain
func extractMultipartBody(body io.Reader, boundary string) (string, error) {
	mr := multipart.NewReader(body, boundary)
	var textParts []string
	var htmlParts []string

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		partContentType := part.Header.Get("Content-Type")
		mediaType, params, _ := mime.ParseMediaType(partContentType)

		if strings.HasPrefix(mediaType, "multipart/") {
			if nestedBoundary, ok := params["boundary"]; ok {
				if nested, err := extractMultipartBody(part, nestedBoundary); err == nil && nested != "" {
					textParts = append(textParts, nested)
				}
			}
			continue
		}
		if strings.HasPrefix(part.Header.Get("Content-Disposition"), "attachment") {
			continue
		}

		content, err := extractSinglePartBody(part, mediaType, part.Header.Get("Content-Transfer-Encoding"))
		if err != nil {
			continue
		}

		switch {
		case mediaType == "" || strings.HasPrefix(mediaType, "text/plain"):
			textParts = append(textParts, content)
		case strings.HasPrefix(mediaType, "text/html"):
			htmlParts = append(htmlParts, content)
		}
	}

	if len(textParts) > 0 {
		return strings.Join(textParts, "\n\n"), nil
	}
	if len(htmlParts) > 0 {
		return cleanHTML(strings.Join(htmlParts, "\n\n")), nil
	}
	return "", nil
}

// extractSinglePartBody decodes the transfer encoding of a single part
func extractSinglePartBody(body io.Reader, _ string, transferEncoding string) (string, error) {
	reader := body

	switch strings.ToLower(strings.TrimSpace(transferEncoding)) {
	case "quoted-printable":
		reader = quotedprintable.NewReader(body)
	case "base64":
		reader = base64.NewDecoder(base64.StdEncoding, body)
	}

	content, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

// cleanHTML removes HTML tags (basic implementation)
func cleanHTML(html string) string {
	html = removeTagsWithContent(html, "script")
	html = removeTagsWithContent(html, "style")
	// Quoted history in HTML replies
	html = removeTagsWithContent(html, "blockquote")

	replacer := strings.NewReplacer(
		"&nbsp;", " ", "&lt;", "<", "&gt;", ">", "&amp;", "&", "&quot;", "\"", "&#39;", "'",
		"<br>", "\n", "<br/>", "\n", "<br />", "\n", "</p>", "\n\n", "</div>", "\n",
	)
	html = replacer.Replace(html)

	var result strings.Builder
	inTag := false
	for _, char := range html {
		switch {
		case char == '<':
			inTag = true
		case char == '>':
			inTag = false
		case !inTag:
			result.WriteRune(char)
		}
	}

	text := strings.TrimSpace(result.String())
	for strings.Contains(text, "\n\n\n") {
		text = strings.ReplaceAll(text, "\n\n\n", "\n\n")
	}
	return text
}

// removeTagsWithContent removes HTML tags and their content
func removeTagsWithContent(html, tag string) string {
	openTag := "<" + tag
	closeTag := "</" + tag + ">"

	for {
		lower := strings.ToLower(html)
		start := strings.Index(lower, openTag)
		if start == -1 {
			break
		}
		end := strings.Index(lower[start:], closeTag)
		if end == -1 {
			break
		}
		end += start + len(closeTag)
		html = html[:start] + html[end:]
	}

	return html
}

// decodeHeader decodes MIME encoded headers
func decodeHeader(header string) string {
	dec := new(mime.WordDecoder)
	decoded, err := dec.DecodeHeader(header)
	if err != nil {
		return header
	}
	return decoded
}

// cleanMessageID removes surrounding whitespace and angle brackets
func cleanMessageID(msgID string) string {
	msgID = strings.TrimSpace(msgID)
	msgID = strings.TrimPrefix(msgID, "<")
	msgID = strings.TrimSuffix(msgID, ">")
	return msgID
}
