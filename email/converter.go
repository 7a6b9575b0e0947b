// Package email converts RFC 5322 messages (.eml) to Markdown: a header
// block, the message body and any attachments the engine can convert.
package email

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/jhillyerd/enmime"
	"github.com/microcosm-cc/bluemonday"
	"github.com/sirupsen/logrus"

	"github.com/tsawler/markitdown/htmldoc"
	"github.com/tsawler/markitdown/images"
	"github.com/tsawler/markitdown/internal/nest"
	"github.com/tsawler/markitdown/model"
)

// MetaAttachmentCount is the result metadata key holding the number of
// attachments.
const MetaAttachmentCount = "attachment_count"

// Delegate converts attachments with the engine's full converter set.
type Delegate interface {
	ConvertStream(ctx context.Context, s model.Stream, info model.StreamInfo) (*model.Result, error)
}

// Converter converts email messages.
type Converter struct {
	Images *images.Pipeline
	Logger logrus.FieldLogger

	// Delegate, when set, converts non-image attachments.
	Delegate Delegate

	// MaxDepth bounds nested conversions through attachments. Zero means
	// no limit.
	MaxDepth int
}

// NewConverter returns a Converter. d may be nil to skip attachments.
func NewConverter(p *images.Pipeline, d Delegate, logger logrus.FieldLogger) *Converter {
	return &Converter{Images: p, Delegate: d, Logger: logger, MaxDepth: 3}
}

func (c *Converter) Name() string { return "email" }

func (c *Converter) AcceptsInfo(info model.StreamInfo) bool {
	return info.HasExtension(".eml") || info.BaseMIME() == "message/rfc822"
}

// Accepts looks for a From header among the leading header lines.
func (c *Converter) Accepts(s model.Stream, _ model.StreamInfo) bool {
	sc := bufio.NewScanner(io.LimitReader(s, 64<<10))
	sc.Buffer(make([]byte, 0, 4096), 64<<10)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			break
		}
		if line[0] == ' ' || line[0] == '\t' {
			continue
		}
		name, _, ok := strings.Cut(line, ":")
		if !ok || strings.ContainsAny(name, " \t") {
			return false
		}
		if strings.EqualFold(name, "from") {
			return true
		}
	}
	return false
}

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
)

// sanitizer returns the policy applied to HTML bodies: user generated
// content rules plus cid: and data: image sources.
func sanitizer() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.UGCPolicy()
		policy.AllowURLSchemes("cid")
		policy.AllowDataURIImages()
	})
	return policy
}

// Convert renders the header block, the body and the attachments as
// separate segments.
func (c *Converter) Convert(ctx context.Context, s model.Stream, info model.StreamInfo) (*model.Result, error) {
	env, err := enmime.ReadEnvelope(s)
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	log := c.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("source", info.Name())
	for _, perr := range env.Errors {
		log.WithField("error", perr).Debug("message parse warning")
	}

	res := model.NewResult()
	subject := strings.TrimSpace(env.GetHeader("Subject"))
	res.Title = subject

	header := headerBlock(env)
	if header != "" {
		seg, err := model.NewSegment(header, model.KindMetadata, model.WithLabel("Headers"), model.WithSource(info.Name()))
		if err != nil {
			return nil, err
		}
		res.AddSegment(seg)
	}

	body, imgs, raw, err := c.body(ctx, env, log)
	if err != nil {
		return nil, err
	}
	seg, err := model.NewSegment(body, model.KindSection,
		model.WithNumber(1),
		model.WithLabel(subject),
		model.WithSource(info.Name()),
	)
	if err != nil {
		return nil, err
	}
	idx := res.AddSegment(seg)
	for _, img := range imgs {
		if err := img.SetSegmentIndex(idx); err != nil {
			return nil, err
		}
	}
	res.Artifacts.Images = append(res.Artifacts.Images, imgs...)

	if err := c.attachments(ctx, env, res, log); err != nil {
		return nil, err
	}

	res.SetMeta(model.MetaTitleHint, subject)
	for k, v := range map[string]string{
		"subject": subject,
		"from":    env.GetHeader("From"),
		"to":      env.GetHeader("To"),
		"date":    env.GetHeader("Date"),
	} {
		res.SetMeta(k, v)
		if v != "" {
			res.Artifacts.Metadata[k] = v
		}
	}
	res.SetCount(MetaAttachmentCount, len(env.Attachments))
	res.RawText = raw
	return res, nil
}

// body renders the HTML body when present, else the text body.
func (c *Converter) body(ctx context.Context, env *enmime.Envelope, log logrus.FieldLogger) (string, []*model.ImageArtifact, string, error) {
	if strings.TrimSpace(env.HTML) == "" {
		text := strings.TrimSpace(env.Text)
		return text, nil, text, nil
	}
	doc, err := htmldoc.ParseString(sanitizer().Sanitize(env.HTML))
	if err != nil {
		return "", nil, "", err
	}
	r, err := htmldoc.Render(ctx, doc, htmldoc.RenderOptions{
		Navigation: htmldoc.NavigationExclusionNone,
		Images:     c.Images,
		Resolve:    inlineResolver(env),
		Page:       1,
		Logger:     log,
	})
	if err != nil {
		return "", nil, "", err
	}
	raw := strings.TrimSpace(env.Text)
	if raw == "" {
		raw = doc.Text()
	}
	return r.Markdown, r.Images, raw, nil
}

// inlineResolver resolves cid: references against the message parts.
func inlineResolver(env *enmime.Envelope) htmldoc.ResolveFunc {
	return func(src string) ([]byte, string, error) {
		if !strings.HasPrefix(strings.ToLower(src), "cid:") {
			return nil, "", fmt.Errorf("not an inline reference: %s", src)
		}
		id := strings.Trim(src[len("cid:"):], "<> ")
		for _, group := range [][]*enmime.Part{env.Inlines, env.OtherParts, env.Attachments} {
			for _, p := range group {
				if strings.Trim(p.ContentID, "<> ") == id {
					return p.Content, p.ContentType, nil
				}
			}
		}
		return nil, "", fmt.Errorf("no part with content id %q", id)
	}
}

// attachments appends one segment per attachment. Images go through the
// image pipeline; other files go to the delegate. A failed attachment is
// recorded as a comment and does not fail the message.
func (c *Converter) attachments(ctx context.Context, env *enmime.Envelope, res *model.Result, log logrus.FieldLogger) error {
	for i, p := range env.Attachments {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := p.FileName
		if name == "" {
			name = fmt.Sprintf("attachment-%d", i+1)
		}

		if images.IsImageType(p.ContentType) {
			img := model.NewImageArtifact(p.Content, p.ContentType, 1)
			img.Source = name
			img.Label = name
			md, err := c.Images.Process(ctx, img)
			if err != nil {
				return err
			}
			if err := c.addSegment(res, "### Attachment: "+name+"\n\n"+md, model.KindImage, name); err != nil {
				return err
			}
			if err := img.SetSegmentIndex(len(res.Segments) - 1); err != nil {
				return err
			}
			res.Artifacts.Images = append(res.Artifacts.Images, img)
			continue
		}

		if c.Delegate == nil {
			continue
		}
		nested, err := c.convertAttachment(ctx, p, name)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			log.WithFields(logrus.Fields{"entry": name, "error": err}).Warn("attachment conversion failed")
			if err := c.addSegment(res, failureNote(name, err), model.KindSection, name); err != nil {
				return err
			}
			continue
		}
		md := "### Attachment: " + name
		if body := strings.TrimSpace(nested.Markdown); body != "" {
			md += "\n\n" + body
		}
		if err := c.addSegment(res, md, model.KindSection, name); err != nil {
			return err
		}
		res.Artifacts.Adopt(nested.Artifacts, len(res.Segments)-1, name)
	}
	return nil
}

func (c *Converter) convertAttachment(ctx context.Context, p *enmime.Part, name string) (*model.Result, error) {
	nctx, err := nest.Enter(ctx, c.MaxDepth)
	if err != nil {
		return nil, err
	}
	info := model.StreamInfo{Filename: name, MIMEType: p.ContentType, Charset: p.Charset}.Normalize()
	return c.Delegate.ConvertStream(nctx, bytes.NewReader(p.Content), info)
}

func (c *Converter) addSegment(res *model.Result, md string, kind model.SegmentKind, name string) error {
	seg, err := model.NewSegment(md, kind, model.WithLabel(name), model.WithSource(name))
	if err != nil {
		return err
	}
	res.AddSegment(seg)
	return nil
}

// failureNote is the visible placeholder for an attachment that could not
// be converted.
func failureNote(name string, err error) string {
	reason := strings.ReplaceAll(err.Error(), "--", "- -")
	return fmt.Sprintf("<!-- Failed to convert %s: %s -->", name, reason)
}

// headerBlock renders the addressing headers as bold-labelled lines.
func headerBlock(env *enmime.Envelope) string {
	var lines []string
	for _, h := range []string{"From", "To", "Cc", "Date", "Subject"} {
		if v := strings.TrimSpace(env.GetHeader(h)); v != "" {
			lines = append(lines, "**"+h+":** "+v)
		}
	}
	if len(env.Attachments) > 0 {
		names := make([]string, 0, len(env.Attachments))
		for i, p := range env.Attachments {
			n := p.FileName
			if n == "" {
				n = fmt.Sprintf("attachment-%d", i+1)
			}
			names = append(names, n)
		}
		lines = append(lines, "**Attachments:** "+strings.Join(names, ", "))
	}
	return strings.Join(lines, "\n")
}
