package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"strconv"
	"time"

	"github.com/wneessen/go-mail"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/smart-travel-guide/internal/types"
)

const (
	DefaultHost = "smtp.gmail.com"
	DefaultPort = 465

	FavoritesSubject = "Favori Gezileriniz"
)

// Sender is the part of *mail.Client the service needs.
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

type Service interface {
	SendFavoritesEmail(ctx context.Context, to string, favorites []types.PlaceDetails) error
}

var _ Service = (*ServiceImpl)(nil)

type ServiceImpl struct {
	logger *slog.Logger
	sender Sender
	from   string
}

// NewService dials nothing; the SMTP connection is opened per send.
func NewService(host string, port int, from, password string, logger *slog.Logger) (*ServiceImpl, error) {
	if from == "" || password == "" {
		return nil, fmt.Errorf("email sender or password: %w", types.ErrMissingCredential)
	}
	if host == "" {
		host = DefaultHost
	}
	if port == 0 {
		port = DefaultPort
	}
	opts := []mail.Option{
		mail.WithPort(port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(from),
		mail.WithPassword(password),
		mail.WithTimeout(15 * time.Second),
	}
	if port == 465 {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}
	client, err := mail.NewClient(host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}
	return NewServiceWithSender(client, from, logger), nil
}

func NewServiceWithSender(sender Sender, from string, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{logger: logger, sender: sender, from: from}
}

func (s *ServiceImpl) SendFavoritesEmail(ctx context.Context, to string, favorites []types.PlaceDetails) error {
	ctx, span := otel.Tracer("EmailService").Start(ctx, "SendFavoritesEmail", trace.WithAttributes(
		attribute.Int("favorites.count", len(favorites)),
	))
	defer span.End()

	body, err := FormatFavoritesHTML(favorites)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Render failed")
		return err
	}

	msg := mail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("%w: recipient address: %w", types.ErrInvalidInput, err)
	}
	msg.Subject(FavoritesSubject)
	msg.SetBodyString(mail.TypeTextHTML, body)

	if err := s.sender.DialAndSendWithContext(ctx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Send failed")
		s.logger.ErrorContext(ctx, "Failed to send favorites email", slog.Any("error", err))
		return fmt.Errorf("%w: failed to send email: %w", types.ErrProviderUnavailable, err)
	}
	s.logger.InfoContext(ctx, "Favorites email sent", slog.Int("favorites", len(favorites)))
	span.SetStatus(codes.Ok, "Email sent")
	return nil
}

var favoritesTemplate = template.Must(template.New("favorites").Funcs(template.FuncMap{
	"rating": func(r *float64) string { return strconv.FormatFloat(*r, 'f', -1, 64) },
	"orDefault": func(s *string, def string) string {
		if s == nil || *s == "" {
			return def
		}
		return *s
	},
}).Parse(`<div style="font-family:Arial, Helvetica, sans-serif;">
<h2 style="margin-bottom:16px;">Favori Gezi Listeniz</h2>
<p style="margin-top:0;">Aşağıda e-posta ile paylaştığınız favori mekanlarınız yer almaktadır.</p>
{{- range .}}
<div style="border:1px solid #e5e7eb;border-radius:8px;padding:12px;margin-bottom:12px;">
<h3 style="margin:0 0 8px 0;">{{if .Name}}{{.Name}}{{else}}Bilinmeyen Mekan{{end}}</h3>
<p style="margin:0 0 6px 0;"><strong>Kategori:</strong> {{orDefault .Category "Kategori yok"}}</p>
{{- if .Rating}}
<p><strong>Puan:</strong> {{rating .Rating}} ⭐</p>
{{- end}}
<p style="margin:8px 0;">{{orDefault .Description "Açıklama mevcut değil."}}</p>
<div>{{$name := .Name}}{{range .ImageURLs}}<img src="{{.}}" alt="{{$name}}" style="max-width:200px;margin-right:8px;margin-bottom:8px;" />{{end}}</div>
</div>
{{- end}}
<p style="color:#6b7280;margin-top:24px;">Akıllı Gezi Rehberi ile iyi gezmeler!</p>
</div>
`))

// FormatFavoritesHTML renders the favorites as an HTML email body with the
// place photos inlined as image tags.
func FormatFavoritesHTML(favorites []types.PlaceDetails) (string, error) {
	if len(favorites) == 0 {
		return "<p>Favori geziniz bulunamadı.</p>", nil
	}
	var buf bytes.Buffer
	if err := favoritesTemplate.Execute(&buf, favorites); err != nil {
		return "", fmt.Errorf("failed to render favorites email: %w", err)
	}
	return buf.String(), nil
}
