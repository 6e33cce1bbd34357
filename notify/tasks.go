package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const (
	TypeEmailSend = "email:send"
	QueueEmail    = "email"
)

type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// NewEmailTask wraps an email into an asynq task.
func NewEmailTask(e Email) (*asynq.Task, error) {
	if err := e.validate(); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("notify: encode email: %w", err)
	}
	return asynq.NewTask(TypeEmailSend, payload, asynq.MaxRetry(5), asynq.Timeout(30*time.Second)), nil
}

// Queue hands emails to the worker instead of sending inline.
type Queue struct {
	client Enqueuer
	log    *zap.Logger
}

func NewQueue(client Enqueuer, log *zap.Logger) *Queue {
	if log == nil {
		log = zap.NewNop()
	}
	return &Queue{client: client, log: log}
}

func (q *Queue) Enqueue(ctx context.Context, e Email) error {
	task, err := NewEmailTask(e)
	if err != nil {
		return err
	}
	info, err := q.client.EnqueueContext(ctx, task, asynq.Queue(QueueEmail))
	if err != nil {
		return fmt.Errorf("notify: enqueue email: %w", err)
	}
	q.log.Debug("email queued", zap.String("task_id", info.ID), zap.String("subject", e.Subject))
	return nil
}

// SendWelcome queues the first-login email of a newly installed shop.
func (q *Queue) SendWelcome(ctx context.Context, to, shopName, password, loginURL string) error {
	html, err := renderTemplate(welcomeTmpl, map[string]string{
		"Shop":     shopName,
		"Email":    to,
		"Password": password,
		"LoginURL": loginURL,
	})
	if err != nil {
		return err
	}
	return q.Enqueue(ctx, Email{To: to, Subject: "Your ChargeMind account is ready", HTML: html})
}

// DisputeAlert describes a rise in a shop's dispute count.
type DisputeAlert struct {
	ClientName string
	ShopDomain string
	Previous   int
	Current    int
}

func (q *Queue) SendDisputeAlert(ctx context.Context, to string, a DisputeAlert) error {
	html, err := renderTemplate(alertTmpl, a)
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("New dispute on %s (%d total)", a.ShopDomain, a.Current)
	return q.Enqueue(ctx, Email{To: to, Subject: subject, HTML: html})
}

// Handler processes email:send tasks.
type Handler struct {
	mailer Mailer
	log    *zap.Logger
}

func NewHandler(mailer Mailer, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{mailer: mailer, log: log}
}

func (h *Handler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var e Email
	if err := json.Unmarshal(t.Payload(), &e); err != nil {
		return fmt.Errorf("notify: decode email task: %v: %w", err, asynq.SkipRetry)
	}
	if err := e.validate(); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if err := h.mailer.Send(ctx, e); err != nil {
		h.log.Warn("email delivery failed", zap.String("to", e.To), zap.Error(err))
		return err
	}
	h.log.Info("email sent", zap.String("to", e.To), zap.String("subject", e.Subject))
	return nil
}

var (
	welcomeTmpl = template.Must(template.New("welcome").Parse(`<p>Hi,</p>
<p>ChargeMind is now connected to <strong>{{.Shop}}</strong>.</p>
<p>Sign in as <strong>{{.Email}}</strong> with the temporary password <code>{{.Password}}</code>. You will be asked to choose a new one.</p>
<p><a href="{{.LoginURL}}">Open the dashboard</a></p>`))

	alertTmpl = template.Must(template.New("alert").Parse(`<p>{{.ClientName}} ({{.ShopDomain}}) has a new Shopify dispute.</p>
<p>Open disputes went from {{.Previous}} to {{.Current}}.</p>`))
)

func renderTemplate(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("notify: render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}
