// Package mail sends templated notifications. Bulk sends are best-effort:
// one send fans out per recipient, failures are collected per recipient and
// never abort siblings.
package mail

import (
	"context"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/eisengrid/service-api-go/internal/user/entity"
)

type Config struct {
	From string
}

func ConfigFromEnv() Config {
	from := os.Getenv("EMAIL_FROM")
	if from == "" {
		from = "no-reply@eisengrid.local"
	}
	return Config{From: from}
}

// Transport delivers a single message. The default transport only logs;
// a real SMTP transport slots in behind the same interface.
type Transport interface {
	SendMail(ctx context.Context, from, to, subject, body string) error
}

// LogTransport writes messages to the log instead of the wire. Useful for
// development and as the safe default.
type LogTransport struct {
	Logger *zap.SugaredLogger
}

func (t LogTransport) SendMail(_ context.Context, from, to, subject, body string) error {
	t.Logger.Infow("mail (log transport)", "from", from, "to", to, "subject", subject, "bytes", len(body))
	return nil
}

// Directory is the slice of the user store the sender needs.
type Directory interface {
	GetByID(ctx context.Context, id int64) (*entity.User, error)
}

// Sender resolves recipients and renders templates.
type Sender struct {
	users     Directory
	transport Transport
	from      string
	logger    *zap.SugaredLogger
}

func NewSender(users Directory, transport Transport, cfg Config, logger *zap.SugaredLogger) *Sender {
	return &Sender{users: users, transport: transport, from: cfg.From, logger: logger}
}

// Send delivers one templated message. Preference-gated templates are
// skipped silently for users who opted out of notifications; transactional
// templates (login codes) always send.
func (s *Sender) Send(ctx context.Context, userID int64, t Template, data map[string]string) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("mail recipient %d: %w", userID, err)
	}
	if t.RespectsPreference() && !u.SendNotifications {
		return nil
	}
	subject, body, err := render(t, u, data)
	if err != nil {
		return err
	}
	return s.transport.SendMail(ctx, s.from, u.Email, subject, body)
}

// SendBulk fans out one send per recipient and joins on completion. It
// returns the ids that were delivered and the per-recipient error list;
// a failure never aborts the other sends.
func (s *Sender) SendBulk(ctx context.Context, userIDs []int64, t Template, data map[string]string) (sent []int64, errs []error) {
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, id := range userIDs {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			err := s.Send(ctx, id, t, data)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("user %d: %w", id, err))
				return
			}
			sent = append(sent, id)
		}(id)
	}
	wg.Wait()
	return sent, errs
}
