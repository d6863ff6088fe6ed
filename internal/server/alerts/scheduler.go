// Package alerts turns sync failures into pending email rows. Delivery is
// done by an external mailer that consumes rows in the "tosend" state.
package alerts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/binsync/internal/common"
	"github.com/dmitrijs2005/binsync/internal/dbx"
	"github.com/dmitrijs2005/binsync/internal/server/models"
	"github.com/dmitrijs2005/binsync/internal/server/repositories/emails"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
)

type Mode string

const (
	ModeNone      Mode = "none"
	ModeImmediate Mode = "immediate"
	ModeHourly    Mode = "hourly"
	ModeDaily     Mode = "daily"
)

// ParseMode accepts the configuration spelling of a mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeNone, ModeImmediate, ModeHourly, ModeDaily:
		return m, nil
	}
	return "", fmt.Errorf("%w: unknown email alert mode %q", common.ErrConfig, s)
}

// DefaultMode is hourly once a destination address is known, none otherwise.
func DefaultMode(to string) Mode {
	if to != "" {
		return ModeHourly
	}
	return ModeNone
}

type Config struct {
	AppName string
	Mode    Mode
	From    string
	To      string
}

type repoProvider interface {
	Emails(db dbx.DBTX) emails.Repository
}

type Scheduler struct {
	cfg      Config
	repos    repoProvider
	sanitize *bluemonday.Policy
	now      func() time.Time
}

// NewScheduler validates cfg. Both addresses are required unless the mode
// is none.
func NewScheduler(cfg Config, repos repoProvider) (*Scheduler, error) {
	if cfg.Mode == "" {
		cfg.Mode = DefaultMode(cfg.To)
	}
	if _, err := ParseMode(string(cfg.Mode)); err != nil {
		return nil, err
	}
	if cfg.Mode != ModeNone && (cfg.From == "" || cfg.To == "") {
		return nil, fmt.Errorf("%w: email alert %q needs both from and to addresses", common.ErrConfig, cfg.Mode)
	}
	return &Scheduler{
		cfg:      cfg,
		repos:    repos,
		sanitize: bluemonday.StrictPolicy(),
		now:      time.Now,
	}, nil
}

func (s *Scheduler) Mode() Mode { return s.cfg.Mode }

// Subject is fixed per application so that pending alerts can be found again.
func (s *Scheduler) Subject() string {
	return fmt.Sprintf("[%s] Binary sync error report", s.cfg.AppName)
}

// Schedule records errMsg inside tx. An existing pending alert with the same
// subject gets the message appended; otherwise a new alert is created with
// the configured schedule.
func (s *Scheduler) Schedule(ctx context.Context, tx dbx.DBTX, errMsg string) error {
	if s.cfg.Mode == ModeNone {
		return nil
	}

	now := s.now()
	text, html := s.blocks(now, errMsg)
	repo := s.repos.Emails(tx)

	existing, err := repo.FindToSendBySubject(ctx, s.Subject())
	switch {
	case err == nil:
		return repo.UpdateBodies(ctx, existing.UID, existing.Text+text, existing.HTML+html)
	case !errors.Is(err, common.ErrNotFound):
		return err
	}

	// Insert appends instead when a concurrent attempt created the alert
	// after our lookup.
	scheduleType, scheduleDate := s.schedule(now)
	return repo.Insert(ctx, &models.EmailAlert{
		UID:          uuid.NewString(),
		FromAddr:     s.cfg.From,
		ToAddr:       s.cfg.To,
		Subject:      s.Subject(),
		Text:         text,
		HTML:         html,
		ScheduleType: scheduleType,
		ScheduleDate: scheduleDate,
		Status:       models.EmailStatusToSend,
	})
}

func (s *Scheduler) blocks(now time.Time, errMsg string) (string, string) {
	stamp := now.Format(time.RFC3339)
	text := fmt.Sprintf("[%s]\n%s\n\n", stamp, errMsg)
	html := fmt.Sprintf("<div><p><b>%s</b></p><pre>%s</pre></div>\n",
		stamp, s.sanitize.Sanitize(errMsg))
	return text, html
}

// schedule uses the wall clock of now, so hour and day buckets follow the
// server's local zone.
func (s *Scheduler) schedule(now time.Time) (models.ScheduleType, *time.Time) {
	y, m, d := now.Date()
	loc := now.Location()

	var at time.Time
	switch s.cfg.Mode {
	case ModeHourly:
		at = time.Date(y, m, d, now.Hour()+1, 0, 0, 0, loc)
	case ModeDaily:
		at = time.Date(y, m, d+1, 0, 0, 0, 0, loc)
	default:
		return models.ScheduleNow, nil
	}
	return models.ScheduleLater, &at
}
