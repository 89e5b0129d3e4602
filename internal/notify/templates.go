package notify

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/dustin/go-humanize"
)

// TimerMessage is the data rendered into SLA notification bodies.
type TimerMessage struct {
	TicketID      string
	TicketNumber  int64
	Title         string
	Priority      string
	Timer         string
	RecipientName string
	Deadline      time.Time
	Now           time.Time
	Remaining     time.Duration
	Overdue       time.Duration
	TicketURL     string
}

var (
	//go:embed templates/*.tmpl
	templateFS embed.FS

	templates = template.Must(
		template.New("sla").
			Funcs(sprig.TxtFuncMap()).
			Funcs(template.FuncMap{
				"minutes": FormatMinutes,
				"utc":     func(t time.Time) string { return t.UTC().Format(time.RFC1123) },
				"relTime": func(deadline, now time.Time) string { return humanize.RelTime(deadline, now, "ago", "from now") },
			}).
			ParseFS(templateFS, "templates/*.tmpl"),
	)
)

func render(name string, msg TimerMessage) (string, error) {
	var b bytes.Buffer
	if err := templates.ExecuteTemplate(&b, name, msg); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return b.String(), nil
}

// RenderWarning renders the approaching-deadline body.
func RenderWarning(msg TimerMessage) (string, error) {
	return render("warning.tmpl", msg)
}

// RenderBreach renders the missed-deadline body sent to the ticket owner.
func RenderBreach(msg TimerMessage) (string, error) {
	return render("breach.tmpl", msg)
}

// RenderEscalation renders the body sent to the escalation roster.
func RenderEscalation(msg TimerMessage) (string, error) {
	return render("escalation.tmpl", msg)
}

// WarningSubject builds the subject of an approaching-deadline message.
func WarningSubject(number int64, timer string) string {
	return fmt.Sprintf("SLA Warning: Ticket #%d approaching %s deadline", number, timer)
}

// BreachSubject builds the subject of the owner breach message.
func BreachSubject(number int64, timer string) string {
	return fmt.Sprintf("SLA Breach: Ticket #%d missed %s deadline", number, timer)
}

// EscalationSubject builds the subject of the roster message.
func EscalationSubject(number int64, timer string) string {
	return fmt.Sprintf("SLA Escalation: Ticket #%d breached %s SLA", number, timer)
}

// TicketURL fills a "{id}" or "{number}" placeholder template. Empty template yields "".
func TicketURL(tmpl, id string, number int64) string {
	if tmpl == "" {
		return ""
	}
	r := strings.NewReplacer("{id}", id, "{number}", fmt.Sprint(number))
	return r.Replace(tmpl)
}

// FormatMinutes renders a duration rounded to whole minutes, e.g. "1 hour 5 minutes".
func FormatMinutes(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	total := int64(d.Round(time.Minute) / time.Minute)
	hours, mins := total/60, total%60
	switch {
	case hours == 0:
		return plural(mins, "minute")
	case mins == 0:
		return plural(hours, "hour")
	default:
		return plural(hours, "hour") + " " + plural(mins, "minute")
	}
}

func plural(n int64, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
