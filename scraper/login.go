package scraper

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

// loginForm is what Login learns from the portal login page.
type loginForm struct {
	action    string
	userField string
	passField string
	fields    map[string]string
}

// Login authenticates the shared session: it fetches the login page,
// locates the form holding a password input, and submits the
// configured credentials through the session jar. A no-op when no
// credentials are configured.
func (s *Scraper) Login(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.cfg.Username == "" || s.cfg.Password == "" {
		slog.Debug("no portal credentials configured, skipping login")
		return nil
	}

	c := s.newPageCollector()

	var form loginForm
	c.OnRequest(func(r *colly.Request) {
		s.Metrics.IncRequest("login")
	})
	c.OnHTML("form", func(e *colly.HTMLElement) {
		if form.passField != "" {
			return
		}
		pass := e.DOM.Find("input[type='password']").First()
		if pass.Length() == 0 {
			return
		}
		form.passField, _ = pass.Attr("name")

		user := e.DOM.Find("input[name='username'], input[name='user'], input[name*='user'], input[type='text']").First()
		form.userField, _ = user.Attr("name")

		form.action = e.Request.AbsoluteURL(e.Attr("action"))
		if form.action == "" {
			form.action = e.Request.URL.String()
		}

		// Hidden inputs (CSRF tokens and friends) ride along unchanged.
		form.fields = make(map[string]string)
		e.DOM.Find("input[type='hidden']").Each(func(_ int, input *goquery.Selection) {
			if name, ok := input.Attr("name"); ok && name != "" {
				form.fields[name], _ = input.Attr("value")
			}
		})
	})

	loginURL := s.cfg.LoginURL()
	if err := c.Visit(loginURL); err != nil {
		return fmt.Errorf("fetch login page: %w", err)
	}
	if form.passField == "" {
		return fmt.Errorf("no login form with a password field at %s", loginURL)
	}
	if form.userField == "" {
		return fmt.Errorf("no username field in login form at %s", loginURL)
	}

	form.fields[form.userField] = s.cfg.Username
	form.fields[form.passField] = s.cfg.Password
	if err := c.Post(form.action, form.fields); err != nil {
		return fmt.Errorf("submit login form: %w", err)
	}

	slog.Info("portal login submitted", slog.String("url", form.action))
	return nil
}
