package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/caldera-data/dirscout/internal/directory"
)

// Session implements directory.Session on one chromedp browser context.
type Session struct {
	cfg Config
	ctx context.Context
}

// Navigate loads the given URL and waits for the document to be ready.
func (s *Session) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, s.cfg.OpTimeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// WaitVisible blocks until the selector matches a visible node, bounded by
// the supplied timeout.
func (s *Session) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = s.cfg.OpTimeout
	}
	return s.run(ctx, timeout, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

// Click clicks the first node matching the selector.
func (s *Session) Click(ctx context.Context, selector string) error {
	return s.run(ctx, s.cfg.OpTimeout, chromedp.Click(selector, chromedp.ByQuery))
}

// Visible reports whether the selector currently matches a visible node.
// Unlike WaitVisible it returns immediately.
func (s *Session) Visible(ctx context.Context, selector string) (bool, error) {
	var visible bool
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) return false;
		const style = window.getComputedStyle(el);
		return style.display !== 'none' && style.visibility !== 'hidden' && el.offsetParent !== null;
	})()`, selector)
	if err := s.run(ctx, s.cfg.OpTimeout, chromedp.Evaluate(script, &visible)); err != nil {
		return false, err
	}
	return visible, nil
}

// FirstAttr returns the named attribute of the first node matching the
// selector, or an empty string when the attribute is absent.
func (s *Session) FirstAttr(ctx context.Context, selector, attr string) (string, error) {
	var value string
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		return el ? (el.getAttribute(%q) || '') : '';
	})()`, selector, attr)
	if err := s.run(ctx, s.cfg.OpTimeout, chromedp.Evaluate(script, &value)); err != nil {
		return "", err
	}
	return value, nil
}

// Count returns how many nodes currently match the selector.
func (s *Session) Count(ctx context.Context, selector string) (int, error) {
	var count int
	script := fmt.Sprintf("document.querySelectorAll(%q).length", selector)
	if err := s.run(ctx, s.cfg.OpTimeout, chromedp.Evaluate(script, &count)); err != nil {
		return 0, err
	}
	return count, nil
}

// cardDTO mirrors directory.Card for JSON transport out of the page.
type cardDTO struct {
	Href   string     `json:"href"`
	Title  string     `json:"title"`
	Fields []fieldDTO `json:"fields"`
}

type fieldDTO struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Cards lifts every visible listing card out of the DOM in one evaluation,
// returning the profile link, title, and labeled field blocks per card.
func (s *Session) Cards(ctx context.Context) ([]directory.Card, error) {
	script := fmt.Sprintf(`Array.from(document.querySelectorAll(%q)).map(item => {
		const link = item.querySelector('a');
		const title = item.querySelector(%q);
		const fields = Array.from(item.querySelectorAll(%q)).map(block => {
			const label = block.querySelector(%q);
			const labelText = label ? label.innerText.trim() : '';
			let value = block.innerText.trim();
			if (labelText) {
				value = value.replace(labelText, '').trim();
			}
			return {label: labelText, value: value};
		});
		return {
			href: link ? (link.getAttribute('href') || '') : '',
			title: title ? title.innerText.trim() : '',
			fields: fields,
		};
	})`,
		s.cfg.ItemSelector, s.cfg.TitleSelector, s.cfg.FieldSelector, s.cfg.LabelSelector)

	var dtos []cardDTO
	if err := s.run(ctx, s.cfg.OpTimeout, chromedp.Evaluate(script, &dtos)); err != nil {
		return nil, fmt.Errorf("evaluate cards: %w", err)
	}

	cards := make([]directory.Card, 0, len(dtos))
	for _, dto := range dtos {
		card := directory.Card{
			Href:   dto.Href,
			Title:  dto.Title,
			Fields: make([]directory.LabeledField, 0, len(dto.Fields)),
		}
		for _, f := range dto.Fields {
			card.Fields = append(card.Fields, directory.LabeledField{Label: f.Label, Value: f.Value})
		}
		cards = append(cards, card)
	}
	return cards, nil
}

// run executes chromedp actions on the session's browser context, bounded by
// timeout and canceled if the caller's context finishes first.
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	taskCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()

	stopForward := forwardCancel(ctx, cancel)
	defer stopForward()

	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return fmt.Errorf("chromedp run: %w", err)
	}
	return nil
}

var _ directory.Session = (*Session)(nil)
