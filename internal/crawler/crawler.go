package crawler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
)

// Options configures the crawler behavior
type Options struct {
	Timeout time.Duration // bound for the form to render its questions
}

// Crawl navigates page to url and extracts the question blocks of the form
func Crawl(ctx context.Context, page *rod.Page, url string, opts Options) (*FormMap, error) {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	p := page.Context(ctx)

	if err := p.Navigate(url); err != nil {
		return nil, fmt.Errorf("navigate %s: %w", url, err)
	}
	loading := p.Timeout(opts.Timeout)
	err := loading.WaitLoad()
	loading.CancelTimeout()
	if err != nil {
		return nil, fmt.Errorf("wait for load: %w", err)
	}

	// Wait for network to be idle; forms keep long-poll connections open so bound it
	idle := p.Timeout(5 * time.Second)
	idle.WaitRequestIdle(500*time.Millisecond, nil, nil, nil)()
	idle.CancelTimeout()

	if err := waitForQuestions(ctx, p, opts.Timeout); err != nil {
		return nil, err
	}

	title, err := p.Eval(`() => document.title`)
	if err != nil {
		return nil, fmt.Errorf("read title: %w", err)
	}

	questions, err := extractQuestions(p)
	if err != nil {
		return nil, err
	}

	return &FormMap{
		URL:       url,
		Title:     title.Value.String(),
		Questions: questions,
	}, nil
}

// waitForQuestions polls until at least one question block appears or timeout
func waitForQuestions(ctx context.Context, page *rod.Page, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	checkInterval := 200 * time.Millisecond

	for time.Now().Before(deadline) {
		res, err := page.Eval(`() => document.querySelectorAll('[role="listitem"], fieldset, .form-group').length`)
		if err != nil {
			return fmt.Errorf("probe questions: %w", err)
		}
		if res.Value.Int() > 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(checkInterval):
		}
	}
	return fmt.Errorf("no question blocks rendered within %s", timeout)
}

// extractQuestions finds each question block, its heading and its control
func extractQuestions(page *rod.Page) ([]Question, error) {
	res, err := page.Eval(`() => {
		const out = [];
		const seen = new Set();

		// Helper to check if a class name is a valid CSS identifier
		function isValidCSSClass(cls) {
			if (!cls || cls.length === 0) return false;
			if (/^-?[0-9]/.test(cls)) return false;
			if (/[.:#\[\]()>~+*\/\\]/.test(cls)) return false;
			return true;
		}

		// Helper to generate a selector that resolves to el alone
		function getSelector(el) {
			if (el.id && isValidCSSClass(el.id)) return '#' + el.id;
			if (el.name && document.querySelectorAll('[name="' + el.name + '"]').length === 1) {
				return '[name="' + el.name + '"]';
			}
			const parent = el.parentElement;
			if (!parent || parent === document.body) {
				return 'body > ' + el.tagName.toLowerCase();
			}
			const index = Array.from(parent.children).indexOf(el) + 1;
			return getSelector(parent) + ' > ' + el.tagName.toLowerCase() + ':nth-child(' + index + ')';
		}

		const blocks = document.querySelectorAll('[role="listitem"], fieldset, .form-group');
		blocks.forEach(block => {
			const control = block.querySelector(
				'input:not([type="hidden"]):not([type="submit"]):not([type="button"]), textarea, select, [role="listbox"], [role="radiogroup"], [role="group"]');
			if (!control) return;
			const selector = getSelector(control);
			if (seen.has(selector)) return;
			seen.add(selector);

			const heading = block.querySelector('[role="heading"], legend, label');
			const options = [];
			block.querySelectorAll('[role="option"], [role="radio"], [role="checkbox"], option').forEach(o => {
				const text = (o.getAttribute('data-value') || o.getAttribute('aria-label') || o.textContent || '').trim();
				if (text && !options.includes(text)) options.push(text.slice(0, 80));
			});

			out.push({
				locator: selector,
				title: ((heading && heading.textContent) || '').trim().slice(0, 120),
				tag: control.tagName.toLowerCase(),
				role: control.getAttribute('role') || '',
				type: control.getAttribute('type') || '',
				options: options
			});
		});
		return out;
	}`)
	if err != nil {
		return nil, fmt.Errorf("extract questions: %w", err)
	}

	var questions []Question
	for _, v := range res.Value.Arr() {
		q := Question{
			Locator: v.Get("locator").String(),
			Title:   strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v.Get("title").String()), "*")),
			Kind:    kindOf(v.Get("tag").String(), v.Get("role").String(), v.Get("type").String()),
		}
		for _, o := range v.Get("options").Arr() {
			q.Options = append(q.Options, o.String())
		}
		questions = append(questions, q)
	}

	return questions, nil
}
