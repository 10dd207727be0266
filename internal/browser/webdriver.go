package browser

import (
	"context"
	"fmt"
	"os"

	"github.com/tebeka/selenium"
	"go.uber.org/zap"
)

// WebDriverPage exposes a remote Selenium WebDriver session as the page
// capabilities a check consumes. The session lifecycle belongs to this
// wrapper: Close quits the driver.
type WebDriverPage struct {
	wd  selenium.WebDriver
	log *zap.SugaredLogger
}

// NewWebDriverPage connects to a running WebDriver server, e.g.
// "http://localhost:4444/wd/hub". An empty browserName defaults to chrome.
func NewWebDriverPage(remoteURL, browserName string, log *zap.SugaredLogger) (*WebDriverPage, error) {
	if browserName == "" {
		browserName = "chrome"
	}
	caps := selenium.Capabilities{"browserName": browserName}

	wd, err := selenium.NewRemote(caps, remoteURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to webdriver at %s: %w", remoteURL, err)
	}

	log.Debugw("webdriver session started", "remote", remoteURL, "browser", browserName)
	return &WebDriverPage{wd: wd, log: log}, nil
}

// Navigate loads url in the session.
func (p *WebDriverPage) Navigate(ctx context.Context, url string) error {
	if err := p.wd.Get(url); err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	return nil
}

// CurrentURL returns the session's current location.
func (p *WebDriverPage) CurrentURL(ctx context.Context) (string, error) {
	url, err := p.wd.CurrentURL()
	if err != nil {
		return "", fmt.Errorf("reading current url: %w", err)
	}
	return url, nil
}

// BodyText returns the visible text of the document body.
func (p *WebDriverPage) BodyText(ctx context.Context) (string, error) {
	body, err := p.wd.FindElement(selenium.ByTagName, "body")
	if err != nil {
		return "", fmt.Errorf("finding body element: %w", err)
	}
	text, err := body.Text()
	if err != nil {
		return "", fmt.Errorf("extracting body text: %w", err)
	}
	return text, nil
}

// Screenshot captures the viewport as PNG and writes it to path.
func (p *WebDriverPage) Screenshot(ctx context.Context, path string) error {
	png, err := p.wd.Screenshot()
	if err != nil {
		return fmt.Errorf("capturing screenshot: %w", err)
	}
	if err := os.WriteFile(path, png, 0644); err != nil {
		return fmt.Errorf("writing screenshot: %w", err)
	}
	p.log.Debugw("screenshot saved", "path", path)
	return nil
}

// Close terminates the WebDriver session.
func (p *WebDriverPage) Close() error {
	return p.wd.Quit()
}
