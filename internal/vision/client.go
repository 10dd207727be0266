package vision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/juparave/cotestpilot/internal/domain"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"
)

// Typed outcomes callers can branch on.
var (
	ErrMissingKey  = errors.New("api key not configured")
	ErrEmptyPrompt = errors.New("prompt cannot be empty")
	ErrEmptyImage  = errors.New("image cannot be empty")
	ErrUnparsable  = errors.New("model output is not a valid JSON findings array")
)

// maxTokens bounds the model reply size.
const maxTokens = 4000

// requestTimeout is the transport-level timeout for one round trip.
const requestTimeout = 30 * time.Second

// fenceRe strips markdown code-fence delimiters from model replies.
var fenceRe = regexp.MustCompile("```.*?\\n|```")

// Client talks to a chat-completion-style multimodal endpoint. It performs
// no retries itself; retry policy belongs to the caller.
type Client struct {
	api     openai.Client
	apiKey  string
	model   string
	addTime bool
	log     *zap.SugaredLogger
}

// NewClient creates a vision client. baseURL may be empty for the OpenAI
// default endpoint.
func NewClient(apiKey, baseURL, model string, log *zap.SugaredLogger) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(requestTimeout),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if model == "" {
		model = "gpt-4o-mini"
	}

	return &Client{
		api:     openai.NewClient(opts...),
		apiKey:  apiKey,
		model:   model,
		addTime: true,
		log:     log,
	}
}

// Analyze sends the prompt and a base64-encoded JPEG screenshot to the
// vision endpoint and parses the reply into findings. The cleaned reply text
// is returned alongside, so callers still have the payload when parsing
// fails: an unparsable reply yields ErrUnparsable with the text intact.
// Validation failures surface before any network activity.
func (c *Client) Analyze(ctx context.Context, prompt, imageBase64 string) ([]domain.Finding, string, error) {
	if c.apiKey == "" {
		return nil, "", ErrMissingKey
	}
	if prompt == "" {
		return nil, "", ErrEmptyPrompt
	}
	if imageBase64 == "" {
		return nil, "", ErrEmptyImage
	}

	// Without an anchor the model can assume a stale "present" when judging
	// dates on the page.
	if c.addTime {
		prompt = fmt.Sprintf("Current time: %s\n%s", time.Now().Format("2006-01-02 15:04:05"), prompt)
	}

	params := openai.ChatCompletionNewParams{
		Model:     openai.ChatModel(c.model),
		MaxTokens: openai.Int(maxTokens),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(prompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: "data:image/jpeg;base64," + imageBase64,
				}),
			}),
		},
	}

	resp, err := c.api.Chat.Completions.New(ctx, params, option.WithJSONSet("format", "json"))
	if err != nil {
		var apierr *openai.Error
		if errors.As(err, &apierr) {
			return nil, "", fmt.Errorf("vision endpoint returned status %d: %w", apierr.StatusCode, err)
		}
		return nil, "", fmt.Errorf("calling vision endpoint: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, "", fmt.Errorf("vision endpoint returned no choices")
	}

	cleaned := strings.TrimSpace(fenceRe.ReplaceAllString(resp.Choices[0].Message.Content, ""))

	var findings []domain.Finding
	if err := json.Unmarshal([]byte(cleaned), &findings); err != nil {
		c.log.Debugw("model reply did not parse as findings", "error", err)
		return nil, cleaned, fmt.Errorf("%w: %v", ErrUnparsable, err)
	}

	return findings, cleaned, nil
}

// SetAddTime toggles the current-time prompt prefix. Mainly for tests that
// need byte-deterministic prompts.
func (c *Client) SetAddTime(enabled bool) {
	c.addTime = enabled
}
