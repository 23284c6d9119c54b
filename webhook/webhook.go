// Package webhook is the entry point of the agent: it receives mail
// change notifications, extracts the message ID and runs the agent
// loop to completion.
package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mailagent/agent"
	"github.com/effective-security/mailagent/internal/metricskey"
	"github.com/effective-security/mailagent/pkg/chat"
	"github.com/effective-security/mailagent/pkg/prompts"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mailagent", "webhook")

// resourceRe extracts the message ID from a Graph resource path like
// Users/{user}/Messages('{id}').
var resourceRe = regexp.MustCompile(`(?i)messages\('([^']+)'\)`)

var initialPrompt = prompts.MustNew(
	"A notification arrived for a new email with ID '{{.message_id}}'. "+
		"Decide which tool is appropriate to process this message and invoke it with the message_id.",
	[]string{"message_id"})

// Config describes the webhook endpoint.
type Config struct {
	// Addr is the listen address for the server.
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`
	// Path is the notification route, defaults to /webhook.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
	// ClientState, when set, must match the clientState of every
	// notification.
	ClientState string `json:"client_state,omitempty" yaml:"client_state,omitempty"`
}

func (c *Config) path() string {
	if c.Path != "" {
		return c.Path
	}
	return "/webhook"
}

// Notification is one change notification from a Graph subscription.
type Notification struct {
	SubscriptionID string `json:"subscriptionId"`
	ChangeType     string `json:"changeType"`
	ClientState    string `json:"clientState,omitempty"`
	Resource       string `json:"resource"`
}

type notificationBody struct {
	Value []Notification `json:"value"`
}

// runResponse is the success payload.
type runResponse struct {
	MessageID string `json:"message_id"`
	Summary   string `json:"summary"`
}

// errorResponse names the failure for the caller.
type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// Runner executes an agent run. Implemented by agent.Agent.
type Runner interface {
	Run(ctx context.Context, state *agent.State) (chat.Message, error)
}

// ExtractMessageID pulls the message ID out of a resource path.
func ExtractMessageID(resource string) (string, error) {
	m := resourceRe.FindStringSubmatch(resource)
	if m == nil {
		return "", errors.Newf("failed to extract message ID from resource: %s", resource)
	}
	return m[1], nil
}

// Handler serves the notification endpoint.
type Handler struct {
	cfg    Config
	runner Runner
}

// NewHandler creates the handler.
func NewHandler(cfg Config, runner Runner) *Handler {
	return &Handler{
		cfg:    cfg,
		runner: runner,
	}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Subscription validation handshake: echo the token back as
	// plain text.
	if token := r.URL.Query().Get("validationToken"); token != "" {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, token)
		return
	}

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "only POST is supported", "")
		return
	}

	ctx := r.Context()
	metricskey.StatsWebhookNotifications.IncrCounter(1)

	notification, err := h.parseNotification(r)
	if err != nil {
		logger.ContextKV(ctx, xlog.WARNING,
			"reason", "bad_notification",
			"err", err.Error(),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	messageID, err := ExtractMessageID(notification.Resource)
	if err != nil {
		logger.ContextKV(ctx, xlog.WARNING,
			"reason", "bad_resource",
			"err", err.Error(),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	prompt, err := initialPrompt.Format(map[string]any{"message_id": messageID})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}

	state := agent.NewState(messageID, chat.NewTextMessage(chat.RoleHuman, prompt))
	state.Notification = notification

	logger.ContextKV(ctx, xlog.INFO,
		"status", "run_start",
		"run_id", state.RunID,
		"message_id", messageID,
		"change_type", notification.ChangeType,
	)

	final, err := h.runner.Run(ctx, state)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error(), agent.FailureReason(err))
		return
	}

	writeJSON(w, http.StatusOK, runResponse{
		MessageID: messageID,
		Summary:   final.Content,
	})
}

func (h *Handler) parseNotification(r *http.Request) (*Notification, error) {
	defer r.Body.Close()
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to read body")
	}

	var body notificationBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, errors.WithMessage(err, "failed to decode notification")
	}
	if len(body.Value) == 0 {
		return nil, errors.New("notification contains no values")
	}

	notification := body.Value[0]
	if h.cfg.ClientState != "" && notification.ClientState != h.cfg.ClientState {
		return nil, errors.New("client state mismatch")
	}
	return &notification, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, reason string) {
	writeJSON(w, status, errorResponse{Error: msg, Reason: reason})
}

// NewServer wires the handler into an HTTP server.
func NewServer(cfg Config, runner Runner) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.path(), NewHandler(cfg, runner))
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
