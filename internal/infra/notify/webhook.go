package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"lighter_go/internal/domain"

	"github.com/shopspring/decimal"
)

// WebhookNotifier POSTs execution reports to a configured endpoint when
// their cost exceeds the threshold. It is the delivery half of the
// notification collaborator; rendering happens on the receiving side.
type WebhookNotifier struct {
	url       string
	threshold decimal.Decimal
	icons     *IconCache
	client    *http.Client
	logger    *slog.Logger
}

// NewWebhookNotifier creates a notifier. icons may be nil; reports then
// go out without an icon path.
func NewWebhookNotifier(url string, costThreshold decimal.Decimal, icons *IconCache) *WebhookNotifier {
	return &WebhookNotifier{
		url:       url,
		threshold: costThreshold,
		icons:     icons,
		client:    &http.Client{Timeout: 5 * time.Second},
		logger:    slog.Default().With("module", "notify"),
	}
}

// webhookPayload wraps the report with rendering hints.
type webhookPayload struct {
	*domain.ExecutionReport
	IconPath string `json:"icon_path,omitempty"`
}

// Notify delivers one report. Reports under the cost threshold are
// skipped silently; delivery failures are returned but never fatal to
// the caller.
func (n *WebhookNotifier) Notify(report *domain.ExecutionReport) error {
	if n.url == "" {
		return nil
	}
	cost := decimal.NewFromFloat(math.Abs(report.Cost))
	if cost.LessThan(n.threshold) {
		return nil
	}

	payload := webhookPayload{ExecutionReport: report}
	if n.icons != nil {
		if path, err := n.icons.FetchIcon(report.Symbol); err == nil {
			payload.IconPath = path
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	resp, err := n.client.Post(n.url, "application/json", bytes.NewReader(body))
	if err != nil {
		return domain.NewNetworkError("webhook notify", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook rejected report: status=%d", resp.StatusCode)
	}

	n.logger.Debug("Report delivered", "id", report.ID, "symbol", report.Symbol)
	return nil
}
