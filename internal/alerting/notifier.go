package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"cross-arb/internal/arb"
)

// TelegramNotifier delivers coordinator events via the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier constructs a Telegram notifier.
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify renders the event as text and calls sendMessage.
func (n *TelegramNotifier) Notify(ctx context.Context, event arb.Event) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    renderMessage(event),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram unexpected status: %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram returned ok=false")
		}
	}

	n.logger.Info().
		Str("kind", string(event.Kind)).
		Str("pair", event.Opportunity.Pair).
		Msg("alert sent (Telegram)")
	return nil
}

func renderMessage(event arb.Event) string {
	opp := event.Opportunity
	builder := strings.Builder{}

	switch event.Kind {
	case arb.EventTradeExecuted:
		builder.WriteString("[Arbitrage Trade Executed]\n")
	case arb.EventExecutionFailed:
		if event.Reason == arb.ReasonPartialLeg {
			builder.WriteString("[PARTIAL TRADE - MANUAL RECONCILIATION REQUIRED]\n")
		} else {
			builder.WriteString("[Arbitrage Execution Failed]\n")
		}
	default:
		builder.WriteString("[Arbitrage Opportunity]\n")
	}

	builder.WriteString(fmt.Sprintf("Time: %s UTC\n", event.OccurredAt.UTC().Format(time.RFC3339)))
	builder.WriteString(fmt.Sprintf("Buy %s on %s at ask %s\n", opp.Pair, opp.BuyVenue, opp.AskPrice.String()))
	builder.WriteString(fmt.Sprintf("Sell %s on %s at bid %s\n", opp.Pair, opp.SellVenue, opp.BidPrice.String()))
	builder.WriteString(fmt.Sprintf("Gross profit: %s%%\n", opp.GrossProfitPct.StringFixed(4)))

	switch event.Kind {
	case arb.EventTradeExecuted, arb.EventOpportunityObserved:
		builder.WriteString(fmt.Sprintf("Net profit: %s (fees %s, taxes %s)\n",
			event.Profit.NetProfit.StringFixed(4),
			event.Profit.Fees.StringFixed(4),
			event.Profit.Taxes.StringFixed(4),
		))
		if event.Amount.IsPositive() {
			builder.WriteString(fmt.Sprintf("Amount: %s\n", event.Amount.String()))
		}
	case arb.EventExecutionFailed:
		builder.WriteString(fmt.Sprintf("Reason: %s\n", event.Reason))
		if event.Err != nil {
			builder.WriteString(fmt.Sprintf("Error: %s\n", event.Err.Error()))
		}
	}

	return builder.String()
}

var _ arb.Notifier = (*TelegramNotifier)(nil)
