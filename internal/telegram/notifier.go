// Package telegram pushes signal and position alerts to a chat.
package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/camuig/paper-desk/internal/config"
	"github.com/camuig/paper-desk/internal/domain"
	"github.com/camuig/paper-desk/internal/ledger"
	"github.com/camuig/paper-desk/internal/logger"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Notifier struct {
	bot           sender
	chatID        int64
	enabled       bool
	minConfidence float64
	logger        *logger.Logger
}

var _ ledger.Observer = (*Notifier)(nil)

func NewNotifier(cfg config.TelegramConfig, log *logger.Logger) *Notifier {
	if !cfg.Enabled {
		return &Notifier{enabled: false, logger: log}
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Error("failed to create telegram bot", "error", err)
		return &Notifier{enabled: false, logger: log}
	}

	log.Info("telegram bot connected", "username", bot.Self.UserName)

	return newNotifier(bot, cfg, log)
}

func newNotifier(bot sender, cfg config.TelegramConfig, log *logger.Logger) *Notifier {
	return &Notifier{
		bot:           bot,
		chatID:        cfg.ChatID,
		enabled:       true,
		minConfidence: cfg.MinConfidence,
		logger:        log,
	}
}

func (n *Notifier) Enabled() bool {
	return n.enabled
}

// NotifySignal pushes actionable signals at or above the confidence floor.
// HOLD and degraded signals are not pushed.
func (n *Notifier) NotifySignal(sig domain.Signal) bool {
	if sig.Kind == domain.SignalHold || sig.IsDegraded() || sig.Confidence < n.minConfidence {
		return false
	}

	emoji := "🟢"
	if sig.Kind == domain.SignalSell {
		emoji = "🔴"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s *%s* %s\n", emoji, sig.Kind, escape(sig.Symbol))
	fmt.Fprintf(&b, "Confidence: %.1f%%\n", sig.Confidence*100)
	if sig.CurrentPrice != nil {
		fmt.Fprintf(&b, "Price: %.4f\n", *sig.CurrentPrice)
	}
	fmt.Fprintf(&b, "RSI: %.1f  MACD: %.4f\n", sig.Indicators.RSI, sig.Indicators.MACD)
	fmt.Fprintf(&b, "Model: %s", escape(sig.ModelVersion))
	return n.send(b.String())
}

func (n *Notifier) ObservePosition(kind ledger.EventKind, p domain.Position) {
	switch kind {
	case ledger.EventOpened:
		n.NotifyPositionOpened(p)
	case ledger.EventClosed:
		n.NotifyPositionClosed(p)
	}
}

func (n *Notifier) NotifyPositionOpened(p domain.Position) {
	msg := fmt.Sprintf("📂 *OPEN* %s %s\nEntry: %.4f\nQty: %g\nLeverage: %gx",
		p.Type, escape(p.AssetSymbol), p.EntryPrice, p.Quantity, p.Leverage)
	n.send(msg)
}

func (n *Notifier) NotifyPositionClosed(p domain.Position) {
	pnl, ok := ledger.Realized(p)
	if !ok {
		return
	}
	emoji := "🔴"
	if pnl.Leveraged > 0 {
		emoji = "💰"
	}
	msg := fmt.Sprintf("%s *CLOSE* %s %s\nEntry: %.4f\nExit: %.4f\nP&L: %.2f (%.2f%%)",
		emoji, p.Type, escape(p.AssetSymbol), p.EntryPrice, *p.ExitPrice, pnl.Leveraged, pnl.LeveragedPercent)
	n.send(msg)
}

func (n *Notifier) NotifyError(context string, err error) {
	msg := fmt.Sprintf("⚠️ *Error* [%s]\n%s", escape(context), escape(err.Error()))
	n.send(msg)
}

func (n *Notifier) NotifyStatus(message string) {
	n.send(message)
}

func (n *Notifier) send(text string) bool {
	if !n.enabled {
		return false
	}

	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := n.bot.Send(msg); err != nil {
		n.logger.Error("send telegram message", "error", err)
		return false
	}
	return true
}

// escape guards symbols such as BTC_USD against legacy Markdown italics.
func escape(s string) string {
	return strings.NewReplacer("_", `\_`, "*", `\*`, "`", "\\`", "[", `\[`).Replace(s)
}
