package report

import (
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/hashicorp/go-hclog"

	"shopee-shorts-pipeline/types"
)

// Sender is the part of the bot API the notifier needs
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier posts run results to a Telegram chat. With no bot configured
// every method logs and returns false.
type Notifier struct {
	sender Sender
	chatID string
	logger hclog.Logger
	now    func() time.Time
}

// NewNotifier connects to the bot API. endpoint may be empty for the public
// API; it takes the tgbotapi format "https://host/bot%s/%s".
func NewNotifier(token, chatID, endpoint string, logger hclog.Logger) *Notifier {
	logger = logger.Named("notify")
	n := &Notifier{chatID: chatID, logger: logger, now: time.Now}
	if token == "" || chatID == "" {
		return n
	}
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, &http.Client{Timeout: 15 * time.Second})
	if err != nil {
		logger.Warn("telegram bot unavailable, notifications disabled", "error", err)
		return n
	}
	n.sender = bot
	return n
}

// NewNotifierWithSender is used when the caller already has a Sender
func NewNotifierWithSender(sender Sender, chatID string, logger hclog.Logger) *Notifier {
	return &Notifier{sender: sender, chatID: chatID, logger: logger.Named("notify"), now: time.Now}
}

func (n *Notifier) Enabled() bool { return n.sender != nil && n.chatID != "" }

func (n *Notifier) send(text string) bool {
	if !n.Enabled() {
		n.logger.Info("telegram not configured, skipping notification")
		return false
	}

	var msg tgbotapi.MessageConfig
	if id, err := strconv.ParseInt(n.chatID, 10, 64); err == nil {
		msg = tgbotapi.NewMessage(id, text)
	} else {
		msg = tgbotapi.NewMessageToChannel(n.chatID, text)
	}
	msg.ParseMode = tgbotapi.ModeHTML

	if _, err := n.sender.Send(msg); err != nil {
		n.logger.Warn("telegram notification failed", "error", err)
		return false
	}
	n.logger.Debug("telegram notification sent")
	return true
}

func (n *Notifier) timestamp() string {
	return n.now().Format("15:04:05 02/01/2006")
}

func (n *Notifier) SendSuccess(result types.UploadResult) bool {
	lines := []string{
		"🎉 <b>Video Upload Successful!</b>",
		"",
		"📹 <b>Title:</b> " + html.EscapeString(result.Title),
		"🔗 <b>URL:</b> " + html.EscapeString(result.URL),
		"⏰ <b>Time:</b> " + n.timestamp(),
		"",
		"✅ Auto-upload completed successfully!",
	}
	return n.send(strings.Join(lines, "\n"))
}

func (n *Notifier) SendError(err error) bool {
	lines := []string{
		"❌ <b>Video Pipeline Failed!</b>",
		"",
		"🚨 <b>Error:</b> " + html.EscapeString(err.Error()),
		"⏰ <b>Time:</b> " + n.timestamp(),
		"",
		"Please check the logs for more details.",
	}
	return n.send(strings.Join(lines, "\n"))
}

func (n *Notifier) SendDailyReport(stats types.Stats) bool {
	lines := []string{
		"📊 <b>Daily Report - Auto Shopee Videos</b>",
		"",
		"📈 <b>Today's Stats:</b>",
		fmt.Sprintf("• Videos created: %d", stats.VideosCreated),
		fmt.Sprintf("• Videos uploaded: %d", stats.VideosUploaded),
		fmt.Sprintf("• Errors: %d", stats.Errors),
		"",
		fmt.Sprintf("🛒 <b>Products scraped:</b> %d", stats.ProductsScraped),
		"⏰ <b>Report time:</b> " + n.timestamp(),
	}
	return n.send(strings.Join(lines, "\n"))
}
