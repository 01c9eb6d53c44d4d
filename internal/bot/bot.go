// Package bot is the Telegram UI over the reservation engine and the event
// scheduler. One update is handled at a time; everything long-lived
// (reservations, scheduled notifications) is pushed down into the engine and
// scheduler packages.
package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/iyaskobsp-spec/helpme.bot/internal/audit"
	"github.com/iyaskobsp-spec/helpme.bot/internal/booking"
	"github.com/iyaskobsp-spec/helpme.bot/internal/models"
	"github.com/iyaskobsp-spec/helpme.bot/internal/scheduler"
	"github.com/iyaskobsp-spec/helpme.bot/internal/store"
)

type telegramClient interface {
	Send(tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	SelfUser() tgbotapi.User
}

type realTelegramClient struct {
	api *tgbotapi.BotAPI
}

func (c *realTelegramClient) Send(msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	return c.api.Send(msg)
}

func (c *realTelegramClient) Request(msg tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return c.api.Request(msg)
}

func (c *realTelegramClient) GetUpdatesChan(cfg tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return c.api.GetUpdatesChan(cfg)
}

func (c *realTelegramClient) SelfUser() tgbotapi.User {
	return c.api.Self
}

// Options tunes the UI layer.
type Options struct {
	RequestsTable  string
	StoresTable    string
	DaysAhead      int           // booking calendar window
	TimeStep       time.Duration // time picker step
	RemindHour     int           // day-before reminder hour
	Location       *time.Location
	SessionTimeout time.Duration
}

func (o *Options) defaults() {
	if o.RequestsTable == "" {
		o.RequestsTable = "Requests"
	}
	if o.StoresTable == "" {
		o.StoresTable = "Stores"
	}
	if o.DaysAhead <= 0 {
		o.DaysAhead = 10
	}
	if o.TimeStep <= 0 {
		o.TimeStep = 30 * time.Minute
	}
	if o.RemindHour <= 0 || o.RemindHour > 23 {
		o.RemindHour = 18
	}
	if o.Location == nil {
		o.Location = time.Local
	}
}

// Bot runs the Telegram dialog flows for posting and reserving shifts.
type Bot struct {
	tg        telegramClient
	cache     *store.Cache
	engine    *booking.Engine
	scheduler *scheduler.Scheduler
	sessions  *booking.SessionStore
	fsm       *booking.FSM
	exporter  *audit.Exporter
	logger    *zerolog.Logger
	opts      Options
}

// New connects to Telegram and builds the bot.
func New(token string, cache *store.Cache, engine *booking.Engine, exporter *audit.Exporter, opts Options, logger *zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return newBot(&realTelegramClient{api: api}, cache, engine, exporter, opts, logger)
}

// NewWithTelegramClient allows injecting a mocked Telegram client for tests.
func NewWithTelegramClient(tg telegramClient, cache *store.Cache, engine *booking.Engine, exporter *audit.Exporter, opts Options, logger *zerolog.Logger) (*Bot, error) {
	return newBot(tg, cache, engine, exporter, opts, logger)
}

func newBot(tg telegramClient, cache *store.Cache, engine *booking.Engine, exporter *audit.Exporter, opts Options, logger *zerolog.Logger) (*Bot, error) {
	if tg == nil {
		return nil, fmt.Errorf("telegram client is nil")
	}
	opts.defaults()
	return &Bot{
		tg:       tg,
		cache:    cache,
		engine:   engine,
		sessions: booking.NewSessionStore(opts.SessionTimeout),
		fsm:      booking.NewFSM(),
		exporter: exporter,
		logger:   logger,
		opts:     opts,
	}, nil
}

// AttachScheduler wires the scheduler once it exists; the scheduler in turn
// needs the bot as its Notifier, so the two are linked after construction.
func (b *Bot) AttachScheduler(s *scheduler.Scheduler) {
	b.scheduler = s
}

// Start polls updates until ctx is done.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.tg.GetUpdatesChan(u)
	b.logger.Info().Str("username", b.tg.SelfUser().UserName).Msg("bot authorized")

	for {
		select {
		case <-ctx.Done():
			return
		case update := <-updates:
			requestID := uuid.New().String()
			l := b.logger.With().Str("request_id", requestID).Logger()
			updateCtx := l.WithContext(ctx)
			b.handleUpdate(updateCtx, &update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update *tgbotapi.Update) {
	l := zerolog.Ctx(ctx)
	if update.CallbackQuery != nil {
		l.Debug().
			Int64("user_id", update.CallbackQuery.From.ID).
			Str("data", update.CallbackQuery.Data).
			Msg("handling callback query")
		b.handleCallback(ctx, update.CallbackQuery)
		return
	}
	if update.Message != nil {
		l.Debug().
			Int64("user_id", update.Message.From.ID).
			Str("text", update.Message.Text).
			Msg("handling message")
		b.handleMessage(ctx, update.Message)
		return
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg == nil || msg.From == nil {
		return
	}

	if msg.Contact != nil {
		b.handleContact(ctx, msg)
		return
	}

	text := strings.TrimSpace(msg.Text)
	switch {
	case strings.HasPrefix(text, "/start"), text == "🏠 Меню":
		b.sessions.Reset(msg.From.ID)
		b.sendMainMenu(msg.Chat.ID)
		return
	case strings.HasPrefix(text, "/ping"):
		b.reply(msg.Chat.ID, "Pong 🏓")
		return
	case strings.HasPrefix(text, "/export"):
		b.handleExport(ctx, msg.Chat.ID)
		return
	case strings.HasPrefix(text, "/"):
		b.reply(msg.Chat.ID, "Використовуй кнопки меню вище.")
		return
	}

	b.handleText(ctx, msg)
}

func (b *Bot) sendMainMenu(chatID int64) {
	msg := tgbotapi.NewMessage(chatID, "Оберіть дію:")
	msg.ReplyMarkup = mainMenuKeyboard()
	_, _ = b.tg.Send(msg)

	hint := tgbotapi.NewMessage(chatID, "Меню доступне внизу 👇")
	hint.ReplyMarkup = stableMenuKeyboard()
	_, _ = b.tg.Send(hint)
}

func (b *Bot) handleExport(ctx context.Context, chatID int64) {
	if b.exporter == nil {
		b.reply(chatID, "Експорт недоступний.")
		return
	}
	buf, err := b.exporter.Export(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("export failed")
		b.reply(chatID, "❌ Не вдалося сформувати звіт.")
		return
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  audit.GenerateFilename(time.Now().In(b.opts.Location)),
		Bytes: buf.Bytes(),
	})
	doc.Caption = "📊 Звіт по змінах та відвідуваності"
	if _, err := b.tg.Send(doc); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("export document send failed")
	}
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	_, _ = b.tg.Send(msg)
}

func (b *Bot) editText(chatID int64, messageID int, text string) {
	_, _ = b.tg.Send(tgbotapi.NewEditMessageText(chatID, messageID, text))
}

func (b *Bot) editWithMarkup(chatID int64, messageID int, text string, markup tgbotapi.InlineKeyboardMarkup) {
	_, _ = b.tg.Send(tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, markup))
}

func (b *Bot) answerCallback(id string) error {
	_, err := b.tg.Request(tgbotapi.NewCallback(id, ""))
	return err
}

// directory loads the Stores sheet through the read cache; staleness of up to
// a minute is fine for reference data.
func (b *Bot) directory(ctx context.Context) (*models.Directory, error) {
	rows, _, err := b.cache.GetAllRows(ctx, b.opts.StoresTable)
	if err != nil {
		return nil, fmt.Errorf("load stores: %w", err)
	}
	return models.NewDirectory(rows), nil
}

// Notify implements scheduler.Notifier.
func (b *Bot) Notify(_ context.Context, chatID int64, text string) error {
	_, err := b.tg.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

// NotifyArrivalPrompt implements scheduler.Notifier: the interactive
// "confirm arrival" button referencing a Requests row.
func (b *Bot) NotifyArrivalPrompt(_ context.Context, chatID int64, rowIdx int) error {
	msg := tgbotapi.NewMessage(chatID, "Будь ласка, підтвердьте прибуття:")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Я прибув(ла)", fmt.Sprintf("arrived:%d", rowIdx)),
		),
	)
	_, err := b.tg.Send(msg)
	return err
}
