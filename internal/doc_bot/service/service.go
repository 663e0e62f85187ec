// Package service provides the core logic of the document filing bot: the
// guided dialogue that assembles document metadata and the pipeline that
// names, uploads and publishes the resulting file on Yandex.Disk.
package service

import (
	"context"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/DenisKhanov/DocBOT/internal/doc_bot/constant"
	"github.com/DenisKhanov/DocBOT/internal/doc_bot/models"
)

// Telegram is the part of the Telegram Bot API the service uses.
// *tgbotapi.BotAPI satisfies it directly.
type Telegram interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Disk defines the remote storage operations of the upload pipeline.
type Disk interface {
	Exists(ctx context.Context, diskPath string) (bool, error)
	Upload(ctx context.Context, localPath, diskPath string, overwrite bool) error
	Mkdir(ctx context.Context, diskPath string) error
	Publish(ctx context.Context, diskPath string) error
	PublicURL(ctx context.Context, diskPath string) (string, error)
}

// TemplateRegistry defines the template resolution operations.
type TemplateRegistry interface {
	ListNames(ctx context.Context) ([]string, error)
	EnsureLocal(ctx context.Context, name string) (string, error)
	LoadSchema(ctx context.Context, name string) (*models.TemplateSchema, error)
	ParseSchemaFile(localPath, name string) (*models.TemplateSchema, error)
	Register(ctx context.Context, localPath, name string) error
}

// BindingsRepository defines the durable user-to-template binding store.
type BindingsRepository interface {
	SetTemplate(chatID int64, templateName string) error
	Template(chatID int64) (string, bool)
}

// SessionRepository defines the volatile dialogue session store.
type SessionRepository interface {
	Get(chatID int64) (*models.Session, bool)
	Set(session *models.Session)
	Delete(chatID int64)
}

// AuthChecker answers whether a chat may use the bot at all.
type AuthChecker interface {
	IsAuthorized(chatID int64) bool
}

// DocBotServices is the main service struct of the bot, integrating all dependencies.
type DocBotServices struct {
	Bot      Telegram           // Telegram Bot API instance
	Disk     Disk               // Remote storage client
	Registry TemplateRegistry   // Template registry
	Bindings BindingsRepository // Durable user-template bindings
	Sessions SessionRepository  // In-flight dialogue sessions
	Auth     AuthChecker        // Authorized users list

	reportsFolder string // Disk folder holding per-template document folders
	stagingDir    string // Local directory for files staged before upload

	httpClient *http.Client
	now        func() time.Time
	wait       func(ctx context.Context, d time.Duration) error
}

// NewDocBot creates a new DocBotServices instance with the specified dependencies.
// Arguments:
//   - bot: Telegram Bot API instance.
//   - disk: remote storage client.
//   - registry: template registry.
//   - bindings: durable user-template binding store.
//   - sessions: dialogue session store.
//   - auth: authorized users list.
//   - reportsFolder: disk folder for uploaded documents.
//   - stagingDir: local staging directory.
//
// Returns a pointer to a DocBotServices.
func NewDocBot(bot Telegram, disk Disk, registry TemplateRegistry, bindings BindingsRepository, sessions SessionRepository, auth AuthChecker, reportsFolder, stagingDir string) *DocBotServices {
	return &DocBotServices{
		Bot:           bot,
		Disk:          disk,
		Registry:      registry,
		Bindings:      bindings,
		Sessions:      sessions,
		Auth:          auth,
		reportsFolder: reportsFolder,
		stagingDir:    stagingDir,
		httpClient:    &http.Client{Timeout: 60 * time.Second},
		now:           time.Now,
		wait:          waitFor,
	}
}

// waitFor blocks for the given duration or until the context is cancelled.
func waitFor(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// sendMessage sends a message to the specified chat with optional reply and markup.
// Arguments:
//   - chatID: the ID of the chat to send the message to.
//   - text: the text content of the message.
//   - replyToID: the ID of the message to reply to (0 if no reply).
//   - markup: an optional keyboard markup (nil if none).
//
// Returns an error if the message fails to send.
func (b *DocBotServices) sendMessage(chatID int64, text string, replyToID int, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if replyToID != 0 {
		msg.ReplyToMessageID = replyToID
	}
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	_, err := b.Bot.Send(msg)
	if err != nil {
		logrus.WithError(err).Errorf("Failed to send message to chat %d: %s", chatID, text)
	}
	return err
}

// choiceKeyboard builds a one-column reply keyboard from the options with a
// "back" button appended as the last row.
func (b *DocBotServices) choiceKeyboard(options []string) tgbotapi.ReplyKeyboardMarkup {
	rows := make([][]tgbotapi.KeyboardButton, 0, len(options)+1)
	for _, opt := range options {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(opt)))
	}
	rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(constant.BUTTON_TEXT_BACK)))

	markup := tgbotapi.NewReplyKeyboard(rows...)
	// Дополнительные настройки клавиатуры
	markup.ResizeKeyboard = true  // Подгоняет размер клавиатуры под экран
	markup.OneTimeKeyboard = true // Скрывает клавиатуру после выбора (опционально)
	return markup
}

// showMainMenu displays the main menu with the bot's actions.
// Returns an error if the menu message fails to send.
func (b *DocBotServices) showMainMenu(chatID int64) error {
	markup := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(constant.BUTTON_TEXT_CREATE_TEMPLATE)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(constant.BUTTON_TEXT_CHOOSE_TEMPLATE)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(constant.BUTTON_TEXT_UPLOAD_FILE)),
	)
	markup.ResizeKeyboard = true
	return b.sendMessage(chatID, "✅ Добро пожаловать! Выберите действие:", 0, markup)
}

// UpdateProcessing handles one incoming Telegram update. Authorization is
// checked once here, before any state is touched; an unauthorized message
// gets a fixed rejection and mutates nothing.
// Arguments:
//   - ctx: context governing the remote calls triggered by the update.
//   - update: the Telegram update to process.
func (b *DocBotServices) UpdateProcessing(ctx context.Context, update *tgbotapi.Update) {
	msg := update.Message
	if msg == nil {
		return
	}
	chatID := msg.Chat.ID

	if !b.Auth.IsAuthorized(chatID) {
		logrus.Warnf("Unauthorized message from chat %d", chatID)
		b.sendMessage(chatID, "❌ Доступ запрещён. Вы не авторизованы.", 0, nil)
		return
	}

	text := strings.TrimSpace(msg.Text)
	switch {
	case msg.Document != nil || len(msg.Photo) > 0:
		b.handleIncomingFile(ctx, msg)
	case text == "/start":
		logrus.Infof("Message [%s] from %s (chat %d)", msg.Text, msg.From.UserName, chatID)
		b.showMainMenu(chatID)
	case text == constant.BUTTON_TEXT_BACK:
		b.Sessions.Delete(chatID)
		b.showMainMenu(chatID)
	case text == constant.BUTTON_TEXT_CREATE_TEMPLATE:
		b.startCreateTemplate(chatID)
	case text == constant.BUTTON_TEXT_CHOOSE_TEMPLATE:
		b.startChooseTemplate(ctx, chatID)
	case text == constant.BUTTON_TEXT_UPLOAD_FILE:
		b.startUploadFlow(ctx, chatID)
	case text != "":
		b.handleDialogText(ctx, chatID, text)
	}
}
