package service

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/DenisKhanov/DocBOT/internal/doc_bot/constant"
	"github.com/DenisKhanov/DocBOT/internal/doc_bot/models"
)

// sumPattern accepts an integer amount with an optional dot and up to two decimals.
var sumPattern = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)

// firstRunes truncates a string to at most n runes.
func firstRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) > n {
		runes = runes[:n]
	}
	return string(runes)
}

// startCreateTemplate begins the template creation flow.
func (b *DocBotServices) startCreateTemplate(chatID int64) {
	logrus.Infof("Chat %d creates a template", chatID)
	b.Sessions.Set(&models.Session{ChatID: chatID, State: models.StateAwaitingTemplateName})
	b.sendMessage(chatID, "Введите название шаблона:", 0, nil)
}

// startChooseTemplate lists the known templates as keyboard choices.
func (b *DocBotServices) startChooseTemplate(ctx context.Context, chatID int64) {
	names, err := b.Registry.ListNames(ctx)
	if err != nil {
		logrus.WithError(err).Errorf("Failed to list templates for chat %d", chatID)
		b.sendMessage(chatID, "❌ Не удалось получить список шаблонов. Попробуйте позже.", 0, nil)
		return
	}
	if len(names) == 0 {
		b.sendMessage(chatID, "❌ Шаблоны не найдены.", 0, nil)
		return
	}
	b.Sessions.Set(&models.Session{ChatID: chatID, State: models.StateAwaitingTemplateChoice})
	b.sendMessage(chatID, "Выберите шаблон:", 0, b.choiceKeyboard(names))
}

// startUploadFlow begins the document filing dialogue. It requires an
// existing template binding and captures the schema snapshot the rest of the
// dialogue validates against.
func (b *DocBotServices) startUploadFlow(ctx context.Context, chatID int64) {
	templateName, ok := b.Bindings.Template(chatID)
	if !ok {
		b.sendMessage(chatID, "❌ Сначала выберите шаблон с помощью команды '"+constant.BUTTON_TEXT_CHOOSE_TEMPLATE+"'", 0, nil)
		return
	}
	schema, err := b.Registry.LoadSchema(ctx, templateName)
	if err != nil {
		logrus.WithError(err).Errorf("Failed to load schema %s for chat %d", templateName, chatID)
		b.sendMessage(chatID, "❌ Не удалось загрузить шаблон. Попробуйте позже.", 0, nil)
		return
	}
	b.Sessions.Set(&models.Session{ChatID: chatID, State: models.StateAwaitingCategory, Schema: schema})
	b.sendMessage(chatID, "Выберите категорию:", 0, b.choiceKeyboard(schema.CategoryNames()))
}

// handleDialogText advances the dialogue of the chat by one text input.
// Text from a chat with no active session that reached this point is not a
// menu command and is silently ignored.
func (b *DocBotServices) handleDialogText(ctx context.Context, chatID int64, text string) {
	session, ok := b.Sessions.Get(chatID)
	if !ok {
		return
	}

	switch session.State {
	case models.StateAwaitingTemplateName:
		b.handleTemplateName(ctx, session, text)
	case models.StateAwaitingTemplateChoice:
		b.handleTemplateChoice(ctx, session, text)
	case models.StateAwaitingCategory:
		b.handleCategory(session, text)
	case models.StateAwaitingItem:
		b.handleItem(session, text)
	case models.StateAwaitingTypeDoc:
		b.handleTypeDoc(session, text)
	case models.StateAwaitingSum:
		b.handleSum(session, text)
	case models.StateAwaitingDateChoice:
		b.handleDateChoice(session, text)
	case models.StateAwaitingCustomDate:
		b.handleCustomDate(session, text)
	}
}

// handleTemplateName stores the name of the template being created unless a
// template with that name already exists.
func (b *DocBotServices) handleTemplateName(ctx context.Context, session *models.Session, text string) {
	existing, err := b.Registry.ListNames(ctx)
	if err != nil {
		logrus.WithError(err).Errorf("Failed to list templates for chat %d", session.ChatID)
		b.sendMessage(session.ChatID, "❌ Не удалось получить список шаблонов. Попробуйте позже.", 0, nil)
		return
	}
	if slices.Contains(existing, text+constant.TEMPLATE_EXT) {
		b.sendMessage(session.ChatID, "❌ Шаблон с таким названием уже существует. Попробуйте другое.", 0, nil)
		return
	}
	session.TemplateName = text
	session.State = models.StateAwaitingTemplateFile
	b.Sessions.Set(session)
	b.sendMessage(session.ChatID, "Отправьте шаблон Excel-файлом (.xlsx), содержащим нужные столбцы.", 0, nil)
}

// handleTemplateChoice binds the chat to the chosen template and prefetches
// its local copy.
func (b *DocBotServices) handleTemplateChoice(ctx context.Context, session *models.Session, text string) {
	existing, err := b.Registry.ListNames(ctx)
	if err != nil {
		logrus.WithError(err).Errorf("Failed to list templates for chat %d", session.ChatID)
		b.sendMessage(session.ChatID, "❌ Не удалось получить список шаблонов. Попробуйте позже.", 0, nil)
		return
	}
	if !slices.Contains(existing, text) {
		b.sendMessage(session.ChatID, "❌ Такого шаблона нет. Попробуйте снова.", 0, nil)
		return
	}
	if err = b.Bindings.SetTemplate(session.ChatID, text); err != nil {
		logrus.WithError(err).Errorf("Failed to persist template binding for chat %d", session.ChatID)
		b.sendMessage(session.ChatID, "❌ Не удалось сохранить выбор шаблона. Попробуйте снова.", 0, nil)
		return
	}
	if _, err = b.Registry.EnsureLocal(ctx, text); err != nil {
		// Prefetch only; the upload flow downloads again when needed.
		logrus.WithError(err).Warnf("Failed to prefetch template %s", text)
	}
	b.sendMessage(session.ChatID, fmt.Sprintf("✅ Шаблон '%s' выбран.", text), 0, nil)
	b.Sessions.Delete(session.ChatID)
	b.showMainMenu(session.ChatID)
}

// handleCategory validates the chosen category against the schema snapshot
// and lists its expense items.
func (b *DocBotServices) handleCategory(session *models.Session, text string) {
	category := session.Schema.FindCategory(text)
	if category == nil {
		b.sendMessage(session.ChatID, "❌ Неверная категория. Попробуйте снова.", 0, nil)
		return
	}
	session.Category = text
	session.State = models.StateAwaitingItem
	b.Sessions.Set(session)
	b.sendMessage(session.ChatID, "Выберите статью расходов:", 0, b.choiceKeyboard(category.ItemNames()))
}

// handleItem resolves the short codes for the chosen expense item. Text that
// matches no item row is accepted as a free-form item: the category keeps its
// own short code and the item short code becomes the first 6 runes of the text.
func (b *DocBotServices) handleItem(session *models.Session, text string) {
	category := session.Schema.FindCategory(session.Category)
	if category == nil {
		logrus.Errorf("Session of chat %d references unknown category %q", session.ChatID, session.Category)
		b.Sessions.Delete(session.ChatID)
		b.showMainMenu(session.ChatID)
		return
	}

	session.ShortCategory = category.Short
	if item := category.FindItem(text); item != nil {
		session.ShortItem = item.Short
	} else {
		session.ShortItem = firstRunes(text, 6)
	}
	session.State = models.StateAwaitingTypeDoc
	b.Sessions.Set(session)
	b.sendMessage(session.ChatID, "Выберите тип документа:", 0, b.choiceKeyboard(constant.DocTypeNames))
}

// handleTypeDoc maps the document type to its filename code; unknown text
// falls back to its own first 6 runes.
func (b *DocBotServices) handleTypeDoc(session *models.Session, text string) {
	code, ok := constant.DocTypeCodes[text]
	if !ok {
		code = firstRunes(text, 6)
	}
	session.TypeDoc = code
	session.State = models.StateAwaitingSum
	b.Sessions.Set(session)
	b.sendMessage(session.ChatID, "Укажите сумму в рублях:", 0, nil)
}

// handleSum validates and stores the amount.
func (b *DocBotServices) handleSum(session *models.Session, text string) {
	if !sumPattern.MatchString(text) {
		b.sendMessage(session.ChatID, "❌ Введите корректную сумму (только цифры, можно с точкой).", 0, nil)
		return
	}
	session.Sum = text
	session.State = models.StateAwaitingDateChoice
	b.Sessions.Set(session)
	b.sendMessage(session.ChatID, "Выберите дату:", 0, b.choiceKeyboard([]string{constant.BUTTON_TEXT_TODAY, constant.BUTTON_TEXT_CUSTOM_DATE}))
}

// handleDateChoice stores today's date or switches to custom date entry.
func (b *DocBotServices) handleDateChoice(session *models.Session, text string) {
	switch text {
	case constant.BUTTON_TEXT_TODAY:
		session.Date = b.now().Format(constant.DATE_LAYOUT)
		b.promptForFile(session)
	case constant.BUTTON_TEXT_CUSTOM_DATE:
		session.State = models.StateAwaitingCustomDate
		b.Sessions.Set(session)
		b.sendMessage(session.ChatID, "Введите дату в формате ДД-ММ-ГГ:", 0, nil)
	default:
		b.sendMessage(session.ChatID, fmt.Sprintf("❌ Пожалуйста, выберите '%s' или '%s'", constant.BUTTON_TEXT_TODAY, constant.BUTTON_TEXT_CUSTOM_DATE), 0, nil)
	}
}

// handleCustomDate validates a DD-MM-YY date and stores the literal input.
// Impossible calendar dates fail exactly as unparseable text.
func (b *DocBotServices) handleCustomDate(session *models.Session, text string) {
	if _, err := time.Parse(constant.DATE_LAYOUT, text); err != nil {
		b.sendMessage(session.ChatID, "❌ Некорректный формат даты. Введите в формате ДД-ММ-ГГ", 0, nil)
		return
	}
	session.Date = text
	b.promptForFile(session)
}

// promptForFile moves the dialogue to the terminal file-waiting state and
// clears the reply keyboard.
func (b *DocBotServices) promptForFile(session *models.Session) {
	session.State = models.StateUploadingFile
	b.Sessions.Set(session)
	b.sendMessage(session.ChatID, "\U0001F4C4 Загрузите файл. Если это картинка, прикрепите её, как документ", 0, tgbotapi.NewRemoveKeyboard(true))
}
