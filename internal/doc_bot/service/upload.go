package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/DenisKhanov/DocBOT/internal/doc_bot/api"
	"github.com/DenisKhanov/DocBOT/internal/doc_bot/constant"
	"github.com/DenisKhanov/DocBOT/internal/doc_bot/models"
	"github.com/DenisKhanov/DocBOT/internal/doc_bot/templates"
)

// linkUnavailableMsg is reported instead of a link on degraded success.
const linkUnavailableMsg = "Ссылка недоступна\nВозможно такой файл уже был загружен ранее, если нет, то произошла ошибка, попробуйте ещё раз"

// handleIncomingFile routes a document or photo to the state expecting it.
func (b *DocBotServices) handleIncomingFile(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	session, ok := b.Sessions.Get(chatID)
	if !ok {
		b.sendMessage(chatID, "❌ Сейчас бот не ожидает загрузки файла.", 0, nil)
		return
	}

	switch session.State {
	case models.StateAwaitingTemplateFile:
		// Шаблон принимается только документом
		if msg.Document == nil {
			b.sendMessage(chatID, "❌ Сейчас бот не ожидает загрузки файла.", 0, nil)
			return
		}
		b.handleTemplateFile(ctx, session, msg)
	case models.StateUploadingFile:
		b.processDocument(ctx, session, msg)
	default:
		b.sendMessage(chatID, "❌ Сейчас бот не ожидает загрузки файла.", 0, nil)
	}
}

// stageIncomingFile downloads the attachment of the message into the staging
// directory and returns the local path with the original extension. A photo
// is staged under a timestamped .jpg name.
func (b *DocBotServices) stageIncomingFile(ctx context.Context, msg *tgbotapi.Message) (localPath, ext string, err error) {
	var fileID, origName string
	switch {
	case msg.Document != nil:
		fileID = msg.Document.FileID
		// Имя от отправителя: отбрасываем любые компоненты пути
		origName = filepath.Base(msg.Document.FileName)
	case len(msg.Photo) > 0:
		// Берём самое большое фото
		photo := msg.Photo[len(msg.Photo)-1]
		fileID = photo.FileID
		origName = fmt.Sprintf("photo_%s.jpg", b.now().Format("20060102_150405"))
	default:
		return "", "", fmt.Errorf("message carries no document or photo")
	}

	fileURL, err := b.Bot.GetFileDirectURL(fileID)
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve file %s: %w", fileID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return "", "", fmt.Errorf("failed to create download request: %w", err)
	}
	res, err := b.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("failed to download file %s: %w", fileID, err)
	}
	defer func() {
		if cerr := res.Body.Close(); cerr != nil {
			logrus.WithError(cerr).Error("Failed to close response body")
		}
	}()
	if res.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("file download failed with status %d", res.StatusCode)
	}

	localPath = filepath.Join(b.stagingDir, origName)
	out, err := os.Create(localPath)
	if err != nil {
		return "", "", fmt.Errorf("failed to create staged file %s: %w", localPath, err)
	}
	if _, err = io.Copy(out, res.Body); err != nil {
		out.Close()
		return "", "", fmt.Errorf("failed to write staged file %s: %w", localPath, err)
	}
	if err = out.Close(); err != nil {
		return "", "", fmt.Errorf("failed to close staged file %s: %w", localPath, err)
	}
	return localPath, filepath.Ext(origName), nil
}

// removeStaged deletes a staged file. Failure is logged, not escalated.
func (b *DocBotServices) removeStaged(localPath string) {
	if err := os.Remove(localPath); err != nil {
		logrus.WithError(err).Warnf("Failed to remove staged file %s", localPath)
		return
	}
	logrus.Infof("Staged file %s removed after processing", localPath)
}

// handleTemplateFile validates and registers an uploaded template
// spreadsheet: the file is checked for the required columns, uploaded to the
// templates folder (overwriting any same-named file) and the template's
// document folder is created if absent.
func (b *DocBotServices) handleTemplateFile(ctx context.Context, session *models.Session, msg *tgbotapi.Message) {
	chatID := session.ChatID
	if !strings.HasSuffix(msg.Document.FileName, constant.TEMPLATE_EXT) {
		b.sendMessage(chatID, "❌ Поддерживаются только .xlsx-файлы.", 0, nil)
		return
	}

	localPath, _, err := b.stageIncomingFile(ctx, msg)
	if err != nil {
		logrus.WithError(err).Errorf("Failed to stage template file for chat %d", chatID)
		b.sendMessage(chatID, "❌ Не удалось получить файл. Попробуйте снова.", 0, nil)
		return
	}
	defer b.removeStaged(localPath)

	templateFileName := session.TemplateName + constant.TEMPLATE_EXT
	if _, err = b.Registry.ParseSchemaFile(localPath, templateFileName); err != nil {
		var schemaErr *templates.SchemaError
		if errors.As(err, &schemaErr) {
			b.sendMessage(chatID, "❌ Файл должен содержать столбцы: "+strings.Join(templates.RequiredColumns, ", "), 0, nil)
			return
		}
		logrus.WithError(err).Errorf("Failed to parse template file for chat %d", chatID)
		b.sendMessage(chatID, "❌ Не удалось прочитать файл. Убедитесь, что это Excel.", 0, nil)
		return
	}

	if err = b.Registry.Register(ctx, localPath, templateFileName); err != nil {
		logrus.WithError(err).Errorf("Failed to register template %s for chat %d", templateFileName, chatID)
		b.sendMessage(chatID, "❌ Не удалось загрузить файл на Яндекс.Диск.", 0, nil)
		return
	}

	docsFolder := path.Join(b.reportsFolder, strings.TrimPrefix(templateFileName, constant.TEMPLATE_PREFIX))
	if err = b.Disk.Mkdir(ctx, docsFolder); err != nil {
		if errors.Is(err, api.ErrPathExists) {
			logrus.Infof("Documents folder %s already exists", docsFolder)
		} else {
			// Folder creation is retried before every upload, so registration stands.
			logrus.WithError(err).Errorf("Failed to create documents folder %s", docsFolder)
		}
	}

	logrus.Infof("Template %s registered by chat %d", templateFileName, chatID)
	b.sendMessage(chatID, fmt.Sprintf("✅ Шаблон '%s' создан.", session.TemplateName), 0, nil)
	b.Sessions.Delete(chatID)
	b.showMainMenu(chatID)
}

// processDocument runs the terminal step of the dialogue: it stages the sent
// file, synthesizes the canonical name from the accumulated metadata, uploads
// the file into the bound template's document folder, publishes it and
// reports the link. The metadata snapshot is taken before the first remote
// call, so a concurrent "back" cannot alter an upload already in flight.
func (b *DocBotServices) processDocument(ctx context.Context, session *models.Session, msg *tgbotapi.Message) {
	chatID := session.ChatID

	localPath, ext, err := b.stageIncomingFile(ctx, msg)
	if err != nil {
		logrus.WithError(err).Errorf("Failed to stage document for chat %d", chatID)
		b.sendMessage(chatID, "❌ Не удалось получить файл. Попробуйте снова.", 0, nil)
		return
	}
	defer b.removeStaged(localPath)

	templateName, ok := b.Bindings.Template(chatID)
	if !ok {
		b.sendMessage(chatID, "❌ Не удалось определить текущий шаблон.", 0, nil)
		return
	}

	meta := models.DocumentMetadata{
		ShortCategory: orDefault(session.ShortCategory, "БезКат"),
		ShortItem:     orDefault(session.ShortItem, "БезСтат"),
		TypeDoc:       orDefault(session.TypeDoc, "Док"),
		Sum:           orDefault(session.Sum, "0"),
		Date:          orDefault(session.Date, b.now().Format(constant.DATE_LAYOUT)),
		Ext:           ext,
	}
	folder := path.Join(b.reportsFolder, strings.TrimPrefix(templateName, constant.TEMPLATE_PREFIX))

	result, err := b.runPipeline(ctx, localPath, folder, meta)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"chatID": chatID,
			"state":  session.State,
			"folder": folder,
		}).Error("Upload pipeline failed")
		b.sendMessage(chatID, "❌ Не удалось загрузить файл на Яндекс.Диск.", 0, nil)
		b.Sessions.Delete(chatID)
		return
	}

	fileName := path.Base(result.RemotePath)
	link := result.PublicURL
	if link == "" {
		link = linkUnavailableMsg
	}
	logrus.Infof("Uploaded file '%s' to folder '%s'", fileName, folder)
	b.sendMessage(chatID, fmt.Sprintf("✅ Файл успешно загружен как %s\nСсылка на файл: %s", fileName, link), 0, nil)
	b.Sessions.Delete(chatID)
	b.showMainMenu(chatID)
}

// runPipeline executes the upload steps: idempotent folder creation, unique
// name resolution, upload, publish, public link poll. A missing link is a
// degraded success, not an error.
func (b *DocBotServices) runPipeline(ctx context.Context, localPath, folder string, meta models.DocumentMetadata) (*models.UploadResult, error) {
	if err := b.Disk.Mkdir(ctx, folder); err != nil && !errors.Is(err, api.ErrPathExists) {
		return nil, fmt.Errorf("failed to create folder %s: %w", folder, err)
	}

	finalName, err := b.resolveUnique(ctx, folder, buildBaseName(meta))
	if err != nil {
		return nil, err
	}
	remotePath := path.Join(folder, finalName)

	if err = b.Disk.Upload(ctx, localPath, remotePath, false); err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", remotePath, err)
	}

	if err = b.Disk.Publish(ctx, remotePath); err != nil && !errors.Is(err, api.ErrAlreadyPublic) {
		return nil, fmt.Errorf("failed to publish %s: %w", remotePath, err)
	}

	return &models.UploadResult{
		RemotePath: remotePath,
		PublicURL:  b.resolvePublicURL(ctx, remotePath),
	}, nil
}

// resolvePublicURL polls the resource metadata for the shareable link.
// The link appears with some lag after publishing, so up to 5 attempts are
// made with mildly increasing waits of (i+1)²−i seconds. An empty result
// after all attempts means the link never propagated in time.
func (b *DocBotServices) resolvePublicURL(ctx context.Context, remotePath string) string {
	const attempts = 5
	for i := 0; i < attempts; i++ {
		publicURL, err := b.Disk.PublicURL(ctx, remotePath)
		if err != nil {
			logrus.WithError(err).Warnf("Failed to fetch metadata for %s", remotePath)
		} else if publicURL != "" {
			return publicURL
		}

		waitTime := time.Duration((i+1)*(i+1)-i) * time.Second
		logrus.Infof("URL isn`t exist, sleeping %v and try again", waitTime)
		if err = b.wait(ctx, waitTime); err != nil {
			return ""
		}
	}
	return ""
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
