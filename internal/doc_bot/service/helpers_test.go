package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/DenisKhanov/DocBOT/internal/doc_bot/api"
	"github.com/DenisKhanov/DocBOT/internal/doc_bot/models"
	"github.com/DenisKhanov/DocBOT/internal/doc_bot/repository"
)

const testChatID int64 = 7

// fakeTelegram records outgoing messages and serves a fixed direct file URL.
type fakeTelegram struct {
	sent    []tgbotapi.MessageConfig
	fileURL string
}

func (f *fakeTelegram) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeTelegram) GetFileDirectURL(_ string) (string, error) {
	return f.fileURL, nil
}

func (f *fakeTelegram) lastText() string {
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1].Text
}

func (f *fakeTelegram) allTexts() string {
	texts := make([]string, 0, len(f.sent))
	for _, msg := range f.sent {
		texts = append(texts, msg.Text)
	}
	return strings.Join(texts, "\n")
}

// fakeDisk is an in-memory stand-in for the Yandex.Disk client.
type fakeDisk struct {
	existing      map[string]bool
	uploads       map[string]string // disk path -> local path
	published     []string
	mkdirs        []string
	publicURL     string
	urlReadyAfter int // PublicURL calls returning empty before the link appears
	urlCalls      int
	uploadErr     error
	publishErr    error
}

func newFakeDisk() *fakeDisk {
	return &fakeDisk{
		existing: make(map[string]bool),
		uploads:  make(map[string]string),
	}
}

func (d *fakeDisk) Exists(_ context.Context, diskPath string) (bool, error) {
	return d.existing[diskPath], nil
}

func (d *fakeDisk) Upload(_ context.Context, localPath, diskPath string, _ bool) error {
	if d.uploadErr != nil {
		return d.uploadErr
	}
	d.uploads[diskPath] = localPath
	d.existing[diskPath] = true
	return nil
}

func (d *fakeDisk) Mkdir(_ context.Context, diskPath string) error {
	if d.existing[diskPath] {
		return api.ErrPathExists
	}
	d.existing[diskPath] = true
	d.mkdirs = append(d.mkdirs, diskPath)
	return nil
}

func (d *fakeDisk) Publish(_ context.Context, diskPath string) error {
	if d.publishErr != nil {
		return d.publishErr
	}
	d.published = append(d.published, diskPath)
	return nil
}

func (d *fakeDisk) PublicURL(_ context.Context, _ string) (string, error) {
	d.urlCalls++
	if d.urlCalls > d.urlReadyAfter {
		return d.publicURL, nil
	}
	return "", nil
}

type registerCall struct {
	localPath string
	name      string
}

// fakeRegistry serves canned template listings and schemas.
type fakeRegistry struct {
	names      []string
	schemas    map[string]*models.TemplateSchema
	ensured    []string
	registered []registerCall
	parsed     *models.TemplateSchema
	parseErr   error
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{schemas: make(map[string]*models.TemplateSchema)}
}

func (r *fakeRegistry) ListNames(_ context.Context) ([]string, error) {
	return r.names, nil
}

func (r *fakeRegistry) EnsureLocal(_ context.Context, name string) (string, error) {
	r.ensured = append(r.ensured, name)
	return filepath.Join("testdata", name), nil
}

func (r *fakeRegistry) LoadSchema(_ context.Context, name string) (*models.TemplateSchema, error) {
	schema, ok := r.schemas[name]
	if !ok {
		return nil, fmt.Errorf("no schema for %s", name)
	}
	return schema, nil
}

func (r *fakeRegistry) ParseSchemaFile(_, _ string) (*models.TemplateSchema, error) {
	return r.parsed, r.parseErr
}

func (r *fakeRegistry) Register(_ context.Context, localPath, name string) error {
	r.registered = append(r.registered, registerCall{localPath: localPath, name: name})
	return nil
}

type authFunc func(chatID int64) bool

func (f authFunc) IsAuthorized(chatID int64) bool { return f(chatID) }

type testBot struct {
	*DocBotServices
	tg       *fakeTelegram
	disk     *fakeDisk
	registry *fakeRegistry
	sessions *repository.Sessions
	bindings *repository.TemplateBindings
	staging  string
}

// newTestBot wires a DocBotServices over fakes, real in-memory sessions and a
// real file-backed bindings repository, with deterministic time and no waits.
func newTestBot(t *testing.T, authorized bool) *testBot {
	t.Helper()

	tg := &fakeTelegram{}
	disk := newFakeDisk()
	registry := newFakeRegistry()
	sessions := repository.NewSessions()
	bindings := repository.NewTemplateBindings(filepath.Join(t.TempDir(), "user_templates.json"))
	staging := t.TempDir()

	bot := NewDocBot(
		tg,
		disk,
		registry,
		bindings,
		sessions,
		authFunc(func(int64) bool { return authorized }),
		"disk:/Домашка/Документы",
		staging,
	)
	bot.now = func() time.Time { return time.Date(2024, 6, 5, 12, 0, 0, 0, time.UTC) }
	bot.wait = func(_ context.Context, _ time.Duration) error { return nil }

	return &testBot{
		DocBotServices: bot,
		tg:             tg,
		disk:           disk,
		registry:       registry,
		sessions:       sessions,
		bindings:       bindings,
		staging:        staging,
	}
}

func (tb *testBot) send(text string) {
	tb.UpdateProcessing(context.Background(), textUpdate(testChatID, text))
}

func textUpdate(chatID int64, text string) *tgbotapi.Update {
	return &tgbotapi.Update{
		Message: &tgbotapi.Message{
			Chat: &tgbotapi.Chat{ID: chatID},
			From: &tgbotapi.User{UserName: "tester"},
			Text: text,
		},
	}
}

func documentUpdate(chatID int64, fileName string) *tgbotapi.Update {
	return &tgbotapi.Update{
		Message: &tgbotapi.Message{
			Chat:     &tgbotapi.Chat{ID: chatID},
			From:     &tgbotapi.User{UserName: "tester"},
			Document: &tgbotapi.Document{FileID: "file-1", FileName: fileName},
		},
	}
}

func photoUpdate(chatID int64) *tgbotapi.Update {
	return &tgbotapi.Update{
		Message: &tgbotapi.Message{
			Chat:  &tgbotapi.Chat{ID: chatID},
			From:  &tgbotapi.User{UserName: "tester"},
			Photo: []tgbotapi.PhotoSize{{FileID: "photo-small"}, {FileID: "photo-big"}},
		},
	}
}

func officeSchema() *models.TemplateSchema {
	return &models.TemplateSchema{
		Name: "Шаблон_Офис.xlsx",
		Categories: []models.Category{
			{
				Name:  "Офис",
				Short: "ОФ",
				Items: []models.Item{
					{Name: "Канцелярия", Short: "Канц"},
					{Name: "Мебель", Short: "Меб"},
				},
			},
			{
				Name:  "Транспорт",
				Short: "ТР",
				Items: []models.Item{
					{Name: "Бензин", Short: "Бенз"},
				},
			},
		},
	}
}

// bindOffice binds the test chat to the office template and makes its schema loadable.
func (tb *testBot) bindOffice(t *testing.T) {
	t.Helper()
	if err := tb.bindings.SetTemplate(testChatID, "Шаблон_Офис.xlsx"); err != nil {
		t.Fatalf("bind template: %v", err)
	}
	tb.registry.names = []string{"Шаблон_Офис.xlsx"}
	tb.registry.schemas["Шаблон_Офис.xlsx"] = officeSchema()
}
