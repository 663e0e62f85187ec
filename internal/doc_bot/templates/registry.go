// Package templates resolves template names to their parsed schemas.
// Templates are spreadsheets stored in a fixed Yandex.Disk folder; a local
// cache keeps each one after the first download, and a cached copy is treated
// as immutable.
package templates

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/DenisKhanov/DocBOT/internal/doc_bot/constant"
	"github.com/DenisKhanov/DocBOT/internal/doc_bot/models"
)

// RequiredColumns are the spreadsheet columns a template must contain.
var RequiredColumns = []string{
	constant.COLUMN_CATEGORY,
	constant.COLUMN_ITEM,
	constant.COLUMN_CAT_SHORT,
	constant.COLUMN_ITEM_SHORT,
}

// SchemaError reports a template spreadsheet missing required columns.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return "template is missing required columns: " + strings.Join(e.Missing, ", ")
}

// Disk is the subset of the remote storage client the registry needs.
type Disk interface {
	ListFiles(ctx context.Context, folder string) ([]string, error)
	Download(ctx context.Context, diskPath, localPath string) error
	Upload(ctx context.Context, localPath, diskPath string, overwrite bool) error
}

// Registry lists, caches, parses and registers template spreadsheets.
type Registry struct {
	disk         Disk
	remoteFolder string // Disk folder holding the template spreadsheets
	localDir     string // Local cache directory
}

// NewRegistry creates a Registry over the given disk client and folders.
// The local cache directory is created if absent.
func NewRegistry(disk Disk, remoteFolder, localDir string) (*Registry, error) {
	if err := os.MkdirAll(localDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create local templates dir %s: %w", localDir, err)
	}
	return &Registry{
		disk:         disk,
		remoteFolder: remoteFolder,
		localDir:     localDir,
	}, nil
}

// ListNames returns the names of the spreadsheet-backed templates at the
// remote templates folder. A missing folder yields an empty list.
func (r *Registry) ListNames(ctx context.Context) ([]string, error) {
	files, err := r.disk.ListFiles(ctx, r.remoteFolder)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, name := range files {
		if strings.HasSuffix(name, constant.TEMPLATE_EXT) {
			names = append(names, name)
		}
	}
	return names, nil
}

// LocalPath returns the cache location of a template.
func (r *Registry) LocalPath(name string) string {
	return filepath.Join(r.localDir, name)
}

// EnsureLocal downloads the template into the local cache unless a cached
// copy already exists, and returns the local path.
func (r *Registry) EnsureLocal(ctx context.Context, name string) (string, error) {
	localPath := r.LocalPath(name)
	if _, err := os.Stat(localPath); err == nil {
		logrus.Infof("Template %s already cached at %s", name, localPath)
		return localPath, nil
	}
	if err := r.disk.Download(ctx, path.Join(r.remoteFolder, name), localPath); err != nil {
		return "", fmt.Errorf("failed to download template %s: %w", name, err)
	}
	logrus.Infof("Template %s downloaded to %s", name, localPath)
	return localPath, nil
}

// LoadSchema parses the template into its schema, downloading it first if the
// cache has no copy.
func (r *Registry) LoadSchema(ctx context.Context, name string) (*models.TemplateSchema, error) {
	localPath, err := r.EnsureLocal(ctx, name)
	if err != nil {
		return nil, err
	}
	return r.ParseSchemaFile(localPath, name)
}

// ParseSchemaFile parses an arbitrary local spreadsheet into a schema.
// It is also used to validate a freshly uploaded template before registration.
// Returns a *SchemaError when required columns are missing.
func (r *Registry) ParseSchemaFile(localPath, name string) (*models.TemplateSchema, error) {
	f, err := excelize.OpenFile(localPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet %s: %w", localPath, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			logrus.WithError(cerr).Errorf("Failed to close spreadsheet %s", localPath)
		}
	}()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("failed to read spreadsheet rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, &SchemaError{Missing: RequiredColumns}
	}

	columns := make(map[string]int, len(rows[0]))
	for i, header := range rows[0] {
		columns[strings.TrimSpace(header)] = i
	}
	var missing []string
	for _, required := range RequiredColumns {
		if _, ok := columns[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Missing: missing}
	}

	cell := func(row []string, column string) string {
		idx := columns[column]
		if idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	schema := &models.TemplateSchema{Name: name}
	for _, row := range rows[1:] {
		catName := cell(row, constant.COLUMN_CATEGORY)
		if catName == "" {
			continue
		}
		category := schema.FindCategory(catName)
		if category == nil {
			schema.Categories = append(schema.Categories, models.Category{
				Name:  catName,
				Short: cell(row, constant.COLUMN_CAT_SHORT),
			})
			category = &schema.Categories[len(schema.Categories)-1]
		}
		if itemName := cell(row, constant.COLUMN_ITEM); itemName != "" {
			category.Items = append(category.Items, models.Item{
				Name:  itemName,
				Short: cell(row, constant.COLUMN_ITEM_SHORT),
			})
		}
	}
	return schema, nil
}

// Register uploads a validated template spreadsheet to the remote templates
// folder, overwriting any same-named file.
func (r *Registry) Register(ctx context.Context, localPath, name string) error {
	diskPath := path.Join(r.remoteFolder, name)
	if err := r.disk.Upload(ctx, localPath, diskPath, true); err != nil {
		return fmt.Errorf("failed to upload template %s: %w", name, err)
	}
	logrus.Infof("Template %s registered at %s", name, diskPath)
	return nil
}
