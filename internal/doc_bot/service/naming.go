package service

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/DenisKhanov/DocBOT/internal/doc_bot/models"
)

// buildBaseName assembles the canonical filename from the accumulated short
// codes: category_item_docType_sum_date plus the original extension.
func buildBaseName(meta models.DocumentMetadata) string {
	parts := []string{meta.ShortCategory, meta.ShortItem, meta.TypeDoc, meta.Sum, meta.Date}
	return strings.Join(parts, "_") + meta.Ext
}

// resolveUnique returns the candidate name unchanged if nothing at the folder
// uses it, otherwise probes name_1, name_2, … (before the extension) until an
// unused name is found. The probe is sequential; collisions are rare and the
// probe count stays small.
func (b *DocBotServices) resolveUnique(ctx context.Context, folder, name string) (string, error) {
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)

	candidate := name
	for index := 1; ; index++ {
		exists, err := b.Disk.Exists(ctx, path.Join(folder, candidate))
		if err != nil {
			return "", fmt.Errorf("failed to probe %s in %s: %w", candidate, folder, err)
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s_%d%s", base, index, ext)
	}
}
