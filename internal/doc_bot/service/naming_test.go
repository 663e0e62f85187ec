package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DenisKhanov/DocBOT/internal/doc_bot/models"
)

func TestBuildBaseName(t *testing.T) {
	meta := models.DocumentMetadata{
		ShortCategory: "ОФ",
		ShortItem:     "Канц",
		TypeDoc:       "Чек",
		Sum:           "150.00",
		Date:          "05-06-24",
		Ext:           ".jpg",
	}

	assert.Equal(t, "ОФ_Канц_Чек_150.00_05-06-24.jpg", buildBaseName(meta))
}

func TestResolveUniqueWithoutCollision(t *testing.T) {
	tb := newTestBot(t, true)

	name, err := tb.resolveUnique(context.Background(), "disk:/Домашка/Документы/Офис.xlsx", "ОФ_Канц_Чек_150.00_05-06-24.jpg")

	require.NoError(t, err)
	assert.Equal(t, "ОФ_Канц_Чек_150.00_05-06-24.jpg", name)
}

func TestResolveUniqueProbesNumericSuffixes(t *testing.T) {
	tb := newTestBot(t, true)
	folder := "disk:/Домашка/Документы/Офис.xlsx"
	tb.disk.existing[folder+"/ОФ_Канц_Чек_150.00_05-06-24.jpg"] = true
	tb.disk.existing[folder+"/ОФ_Канц_Чек_150.00_05-06-24_1.jpg"] = true

	name, err := tb.resolveUnique(context.Background(), folder, "ОФ_Канц_Чек_150.00_05-06-24.jpg")

	require.NoError(t, err)
	assert.Equal(t, "ОФ_Канц_Чек_150.00_05-06-24_2.jpg", name)
}

func TestResolveUniqueKeepsSuffixBeforeExtension(t *testing.T) {
	tb := newTestBot(t, true)
	folder := "disk:/Домашка/Документы/Офис.xlsx"
	tb.disk.existing[folder+"/БезКат_БезСтат_Док_0_05-06-24.pdf"] = true

	name, err := tb.resolveUnique(context.Background(), folder, "БезКат_БезСтат_Док_0_05-06-24.pdf")

	require.NoError(t, err)
	assert.Equal(t, "БезКат_БезСтат_Док_0_05-06-24_1.pdf", name)
}
