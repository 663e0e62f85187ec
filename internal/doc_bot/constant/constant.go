package constant

const (
	BUTTON_TEXT_CREATE_TEMPLATE = "✏️ Создать шаблон"
	BUTTON_TEXT_CHOOSE_TEMPLATE = "\U0001F4C4 Выбрать шаблон"
	BUTTON_TEXT_UPLOAD_FILE     = "\U0001F4C2 Загрузить файл"
	BUTTON_TEXT_BACK            = "\U0001F519 Назад"
	BUTTON_TEXT_TODAY           = "Сегодня"
	BUTTON_TEXT_CUSTOM_DATE     = "Своя дата"

	// DATE_LAYOUT is the DD-MM-YY reference layout used in filenames.
	DATE_LAYOUT = "02-01-06"

	// TEMPLATE_PREFIX is stripped from a template file name to produce the
	// name of its document folder.
	TEMPLATE_PREFIX = "Шаблон_"

	TEMPLATE_EXT = ".xlsx"

	// Subfolders of the Yandex.Disk home path.
	TEMPLATES_DIR_NAME = "Шаблоны"
	REPORTS_DIR_NAME   = "Документы"

	// Required template spreadsheet columns.
	COLUMN_CATEGORY   = "Категория"
	COLUMN_ITEM       = "Статья Расходов"
	COLUMN_CAT_SHORT  = "Категория_Short"
	COLUMN_ITEM_SHORT = "Статья Расходов_Short"

	// DOC_TYPE_DEFAULT names the catch-all document type.
	DOC_TYPE_DEFAULT = "Документ"
)

// DocTypeNames lists the selectable document types in menu order.
var DocTypeNames = []string{
	"Кассовый чек",
	"Ведомость на вручение",
	"Акт",
	"Товарная накладная",
	"Договор",
	"Гарантийный Талон",
	DOC_TYPE_DEFAULT,
}

// DocTypeCodes maps a document type to the short code used in filenames.
var DocTypeCodes = map[string]string{
	"Кассовый чек":          "Чек",
	"Ведомость на вручение": "ВВруч",
	"Акт":                   "Акт",
	"Товарная накладная":    "ТНакл",
	"Договор":               "Дгвр",
	"Гарантийный Талон":     "Гарант",
	DOC_TYPE_DEFAULT:        "Док",
}
