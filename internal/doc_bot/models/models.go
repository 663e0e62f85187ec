// Package models defines the data structures shared by the document bot:
// dialog states, per-chat sessions and parsed template schemas.
package models

// DialogState enumerates the steps of the guided filing dialogue.
// A chat with no stored session is considered idle.
type DialogState string

const (
	StateAwaitingTemplateName   DialogState = "awaiting_template_name"
	StateAwaitingTemplateFile   DialogState = "awaiting_template_file"
	StateAwaitingTemplateChoice DialogState = "awaiting_template_choice"
	StateAwaitingCategory       DialogState = "awaiting_category"
	StateAwaitingItem           DialogState = "awaiting_item"
	StateAwaitingTypeDoc        DialogState = "awaiting_typedoc"
	StateAwaitingSum            DialogState = "awaiting_sum"
	StateAwaitingDateChoice     DialogState = "awaiting_date_choice"
	StateAwaitingCustomDate     DialogState = "awaiting_custom_date"
	StateUploadingFile          DialogState = "uploading_file"
)

// Session holds the in-flight dialogue of one chat: the current state and the
// field values accumulated so far. Sessions live in memory only and are lost
// on restart.
type Session struct {
	ChatID        int64
	State         DialogState
	TemplateName  string // Name entered while creating a new template
	Category      string
	ShortCategory string
	ShortItem     string
	TypeDoc       string
	Sum           string
	Date          string
	// Schema is the snapshot of the bound template captured when the upload
	// flow started, so mid-dialogue inputs never re-fetch the spreadsheet.
	Schema *TemplateSchema
}

// Item is one expense item row of a template with its filename short code.
type Item struct {
	Name  string
	Short string
}

// Category groups the items of one spreadsheet category in row order.
type Category struct {
	Name  string
	Short string
	Items []Item
}

// TemplateSchema is the parsed form of one template spreadsheet.
// Categories and items keep the spreadsheet row order.
type TemplateSchema struct {
	Name       string
	Categories []Category
}

// FindCategory returns the category with the exact given name, or nil.
// Matching is case-sensitive.
func (s *TemplateSchema) FindCategory(name string) *Category {
	for i := range s.Categories {
		if s.Categories[i].Name == name {
			return &s.Categories[i]
		}
	}
	return nil
}

// CategoryNames returns the category names in spreadsheet order.
func (s *TemplateSchema) CategoryNames() []string {
	names := make([]string, 0, len(s.Categories))
	for _, c := range s.Categories {
		names = append(names, c.Name)
	}
	return names
}

// FindItem returns the item with the exact given name, or nil.
func (c *Category) FindItem(name string) *Item {
	for i := range c.Items {
		if c.Items[i].Name == name {
			return &c.Items[i]
		}
	}
	return nil
}

// ItemNames returns the item names of the category in spreadsheet order.
func (c *Category) ItemNames() []string {
	names := make([]string, 0, len(c.Items))
	for _, it := range c.Items {
		names = append(names, it.Name)
	}
	return names
}

// DocumentMetadata is the fully assembled record consumed once by filename
// synthesis at the point of upload.
type DocumentMetadata struct {
	ShortCategory string
	ShortItem     string
	TypeDoc       string
	Sum           string
	Date          string // DD-MM-YY
	Ext           string // Original file extension including the dot
}

// UploadResult reports one finished upload. PublicURL is empty when the link
// could not be resolved within the bounded poll.
type UploadResult struct {
	RemotePath string
	PublicURL  string
}
